package mailer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Payload is the typed body of a send request. Each template has exactly
// one payload shape.
type Payload interface {
	Template() TemplateID
	Validate() error
}

// Date is a calendar date accepted as "2006-01-02" or RFC 3339.
type Date struct {
	time.Time
}

// NewDate returns the date part of t.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(b, `"`))
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("invalid date %q", s)
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(time.DateOnly) + `"`), nil
}

// EstimatePayload describes a quote sent to a customer for approval.
type EstimatePayload struct {
	EstimateNumber string  `json:"estimateNumber"`
	CustomerName   string  `json:"customerName,omitempty"`
	IssueDate      Date    `json:"issueDate"`
	ExpiryDate     Date    `json:"expiryDate"`
	Subtotal       float64 `json:"subtotal"`
	Tax            float64 `json:"tax"`
	Total          float64 `json:"total"`
	Token          string  `json:"token"`
	Notes          string  `json:"notes,omitempty"`
}

func (EstimatePayload) Template() TemplateID { return TemplateEstimate }

func (p EstimatePayload) Validate() error {
	return firstMissing(
		field{"estimateNumber", p.EstimateNumber},
		field{"token", p.Token},
	)
}

// InvoicePayload describes a bill with an optional outstanding balance.
type InvoicePayload struct {
	InvoiceNumber string  `json:"invoiceNumber"`
	CustomerName  string  `json:"customerName,omitempty"`
	IssueDate     Date    `json:"issueDate"`
	DueDate       Date    `json:"dueDate"`
	Subtotal      float64 `json:"subtotal"`
	Tax           float64 `json:"tax"`
	Total         float64 `json:"total"`
	AmountPaid    float64 `json:"amountPaid,omitempty"`
	Balance       float64 `json:"balance"`
	Token         string  `json:"token"`
	Notes         string  `json:"notes,omitempty"`
}

func (InvoicePayload) Template() TemplateID { return TemplateInvoice }

func (p InvoicePayload) Validate() error {
	return firstMissing(
		field{"invoiceNumber", p.InvoiceNumber},
		field{"token", p.Token},
	)
}

// PurchaseOrderPayload describes an order placed with a vendor.
type PurchaseOrderPayload struct {
	PONumber     string  `json:"poNumber"`
	VendorName   string  `json:"vendorName,omitempty"`
	IssueDate    Date    `json:"issueDate"`
	DeliveryDate Date    `json:"deliveryDate"`
	Subtotal     float64 `json:"subtotal"`
	Tax          float64 `json:"tax"`
	Total        float64 `json:"total"`
	Token        string  `json:"token"`
	Notes        string  `json:"notes,omitempty"`
}

func (PurchaseOrderPayload) Template() TemplateID { return TemplatePurchaseOrder }

func (p PurchaseOrderPayload) Validate() error {
	return firstMissing(
		field{"poNumber", p.PONumber},
		field{"token", p.Token},
	)
}

// ReceiptPayload confirms a payment against an invoice.
type ReceiptPayload struct {
	InvoiceNumber string  `json:"invoiceNumber"`
	ReceiptNumber string  `json:"receiptNumber,omitempty"`
	CustomerName  string  `json:"customerName,omitempty"`
	PaymentDate   Date    `json:"paymentDate"`
	PaymentMethod string  `json:"paymentMethod,omitempty"`
	Amount        float64 `json:"amount"`
	Balance       float64 `json:"balance"`
	Token         string  `json:"token,omitempty"`
}

func (ReceiptPayload) Template() TemplateID { return TemplateReceipt }

func (p ReceiptPayload) Validate() error {
	return firstMissing(field{"invoiceNumber", p.InvoiceNumber})
}

// ReminderType selects the reminder wording and urgency.
type ReminderType string

const (
	ReminderEstimateExpiring ReminderType = "estimate_expiring"
	ReminderInvoiceDue       ReminderType = "invoice_due"
	ReminderInvoiceOverdue   ReminderType = "invoice_overdue"
)

// Valid reports whether t is a known reminder subtype.
func (t ReminderType) Valid() bool {
	switch t {
	case ReminderEstimateExpiring, ReminderInvoiceDue, ReminderInvoiceOverdue:
		return true
	}
	return false
}

// ReminderPayload nudges a customer about an estimate or invoice.
// The subtype is chosen by the caller and never inferred from dates.
type ReminderPayload struct {
	ReminderType   ReminderType `json:"reminderType"`
	DocumentNumber string       `json:"documentNumber"`
	CustomerName   string       `json:"customerName,omitempty"`
	DueDate        Date         `json:"dueDate"`
	Amount         float64      `json:"amount"`
	DaysOverdue    int          `json:"daysOverdue,omitempty"`
	Token          string       `json:"token"`
}

func (ReminderPayload) Template() TemplateID { return TemplateReminder }

func (p ReminderPayload) Validate() error {
	if !p.ReminderType.Valid() {
		return fmt.Errorf("%w: reminderType must be one of estimate_expiring, invoice_due, invoice_overdue", ErrInvalidPayload)
	}
	return firstMissing(
		field{"documentNumber", p.DocumentNumber},
		field{"token", p.Token},
	)
}

// DecodePayload decodes raw into the payload shape of t and validates it.
// Unknown fields are ignored.
func DecodePayload(t TemplateID, raw json.RawMessage) (Payload, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: payload must be a JSON object", ErrInvalidPayload)
	}

	var p Payload
	var err error
	switch t {
	case TemplateEstimate:
		p, err = decode[EstimatePayload](trimmed)
	case TemplateInvoice:
		p, err = decode[InvoicePayload](trimmed)
	case TemplatePurchaseOrder:
		p, err = decode[PurchaseOrderPayload](trimmed)
	case TemplateReceipt:
		p, err = decode[ReceiptPayload](trimmed)
	case TemplateReminder:
		p, err = decode[ReminderPayload](trimmed)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, t)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func decode[P Payload](raw []byte) (P, error) {
	var p P
	err := json.Unmarshal(raw, &p)
	return p, err
}

type field struct {
	name  string
	value string
}

func firstMissing(fields ...field) error {
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidPayload, f.name)
		}
	}
	return nil
}
