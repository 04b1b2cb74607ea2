package mailer

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/dmitrymomot/mailroom/pkg/i18n"
	"github.com/dmitrymomot/mailroom/pkg/sanitizer"
)

// Urgency drives the banner shown above reminder content.
type Urgency string

const (
	UrgencyNone    Urgency = ""
	UrgencyNotice  Urgency = "notice"
	UrgencyWarning Urgency = "warning"
	UrgencyUrgent  Urgency = "urgent"
)

// Row is one label/value line of the document summary.
type Row struct {
	Label string
	Value string
}

// Action is a call-to-action link.
type Action struct {
	Label string
	URL   string
}

// View is what both the markdown and the plain-text template see.
// It is computed once per render so amounts and links cannot drift
// between the two bodies.
type View struct {
	Brand     Brand
	Year      int
	Template  TemplateID
	Heading   string
	Preheader string
	Greeting  string
	Message   string
	Number    string
	Rows      []Row
	Total     string
	Primary   Action
	Secondary Action
	Urgency   Urgency
	Notes     string
}

type viewBuilder struct {
	brand  Brand
	portal string
	format *i18n.LocaleFormat
	year   int
}

func (b viewBuilder) build(p Payload) (*View, error) {
	v := &View{Brand: b.brand, Year: b.year, Template: p.Template()}

	switch p := p.(type) {
	case EstimatePayload:
		b.estimate(v, p)
	case *EstimatePayload:
		b.estimate(v, *p)
	case InvoicePayload:
		b.invoice(v, p)
	case *InvoicePayload:
		b.invoice(v, *p)
	case PurchaseOrderPayload:
		b.purchaseOrder(v, p)
	case *PurchaseOrderPayload:
		b.purchaseOrder(v, *p)
	case ReceiptPayload:
		b.receipt(v, p)
	case *ReceiptPayload:
		b.receipt(v, *p)
	case ReminderPayload:
		b.reminder(v, p)
	case *ReminderPayload:
		b.reminder(v, *p)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownTemplate, p)
	}

	if v.Greeting == "" {
		v.Greeting = "there"
	}
	return v, nil
}

func (b viewBuilder) estimate(v *View, p EstimatePayload) {
	v.Number = p.EstimateNumber
	v.Greeting = p.CustomerName
	v.Heading = "Estimate " + p.EstimateNumber
	v.Message = fmt.Sprintf("%s has sent you an estimate for your review.", b.brand.Name)
	v.Rows = b.rows(
		b.date("Estimate date", p.IssueDate),
		b.date("Valid until", p.ExpiryDate),
		b.money("Subtotal", p.Subtotal),
		b.money("Tax", p.Tax),
	)
	v.Total = b.format.FormatCurrency(p.Total)
	v.Preheader = fmt.Sprintf("Estimate %s for %s", p.EstimateNumber, v.Total)
	v.Primary = Action{Label: "View Estimate", URL: b.portalURL("estimate", p.Token, "")}
	v.Secondary = Action{Label: "Accept Estimate", URL: b.portalURL("estimate", p.Token, "accept")}
	v.Notes = sanitizer.StripTags(p.Notes)
}

func (b viewBuilder) invoice(v *View, p InvoicePayload) {
	v.Number = p.InvoiceNumber
	v.Greeting = p.CustomerName
	v.Heading = "Invoice " + p.InvoiceNumber
	v.Message = fmt.Sprintf("Here is your invoice from %s.", b.brand.Name)
	rows := []Row{
		b.date("Invoice date", p.IssueDate),
		b.date("Due date", p.DueDate),
		b.money("Subtotal", p.Subtotal),
		b.money("Tax", p.Tax),
	}
	if p.AmountPaid > 0 {
		rows = append(rows, b.money("Amount paid", p.AmountPaid))
	}
	rows = append(rows, b.money("Balance due", p.Balance))
	v.Rows = b.rows(rows...)
	v.Total = b.format.FormatCurrency(p.Total)
	v.Preheader = fmt.Sprintf("Invoice %s for %s", p.InvoiceNumber, v.Total)
	v.Primary = Action{Label: "View Invoice", URL: b.portalURL("invoice", p.Token, "")}
	if p.Balance > 0 {
		v.Secondary = Action{Label: "Pay Now", URL: b.portalURL("invoice", p.Token, "pay")}
	}
	v.Notes = sanitizer.StripTags(p.Notes)
}

func (b viewBuilder) purchaseOrder(v *View, p PurchaseOrderPayload) {
	v.Number = p.PONumber
	v.Greeting = p.VendorName
	v.Heading = "Purchase Order " + p.PONumber
	v.Message = fmt.Sprintf("%s has issued a purchase order.", b.brand.Name)
	v.Rows = b.rows(
		b.date("Order date", p.IssueDate),
		b.date("Delivery date", p.DeliveryDate),
		b.money("Subtotal", p.Subtotal),
		b.money("Tax", p.Tax),
	)
	v.Total = b.format.FormatCurrency(p.Total)
	v.Preheader = fmt.Sprintf("Purchase order %s for %s", p.PONumber, v.Total)
	v.Primary = Action{Label: "View Purchase Order", URL: b.portalURL("po", p.Token, "")}
	v.Notes = sanitizer.StripTags(p.Notes)
}

func (b viewBuilder) receipt(v *View, p ReceiptPayload) {
	v.Number = p.InvoiceNumber
	if p.ReceiptNumber != "" {
		v.Number = p.ReceiptNumber
	}
	v.Greeting = p.CustomerName
	v.Heading = "Payment Received"
	v.Message = fmt.Sprintf("Thank you! We received your payment for invoice %s.", p.InvoiceNumber)
	v.Rows = b.rows(
		Row{Label: "Invoice", Value: p.InvoiceNumber},
		b.date("Payment date", p.PaymentDate),
		Row{Label: "Payment method", Value: p.PaymentMethod},
		b.money("Remaining balance", p.Balance),
	)
	v.Total = b.format.FormatCurrency(p.Amount)
	v.Preheader = fmt.Sprintf("Payment of %s received", v.Total)
	if p.Token != "" {
		v.Primary = Action{Label: "View Invoice", URL: b.portalURL("invoice", p.Token, "")}
	}
}

func (b viewBuilder) reminder(v *View, p ReminderPayload) {
	v.Number = p.DocumentNumber
	v.Greeting = p.CustomerName
	v.Total = b.format.FormatCurrency(p.Amount)
	date := b.formatDate(p.DueDate)

	switch p.ReminderType {
	case ReminderEstimateExpiring:
		v.Heading = "Your estimate expires soon"
		v.Message = fmt.Sprintf("Estimate %s expires on %s. Review it before it lapses.", p.DocumentNumber, date)
		v.Primary = Action{Label: "Review Estimate", URL: b.portalURL("estimate", p.Token, "")}
		v.Urgency = UrgencyNotice
		v.Rows = b.rows(Row{Label: "Estimate", Value: p.DocumentNumber}, b.date("Expires", p.DueDate))
	case ReminderInvoiceDue:
		v.Heading = "Payment reminder"
		v.Message = fmt.Sprintf("Invoice %s is due on %s.", p.DocumentNumber, date)
		v.Primary = Action{Label: "Pay Now", URL: b.portalURL("invoice", p.Token, "")}
		v.Urgency = UrgencyWarning
		v.Rows = b.rows(Row{Label: "Invoice", Value: p.DocumentNumber}, b.date("Due date", p.DueDate))
	case ReminderInvoiceOverdue:
		v.Heading = "Invoice overdue"
		v.Message = fmt.Sprintf("Invoice %s is %s overdue. Please pay as soon as possible.", p.DocumentNumber, days(p.DaysOverdue))
		v.Primary = Action{Label: "Pay Now", URL: b.portalURL("invoice", p.Token, "")}
		v.Urgency = UrgencyUrgent
		v.Rows = b.rows(Row{Label: "Invoice", Value: p.DocumentNumber}, b.date("Was due", p.DueDate))
	}
	v.Preheader = v.Heading
}

func (b viewBuilder) portalURL(kind, token, action string) string {
	u := strings.TrimRight(b.portal, "/") + "/portal/" + kind + "/" + url.PathEscape(token)
	if action != "" {
		u += "?action=" + action
	}
	return u
}

func (b viewBuilder) money(label string, amount float64) Row {
	return Row{Label: label, Value: b.format.FormatCurrency(amount)}
}

func (b viewBuilder) date(label string, d Date) Row {
	return Row{Label: label, Value: b.formatDate(d)}
}

func (b viewBuilder) formatDate(d Date) string {
	if d.IsZero() {
		return ""
	}
	return b.format.FormatLongDate(d.Time)
}

// rows drops lines without a value.
func (b viewBuilder) rows(in ...Row) []Row {
	out := make([]Row, 0, len(in))
	for _, r := range in {
		if r.Value != "" {
			out = append(out, r)
		}
	}
	return out
}

// markdown returns a copy of v with caller text escaped for the markdown
// source. URLs and action labels are left as is; portalURL path-escapes
// tokens and labels are fixed strings.
func (v *View) markdown() *View {
	c := *v
	c.Brand.Name = escapeMarkdown(v.Brand.Name)
	c.Heading = escapeMarkdown(v.Heading)
	c.Greeting = escapeMarkdown(v.Greeting)
	c.Message = escapeMarkdown(v.Message)
	c.Number = escapeMarkdown(v.Number)
	c.Total = escapeMarkdown(v.Total)
	c.Notes = escapeMarkdown(v.Notes)
	c.Rows = make([]Row, len(v.Rows))
	for i, r := range v.Rows {
		c.Rows[i] = Row{Label: escapeMarkdown(r.Label), Value: escapeMarkdown(r.Value)}
	}
	return &c
}

const markdownPunct = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// escapeMarkdown backslash-escapes ASCII punctuation and folds line breaks
// so s renders as literal inline text.
func escapeMarkdown(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	b.Grow(len(s) + len(s)/4)
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r':
			b.WriteByte(' ')
		case r < 0x80 && strings.ContainsRune(markdownPunct, r):
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func days(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
