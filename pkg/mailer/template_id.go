package mailer

import "strings"

// TemplateID names one of the fixed document shapes.
type TemplateID string

const (
	TemplateEstimate      TemplateID = "estimate"
	TemplateInvoice       TemplateID = "invoice"
	TemplatePurchaseOrder TemplateID = "purchase_order"
	TemplateReceipt       TemplateID = "receipt"
	TemplateReminder      TemplateID = "reminder"
)

// Templates lists every known template.
var Templates = []TemplateID{
	TemplateEstimate,
	TemplateInvoice,
	TemplatePurchaseOrder,
	TemplateReceipt,
	TemplateReminder,
}

// LookupTemplate resolves a wire name. "po" is accepted as an alias
// of purchase_order.
func LookupTemplate(name string) (TemplateID, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "po" {
		return TemplatePurchaseOrder, true
	}
	for _, t := range Templates {
		if string(t) == name {
			return t, true
		}
	}
	return "", false
}

func (t TemplateID) String() string {
	return string(t)
}
