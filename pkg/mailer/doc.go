// Package mailer renders transactional documents into emails.
//
// Each document shape (estimate, invoice, purchase order, receipt,
// reminder) has a typed payload decoded at the boundary with DecodePayload.
// The Renderer builds one View per payload and feeds it to two independent
// templates: <name>.md, converted to HTML with goldmark and wrapped in
// layouts/base.html, and <name>.txt, wrapped in layouts/base.txt. Because
// both read the same View, totals and portal links always agree.
//
// Markdown templates may use button links:
//
//	[!button|Pay Now](https://app.example.com/portal/invoice/abc123)
//	[!button-secondary|Accept](https://app.example.com/portal/estimate/xyz?action=accept)
//
// Delivery is not done here. Providers implement Sender and are driven by
// the delivery package.
package mailer
