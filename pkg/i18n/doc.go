// Package i18n formats money and dates for rendered documents.
//
// Outgoing emails are rendered with one fixed locale so the same payload
// always produces the same bytes:
//
//	f := i18n.FormatEnUS()
//	f.FormatCurrency(1130)                 // "$1,130.00"
//	f.FormatLongDate(time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)) // "January 31, 2025"
package i18n
