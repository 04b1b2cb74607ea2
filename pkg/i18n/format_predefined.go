package i18n

// FormatEnUS returns the en-US format used for every outgoing document.
func FormatEnUS() *LocaleFormat {
	return NewLocaleFormat()
}

// FormatEnGB returns the en-GB format.
func FormatEnGB() *LocaleFormat {
	return NewLocaleFormat(
		WithCurrencySymbol("£", false),
		WithDateFormat("02/01/2006"),
		WithLongDateFormat("2 January 2006"),
	)
}

// FormatDeDE returns the de-DE format.
func FormatDeDE() *LocaleFormat {
	return NewLocaleFormat(
		WithDecimalSeparator(","),
		WithThousandSeparator("."),
		WithCurrencySymbol("€", true),
		WithDateFormat("02.01.2006"),
		WithLongDateFormat("2. January 2006"),
	)
}
