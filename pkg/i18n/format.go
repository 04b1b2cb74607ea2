package i18n

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// LocaleFormat renders numbers, money and dates for one fixed locale.
// It is immutable after creation and safe for concurrent use.
type LocaleFormat struct {
	decimalSeparator  string
	thousandSeparator string
	currencySymbol    string
	currencyAfter     bool
	dateFormat        string
	longDateFormat    string
}

// LocaleFormatOption configures a LocaleFormat.
type LocaleFormatOption func(*LocaleFormat)

// NewLocaleFormat returns US English formatting unless overridden.
func NewLocaleFormat(opts ...LocaleFormatOption) *LocaleFormat {
	lf := &LocaleFormat{
		decimalSeparator:  ".",
		thousandSeparator: ",",
		currencySymbol:    "$",
		dateFormat:        "01/02/2006",
		longDateFormat:    "January 2, 2006",
	}
	for _, opt := range opts {
		opt(lf)
	}
	return lf
}

func WithDecimalSeparator(sep string) LocaleFormatOption {
	return func(lf *LocaleFormat) { lf.decimalSeparator = sep }
}

func WithThousandSeparator(sep string) LocaleFormatOption {
	return func(lf *LocaleFormat) { lf.thousandSeparator = sep }
}

// WithCurrencySymbol sets the symbol and whether it follows the amount.
func WithCurrencySymbol(symbol string, after bool) LocaleFormatOption {
	return func(lf *LocaleFormat) {
		lf.currencySymbol = symbol
		lf.currencyAfter = after
	}
}

// WithDateFormat sets the short date layout.
func WithDateFormat(layout string) LocaleFormatOption {
	return func(lf *LocaleFormat) { lf.dateFormat = layout }
}

// WithLongDateFormat sets the long date layout used in documents.
func WithLongDateFormat(layout string) LocaleFormatOption {
	return func(lf *LocaleFormat) { lf.longDateFormat = layout }
}

// FormatNumber formats n with grouping and exactly two decimals.
func (lf *LocaleFormat) FormatNumber(n float64) string {
	cents := int64(math.Round(n * 100))
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}

	frac := strconv.FormatInt(cents%100, 10)
	if len(frac) < 2 {
		frac = "0" + frac
	}
	return sign + lf.group(cents/100) + lf.decimalSeparator + frac
}

// FormatCurrency formats amount as money, e.g. "$1,130.00" or "-$5.50".
func (lf *LocaleFormat) FormatCurrency(amount float64) string {
	num := lf.FormatNumber(amount)
	sign := ""
	if strings.HasPrefix(num, "-") {
		sign, num = "-", num[1:]
	}
	if lf.currencyAfter {
		return sign + num + " " + lf.currencySymbol
	}
	return sign + lf.currencySymbol + num
}

// FormatDate formats t with the short date layout.
func (lf *LocaleFormat) FormatDate(t time.Time) string {
	return t.Format(lf.dateFormat)
}

// FormatLongDate formats t with the long date layout, e.g. "January 31, 2025".
func (lf *LocaleFormat) FormatLongDate(t time.Time) string {
	return t.Format(lf.longDateFormat)
}

func (lf *LocaleFormat) group(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var b strings.Builder
	head := len(s) % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteString(lf.thousandSeparator)
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
