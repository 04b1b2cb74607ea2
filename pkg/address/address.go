// Package address normalizes and validates email addresses supplied by callers.
package address

import (
	"encoding/json"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// maxLength is the longest address accepted (RFC 5321 path limit).
const maxLength = 254

// Normalize trims, case-folds and validates a single address.
// Returns the normalized address and true if it has a valid local@domain shape.
func Normalize(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(norm.NFKC.String(s)))
	if !Valid(s) {
		return "", false
	}
	return s, true
}

// NormalizeList normalizes every entry and silently drops the invalid ones.
// Order is preserved and duplicates are kept.
func NormalizeList(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if addr, ok := Normalize(s); ok {
			out = append(out, addr)
		}
	}
	return out
}

// Valid reports whether s already looks like a local@domain address.
// It does not trim or fold case.
func Valid(s string) bool {
	if s == "" || len(s) > maxLength {
		return false
	}
	if strings.ContainsAny(s, " \t\r\n<>()[],;:\"\\") {
		return false
	}

	at := strings.IndexByte(s, '@')
	if at <= 0 || at != strings.LastIndexByte(s, '@') {
		return false
	}

	domain := s[at+1:]
	if !strings.Contains(domain, ".") {
		return false
	}
	for label := range strings.SplitSeq(domain, ".") {
		if label == "" || strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return false
		}
	}
	return true
}

// List is a JSON field that accepts either a single address string or an
// array of address strings. Values are kept as supplied; call NormalizeList
// to clean them.
type List []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *List) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if strings.TrimSpace(single) == "" {
			*l = nil
			return nil
		}
		*l = List{single}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*l = many
	return nil
}
