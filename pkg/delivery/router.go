package delivery

import (
	"strings"

	"github.com/dmitrymomot/mailroom/pkg/mailer"
)

// Category selects the sender identity for a message.
type Category string

const (
	CategoryAuto    Category = ""
	CategoryBilling Category = "billing"
	CategoryDefault Category = "default"
)

// ParseCategory parses a wire value. Empty input means CategoryAuto.
func ParseCategory(s string) (Category, bool) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryAuto, CategoryBilling, CategoryDefault:
		return c, true
	}
	return "", false
}

// Identity is a sender address with an optional display name.
type Identity struct {
	Name  string `env:"NAME"`
	Email string `env:"EMAIL"`
}

// String formats the identity as an RFC 5322 address.
func (i Identity) String() string {
	return mailer.Recipient(i.Name, i.Email)
}

func (i Identity) empty() bool {
	return i.Email == ""
}

// billingKeywords route a subject to the billing identity when the caller
// did not pick a category.
var billingKeywords = []string{"invoice", "payment", "receipt"}

// Router picks the sender identity for a message.
type Router struct {
	Default Identity
	Billing Identity
}

// Route returns the identity for subject. An explicit category wins;
// CategoryAuto applies the subject keyword rule. Billing falls back to the
// default identity when none is configured.
func (r Router) Route(subject string, category Category) Identity {
	if category == CategoryAuto {
		category = CategoryDefault
		lower := strings.ToLower(subject)
		for _, kw := range billingKeywords {
			if strings.Contains(lower, kw) {
				category = CategoryBilling
				break
			}
		}
	}

	if category == CategoryBilling && !r.Billing.empty() {
		return r.Billing
	}
	return r.Default
}
