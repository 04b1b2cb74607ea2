package dispatch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrymomot/mailroom/pkg/address"
	"github.com/dmitrymomot/mailroom/pkg/delivery"
	"github.com/dmitrymomot/mailroom/pkg/mailer"
)

// Request is a caller's send request.
type Request struct {
	Template       string          `json:"template"`
	RefID          string          `json:"ref_id,omitempty"`
	To             address.List    `json:"to"`
	CC             []string        `json:"cc,omitempty"`
	BCC            []string        `json:"bcc,omitempty"`
	Subject        string          `json:"subject"`
	Payload        json.RawMessage `json:"payload"`
	SkipQueue      bool            `json:"skipQueue,omitempty"`
	SenderCategory string          `json:"sender_category,omitempty"`

	// CallerID is resolved from the request credentials, never from the body.
	CallerID string `json:"-"`
}

// validated is a request that passed every check.
type validated struct {
	template mailer.TemplateID
	payload  mailer.Payload
	to       []string
	cc       []string
	bcc      []string
	category delivery.Category
}

// Validate runs the request checks without touching any store:
// required fields, template name, primary recipient, payload shape.
func (r *Request) Validate() error {
	_, err := r.validate()
	return err
}

func (r *Request) validate() (*validated, error) {
	switch {
	case strings.TrimSpace(r.Template) == "":
		return nil, missing("template")
	case len(r.To) == 0:
		return nil, missing("to")
	case strings.TrimSpace(r.Subject) == "":
		return nil, missing("subject")
	case isEmptyJSON(r.Payload):
		return nil, missing("payload")
	}

	tmpl, ok := mailer.LookupTemplate(r.Template)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, r.Template)
	}

	to := address.NormalizeList(r.To)
	if len(to) == 0 {
		return nil, ErrInvalidRecipient
	}

	category, ok := delivery.ParseCategory(r.SenderCategory)
	if !ok {
		return nil, &FieldError{Field: "sender_category", Err: ErrInvalidCategory}
	}

	payload, err := mailer.DecodePayload(tmpl, r.Payload)
	if err != nil {
		return nil, errors.Join(ErrInvalidPayload, err)
	}

	return &validated{
		template: tmpl,
		payload:  payload,
		to:       to,
		cc:       address.NormalizeList(r.CC),
		bcc:      address.NormalizeList(r.BCC),
		category: category,
	}, nil
}

func isEmptyJSON(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
