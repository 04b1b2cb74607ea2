// Package resend delivers mail through the Resend API.
package resend

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/resend/resend-go/v3"

	"github.com/dmitrymomot/mailroom/pkg/mailer"
)

// ErrEmptyMessageID is returned when Resend accepts a message without an id.
var ErrEmptyMessageID = errors.New("resend: provider returned empty message id")

// EmailsAPI is the part of the Resend client the sender uses.
type EmailsAPI interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Sender implements mailer.Sender using the Resend API.
type Sender struct {
	emails EmailsAPI
	config Config
}

// New creates a Resend sender.
func New(cfg Config) *Sender {
	return NewWithClient(cfg, resend.NewClient(cfg.APIKey).Emails)
}

// NewWithClient creates a sender with a custom emails client.
func NewWithClient(cfg Config, emails EmailsAPI) *Sender {
	return &Sender{emails: emails, config: cfg}
}

// Send implements mailer.Sender and returns the Resend message id.
func (s *Sender) Send(ctx context.Context, email *mailer.Email) (string, error) {
	from := email.From
	if from == "" {
		from = mailer.Recipient(s.config.FromName, s.config.FromEmail)
	}

	req := &resend.SendEmailRequest{
		From:    from,
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTML,
		Text:    email.Text,
		ReplyTo: email.ReplyTo,
		Cc:      email.CC,
		Bcc:     email.BCC,
		Headers: email.Headers,
	}
	if len(email.Attachments) > 0 {
		req.Attachments = attachments(email.Attachments)
	}
	if len(email.Tags) > 0 {
		req.Tags = tags(email.Tags)
	}

	resp, err := s.emails.SendWithContext(ctx, req)
	if err != nil {
		return "", fmt.Errorf("resend: send: %w", err)
	}
	if resp == nil || resp.Id == "" {
		return "", ErrEmptyMessageID
	}
	return resp.Id, nil
}

func attachments(in []mailer.Attachment) []*resend.Attachment {
	out := make([]*resend.Attachment, len(in))
	for i, a := range in {
		out[i] = &resend.Attachment{
			Filename:    a.Filename,
			Content:     a.Content,
			ContentType: a.ContentType,
			ContentId:   a.ContentID,
		}
	}
	return out
}

func tags(in mailer.Tags) []resend.Tag {
	out := make([]resend.Tag, 0, len(in))
	for name, v := range in {
		out = append(out, resend.Tag{Name: name, Value: tagValue(v)})
	}
	return out
}

// tagValue renders a tag value; presence-only tags become "true".
func tagValue(v any) string {
	switch val := v.(type) {
	case nil, struct{}:
		return "true"
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
