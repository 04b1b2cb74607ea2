package mailer

import (
	"errors"
	"strings"
)

// Message is a composition request: recipients, caller subject and payload.
type Message struct {
	To      []string
	CC      []string
	BCC     []string
	Subject string
	Payload Payload
}

// Composer renders payloads into ready-to-send emails.
type Composer struct {
	renderer *Renderer
	config   Config
}

// NewComposer creates a composer backed by r.
func NewComposer(r *Renderer, cfg Config) *Composer {
	return &Composer{renderer: r, config: cfg}
}

// Renderer returns the underlying renderer.
func (c *Composer) Renderer() *Renderer {
	return c.renderer
}

// Compose renders msg.Payload and builds the Email.
// Subject resolution: msg.Subject, then template frontmatter, then the
// configured fallback.
func (c *Composer) Compose(msg Message) (*Email, error) {
	if len(msg.To) == 0 {
		return nil, ErrNoRecipient
	}

	res, err := c.renderer.Render(msg.Payload)
	if err != nil {
		if errors.Is(err, ErrUnknownTemplate) || errors.Is(err, ErrInvalidPayload) {
			return nil, err
		}
		return nil, errors.Join(ErrRenderFailed, err)
	}

	subject := strings.TrimSpace(msg.Subject)
	if subject == "" {
		subject = res.Subject
	}
	if subject == "" {
		subject = c.config.FallbackSubject
	}

	return &Email{
		Tags:    Tags{"template": string(msg.Payload.Template())},
		Subject: subject,
		HTML:    res.HTML,
		Text:    res.Text,
		To:      msg.To,
		CC:      msg.CC,
		BCC:     msg.BCC,
	}, nil
}
