package mailer

import "errors"

var (
	ErrNoRecipient        = errors.New("mailer: email must have at least one recipient")
	ErrNoSubject          = errors.New("mailer: email must have a subject")
	ErrNoContent          = errors.New("mailer: email must have content")
	ErrUnknownTemplate    = errors.New("mailer: unknown template")
	ErrInvalidPayload     = errors.New("mailer: invalid payload")
	ErrTemplateNotFound   = errors.New("mailer: template not found")
	ErrLayoutNotFound     = errors.New("mailer: layout not found")
	ErrRenderFailed       = errors.New("mailer: failed to render template")
	ErrInvalidFrontmatter = errors.New("mailer: invalid frontmatter")
)
