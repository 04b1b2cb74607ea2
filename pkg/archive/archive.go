// Package archive keeps a copy of every delivered message in S3-compatible
// object storage, keyed by outbox record id.
package archive

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"
)

// Entry is one delivered message.
type Entry struct {
	RecordID          string    `json:"record_id"`
	Template          string    `json:"template"`
	ProviderMessageID string    `json:"provider_message_id"`
	From              string    `json:"from"`
	To                []string  `json:"to"`
	Subject           string    `json:"subject"`
	SentAt            time.Time `json:"sent_at"`
	HTML              string    `json:"-"`
	Text              string    `json:"-"`
}

// Part names one stored object of an entry.
type Part string

const (
	PartHTML Part = "message.html"
	PartText Part = "message.txt"
	PartMeta Part = "meta.json"
)

// Archive stores and retrieves delivered messages.
type Archive interface {
	// Store writes the HTML body, the text body and a metadata document.
	Store(ctx context.Context, e Entry) error

	// Open returns one stored part of a record. The caller closes the reader.
	Open(ctx context.Context, recordID string, part Part) (io.ReadCloser, error)
}

var unsafeSegment = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

// segment makes s safe to use as one key path segment.
func segment(s string) string {
	s = strings.Trim(s, " /\\")
	s = strings.ReplaceAll(s, "..", "")
	s = unsafeSegment.ReplaceAllString(s, "_")
	return url.PathEscape(s)
}

// Key returns the object key for a record part: {prefix}/{record id}/{part}.
func Key(prefix, recordID string, part Part) string {
	parts := make([]string, 0, 3)
	if p := segment(prefix); p != "" {
		parts = append(parts, p)
	}
	parts = append(parts, segment(recordID), string(part))
	return path.Join(parts...)
}

func validPart(p Part) error {
	switch p {
	case PartHTML, PartText, PartMeta:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownPart, p)
}
