package ses

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"maps"
	"mime"
	"mime/multipart"
	"net/textproto"
	"slices"
	"strings"

	"github.com/dmitrymomot/mailroom/pkg/mailer"
)

// buildRawMessage writes a multipart/mixed message: one multipart/alternative
// part with the text and HTML bodies followed by the attachments.
func buildRawMessage(email *mailer.Email) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "From: %s\r\n", email.From)
	if len(email.To) > 0 {
		fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(email.To, ", "))
	}
	if len(email.CC) > 0 {
		fmt.Fprintf(&buf, "Cc: %s\r\n", strings.Join(email.CC, ", "))
	}
	if email.ReplyTo != "" {
		fmt.Fprintf(&buf, "Reply-To: %s\r\n", email.ReplyTo)
	}
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", email.Subject))
	for _, k := range slices.Sorted(maps.Keys(email.Headers)) {
		fmt.Fprintf(&buf, "%s: %s\r\n", textproto.CanonicalMIMEHeaderKey(k), email.Headers[k])
	}
	buf.WriteString("MIME-Version: 1.0\r\n")

	mixed := multipart.NewWriter(&buf)
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mixed.Boundary())

	if err := writeBodies(mixed, email); err != nil {
		return nil, err
	}

	for _, att := range email.Attachments {
		h := make(textproto.MIMEHeader)
		ct := att.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		h.Set("Content-Transfer-Encoding", "base64")
		h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", mime.QEncoding.Encode("UTF-8", att.Filename)))
		if att.ContentID != "" {
			h.Set("Content-ID", "<"+att.ContentID+">")
		}
		part, err := mixed.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("create attachment part: %w", err)
		}
		if _, err := part.Write([]byte(encodeBase64Lines(att.Content))); err != nil {
			return nil, err
		}
	}

	if err := mixed.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeBodies(mixed *multipart.Writer, email *mailer.Email) error {
	var inner bytes.Buffer
	alt := multipart.NewWriter(&inner)

	for _, b := range []struct{ ctype, body string }{
		{"text/plain; charset=UTF-8", email.Text},
		{"text/html; charset=UTF-8", email.HTML},
	} {
		if b.body == "" {
			continue
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Type", b.ctype)
		h.Set("Content-Transfer-Encoding", "base64")
		part, err := alt.CreatePart(h)
		if err != nil {
			return fmt.Errorf("create body part: %w", err)
		}
		if _, err := part.Write([]byte(encodeBase64Lines([]byte(b.body)))); err != nil {
			return err
		}
	}
	if err := alt.Close(); err != nil {
		return err
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Type", "multipart/alternative; boundary="+alt.Boundary())
	part, err := mixed.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create alternative part: %w", err)
	}
	_, err = part.Write(inner.Bytes())
	return err
}

// encodeBase64Lines wraps base64 output at 76 characters (RFC 2045).
func encodeBase64Lines(data []byte) string {
	encoded := base64.StdEncoding.EncodeToString(data)
	lines := make([]string, 0, len(encoded)/76+1)
	for i := 0; i < len(encoded); i += 76 {
		lines = append(lines, encoded[i:min(i+76, len(encoded))])
	}
	return strings.Join(lines, "\r\n")
}
