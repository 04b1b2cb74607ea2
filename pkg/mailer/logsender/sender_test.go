package logsender_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mailroom/pkg/mailer"
	"github.com/dmitrymomot/mailroom/pkg/mailer/logsender"
)

func TestSender_Send(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := logsender.New(slog.New(slog.NewJSONHandler(&buf, nil)), logsender.WithBody())

	msgID, err := s.Send(context.Background(), &mailer.Email{
		From:    "hello@acme.test",
		To:      []string{"jane@acme.com"},
		Subject: "Estimate EST-1",
		Text:    "See your estimate",
	})
	require.NoError(t, err)
	assert.Regexp(t, `^log-[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`, msgID)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "email sent to log", rec["msg"])
	assert.Equal(t, msgID, rec["message_id"])
	assert.Equal(t, "Estimate EST-1", rec["subject"])
	assert.Equal(t, "See your estimate", rec["text"])
}

func TestSender_SendInvalid(t *testing.T) {
	t.Parallel()

	s := logsender.New(slog.New(slog.DiscardHandler))
	_, err := s.Send(context.Background(), &mailer.Email{Subject: "x", Text: "y"})
	require.ErrorIs(t, err, mailer.ErrNoRecipient)
}
