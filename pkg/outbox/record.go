package outbox

import (
	"encoding/json"
	"slices"
	"time"
)

// Record is the ledger entry for one logical email.
// Retries of the same email update the record; they never create new ones.
type Record struct {
	ID                string          `json:"id"`
	Template          string          `json:"template"`
	RefID             string          `json:"ref_id,omitempty"`
	CallerID          string          `json:"caller_id,omitempty"`
	Recipient         string          `json:"recipient"`
	To                []string        `json:"to"`
	CC                []string        `json:"cc"`
	BCC               []string        `json:"bcc"`
	Subject           string          `json:"subject"`
	From              string          `json:"from,omitempty"`
	SenderCategory    string          `json:"sender_category,omitempty"`
	Payload           json.RawMessage `json:"payload"`
	Status            Status          `json:"status"`
	ProviderMessageID string          `json:"provider_message_id,omitempty"`
	Error             string          `json:"error,omitempty"`
	RetryCount        int             `json:"retry_count"`
	Attempts          int             `json:"attempts"`
	NextRetryAt       *time.Time      `json:"next_retry_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Clone returns a deep copy so stores never hand out shared slices.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.To = slices.Clone(r.To)
	c.CC = slices.Clone(r.CC)
	c.BCC = slices.Clone(r.BCC)
	c.Payload = slices.Clone(r.Payload)
	if r.NextRetryAt != nil {
		t := *r.NextRetryAt
		c.NextRetryAt = &t
	}
	return &c
}

// NewRecord holds the caller-supplied fields of a record about to be created.
// Addresses must already be normalized. Recipient is the primary address; To
// lists every primary address and defaults to Recipient alone.
type NewRecord struct {
	Template       string
	RefID          string
	CallerID       string
	Recipient      string
	To             []string
	CC             []string
	BCC            []string
	Subject        string
	SenderCategory string
	Payload        json.RawMessage
	Status         Status // queued or suppressed
	Error          string
}
