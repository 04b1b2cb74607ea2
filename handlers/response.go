package handlers

import (
	"github.com/dmitrymomot/mailroom/pkg/outbox"
)

// Response is the body of every email API reply, successful or not.
type Response struct {
	OK         bool   `json:"ok"`
	ID         string `json:"id,omitempty"`
	Status     string `json:"status,omitempty"`
	ProviderID string `json:"provider_id,omitempty"`
	Error      string `json:"error,omitempty"`
	ErrorCode  string `json:"error_code,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
}

// recordResponse reports the state of rec. Queued and sent records are ok;
// a suppressed or failed record carries its stored error.
func recordResponse(rec *outbox.Record) Response {
	resp := Response{
		ID:         rec.ID,
		Status:     rec.Status.String(),
		ProviderID: rec.ProviderMessageID,
	}
	switch rec.Status {
	case outbox.StatusQueued, outbox.StatusSending, outbox.StatusSent:
		resp.OK = true
	default:
		resp.Error = rec.Error
	}
	return resp
}
