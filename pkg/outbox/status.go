package outbox

// Status is the lifecycle state of an outbox record.
type Status string

const (
	StatusQueued      Status = "queued"
	StatusSending     Status = "sending"
	StatusSent        Status = "sent"
	StatusFailed      Status = "failed"
	StatusSuppressed  Status = "suppressed"
	StatusRateLimited Status = "rate_limited"
)

// transitions lists the states each status may move to.
// Nothing ever moves back to queued. failed -> sending is an out-of-band re-attempt.
var transitions = map[Status][]Status{
	StatusQueued:  {StatusSending},
	StatusSending: {StatusSent, StatusFailed},
	StatusFailed:  {StatusSending},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusSending, StatusSent, StatusFailed, StatusSuppressed, StatusRateLimited:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// CanTransition reports whether a record may move from s to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Status) String() string {
	return string(s)
}
