package guard

import "errors"

var (
	ErrInvalidAddress    = errors.New("guard: invalid email address")
	ErrSuppressionLookup = errors.New("guard: suppression lookup failed")
	ErrSuppressionWrite  = errors.New("guard: suppression write failed")
	ErrLimiterFailed     = errors.New("guard: rate limiter failed")
	ErrCacheFailed       = errors.New("guard: suppression cache failed")
)
