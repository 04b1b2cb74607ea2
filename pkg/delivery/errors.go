package delivery

import "errors"

var (
	ErrSendFailed      = errors.New("delivery: send failed")
	ErrNoRecipient     = errors.New("delivery: no valid recipient")
	ErrNoSender        = errors.New("delivery: no sender identity configured")
	ErrInvalidSchedule = errors.New("delivery: invalid retry schedule")
)

// PermanentError marks a provider failure that retrying cannot fix,
// such as a rejected address or a malformed message.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return "permanent: " + e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err so the retry policy stops immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
