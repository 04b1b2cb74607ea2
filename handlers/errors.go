package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/mailroom"
	"github.com/dmitrymomot/mailroom/middlewares"
	"github.com/dmitrymomot/mailroom/pkg/dispatch"
	"github.com/dmitrymomot/mailroom/pkg/logger"
	"github.com/dmitrymomot/mailroom/pkg/outbox"
)

// Error codes returned in the error_code field.
const (
	CodeMissingField     = "missing_field"
	CodeInvalidRecipient = "invalid_recipient"
	CodeUnknownTemplate  = "unknown_template"
	CodeInvalidPayload   = "invalid_payload"
	CodeInvalidCategory  = "invalid_category"
	CodeInvalidJSON      = "invalid_json"
	CodeRateLimited      = "rate_limited"
	CodeNotFound         = "not_found"
	CodeNotDeliverable   = "not_deliverable"
	CodeSendFailed       = "send_failed"
	CodeUnavailable      = "unavailable"
	CodeTimeout          = "timeout"
	CodeInternal         = "internal"
)

// ErrorHandler renders every handler error as a JSON Response. Unknown
// errors become a generic 500 and are logged with their cause.
func ErrorHandler(log *slog.Logger) mailroom.ErrorHandler {
	if log == nil {
		log = logger.NewNope()
	}
	return func(c mailroom.Context, err error) error {
		httpErr := toHTTPError(err)
		if httpErr.RequestID == "" {
			httpErr.RequestID = middlewares.GetRequestID(c)
		}

		if httpErr.Code >= http.StatusInternalServerError {
			log.ErrorContext(c.Context(), "request failed",
				slog.String("method", c.Request().Method),
				slog.String("path", c.Request().URL.Path),
				slog.Int("status", httpErr.Code),
				slog.Any("error", err),
			)
		}

		return c.JSON(httpErr.Code, Response{
			OK:        false,
			ID:        httpErr.ID,
			Status:    httpErr.Status,
			Error:     httpErr.Message,
			ErrorCode: httpErr.ErrorCode,
			RequestID: httpErr.RequestID,
		})
	}
}

func toHTTPError(err error) *mailroom.HTTPError {
	if httpErr := mailroom.AsHTTPError(err); httpErr != nil {
		return httpErr
	}

	var fieldErr *dispatch.FieldError
	switch {
	case errors.As(err, &fieldErr) && errors.Is(err, dispatch.ErrMissingField):
		return mailroom.ErrBadRequest("Missing required field: "+fieldErr.Field,
			mailroom.WithErrorCode(CodeMissingField), mailroom.WithError(err))
	case errors.Is(err, dispatch.ErrMissingField):
		return mailroom.ErrBadRequest("Missing required field",
			mailroom.WithErrorCode(CodeMissingField), mailroom.WithError(err))
	case errors.Is(err, dispatch.ErrInvalidRecipient):
		return mailroom.ErrBadRequest("No valid recipient address",
			mailroom.WithErrorCode(CodeInvalidRecipient), mailroom.WithError(err))
	case errors.Is(err, dispatch.ErrUnknownTemplate):
		return mailroom.ErrBadRequest(err.Error(),
			mailroom.WithErrorCode(CodeUnknownTemplate), mailroom.WithError(err))
	case errors.Is(err, dispatch.ErrInvalidPayload):
		return mailroom.ErrBadRequest(err.Error(),
			mailroom.WithErrorCode(CodeInvalidPayload), mailroom.WithError(err))
	case errors.Is(err, dispatch.ErrInvalidCategory):
		return mailroom.ErrBadRequest("Invalid sender_category",
			mailroom.WithErrorCode(CodeInvalidCategory), mailroom.WithError(err))
	case errors.Is(err, mailroom.ErrEmptyBody):
		return bindError(err)
	case errors.Is(err, dispatch.ErrRateLimited):
		return mailroom.ErrTooManyRequests("Rate limit exceeded",
			mailroom.WithErrorCode(CodeRateLimited), mailroom.WithError(err))
	case errors.Is(err, dispatch.ErrRecordNotFound), errors.Is(err, outbox.ErrNotFound):
		return mailroom.ErrNotFound("Email not found",
			mailroom.WithErrorCode(CodeNotFound), mailroom.WithError(err))
	case errors.Is(err, dispatch.ErrNotDeliverable):
		return mailroom.ErrConflict("Email is not in a deliverable state",
			mailroom.WithErrorCode(CodeNotDeliverable), mailroom.WithError(err))
	case errors.Is(err, dispatch.ErrGuardUnavailable):
		return mailroom.ErrServiceUnavailable("Suppression list unavailable",
			mailroom.WithErrorCode(CodeUnavailable), mailroom.WithError(err))
	case errors.Is(err, dispatch.ErrSendFailed):
		return mailroom.ErrInternal("Failed to send email",
			mailroom.WithErrorCode(CodeSendFailed), mailroom.WithError(err))
	case middlewares.IsTimeoutError(err):
		return mailroom.ErrGatewayTimeout("Request timed out",
			mailroom.WithErrorCode(CodeTimeout), mailroom.WithError(err))
	default:
		return mailroom.ErrInternal("Internal server error",
			mailroom.WithErrorCode(CodeInternal), mailroom.WithError(err))
	}
}

// bindError reports a request body that could not be decoded.
func bindError(err error) *mailroom.HTTPError {
	return mailroom.ErrBadRequest("Request body must be valid JSON",
		mailroom.WithErrorCode(CodeInvalidJSON), mailroom.WithError(err))
}
