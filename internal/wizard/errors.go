package wizard

import (
	"errors"

	"promo-wizard/internal/client"
)

const (
	msgGeneric    = "Something went wrong. Please try again."
	msgValidation = "Please fix the highlighted fields."
	msgExpired    = "Your session has expired. Please sign in again."
)

// UserMessage is the toast text for err: the server's message when it sent
// one, otherwise a generic fallback.
func UserMessage(err error) string {
	var (
		verr   *ValidationError
		apiErr *client.APIError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return msgValidation
	case errors.Is(err, client.ErrSessionExpired):
		return msgExpired
	case errors.Is(err, ErrNoPromo), errors.Is(err, ErrWrongFlow):
		return err.Error()
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	default:
		return msgGeneric
	}
}
