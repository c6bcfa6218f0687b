package wire

import (
	"errors"

	"github.com/lair-chat/lair-chat-server/internal/apperr"
)

// ErrorDTO is the wire shape of apperr.Error.
type ErrorDTO struct {
	Code string `json:"code"`
	Message string `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// errorDTOFrom converts any error returned by ChatEngine.Dispatch into its
// wire form. A non-*apperr.Error is a programming mistake somewhere upstream
// (every core operation is documented to return one); it is reported as
// internal_error rather than leaking its message: internal causes must
// never appear in a response's message or details.
func errorDTOFrom(err error) ErrorDTO {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return ErrorDTO{Code: string(appErr.Code), Message: appErr.Message, Details: appErr.Details}
	}
	return ErrorDTO{Code: string(apperr.CodeInternal), Message: "an internal error occurred"}
}
