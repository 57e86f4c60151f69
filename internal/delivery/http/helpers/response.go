package helpers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"eventhub/internal/domain"
)

// Error codes carried in APIError.Code.
const (
	ErrCodeBadRequest    = "bad_request"
	ErrCodeUnauthorized  = "unauthorized"
	ErrCodeForbidden     = "forbidden"
	ErrCodeNotFound      = "not_found"
	ErrCodeConflict      = "conflict"
	ErrCodeInternalError = "internal_error"
)

// APIError is the error half of the response envelope.
// swagger:model APIError
type APIError struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  []domain.FieldError `json:"fields,omitempty"`
}

// APIResponse is the envelope every endpoint responds with. Exactly one of
// Data and Error is set.
// swagger:model APIResponse
type APIResponse struct {
	Data  any       `json:"data"`
	Error *APIError `json:"error"`
}

// WriteJSON writes v as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteJSONSuccess writes data in the success envelope.
func WriteJSONSuccess(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, APIResponse{Data: data})
}

// WriteJSONError writes an error envelope.
func WriteJSONError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, APIResponse{Error: &APIError{Code: code, Message: message}})
}

// WriteValidationError writes a 400 listing the failed fields.
func WriteValidationError(w http.ResponseWriter, ve *domain.ValidationError) {
	WriteJSON(w, http.StatusBadRequest, APIResponse{Error: &APIError{
		Code:    ErrCodeBadRequest,
		Message: ve.Error(),
		Fields:  ve.Fields,
	}})
}

// WriteServiceError maps a service error onto its status and code. Anything
// unrecognized is logged and reported as a 500 without its message.
func WriteServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		WriteValidationError(w, ve)
	case errors.Is(err, domain.ErrInvalidInput):
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidCode):
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, domain.ErrInvalidCode.Error())
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrInvalidCredentials):
		WriteJSONError(w, http.StatusUnauthorized, ErrCodeUnauthorized, rootMessage(err, "unauthorized"))
	case errors.Is(err, domain.ErrAccountNotConfirmed), errors.Is(err, domain.ErrForbidden):
		WriteJSONError(w, http.StatusForbidden, ErrCodeForbidden, rootMessage(err, "forbidden"))
	case errors.Is(err, domain.ErrNotFound):
		WriteJSONError(w, http.StatusNotFound, ErrCodeNotFound, "not found")
	case errors.Is(err, domain.ErrDuplicateEmail), errors.Is(err, domain.ErrUsernameUnavailable):
		WriteJSONError(w, http.StatusConflict, ErrCodeConflict, rootMessage(err, "conflict"))
	default:
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		WriteJSONError(w, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
	}
}

// rootMessage returns the message of the first sentinel matched by err.
func rootMessage(err error, fallback string) string {
	for _, s := range []error{
		domain.ErrInvalidCredentials, domain.ErrAccountNotConfirmed, domain.ErrDuplicateEmail,
		domain.ErrUsernameUnavailable, domain.ErrForbidden, domain.ErrUnauthorized,
	} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return fallback
}
