package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared across repositories and services.
var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUniqueViolation = errors.New("unique violation")
)

// ErrorKind classifies a gateway failure so callers can branch on it without
// inspecting driver messages.
type ErrorKind int

const (
	KindRemoteRead ErrorKind = iota + 1
	KindRemoteWrite
	KindUniqueViolation
	KindNotFound
	KindValidation
)

func (k ErrorKind) String() string {
	switch k {
	case KindRemoteRead:
		return "remote_read"
	case KindRemoteWrite:
		return "remote_write"
	case KindUniqueViolation:
		return "unique_violation"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// RemoteError is returned by the storage gateway. Op names the failed
// operation (e.g. "event_participants.insert").
type RemoteError struct {
	Op   string
	Kind ErrorKind
	Err  error
}

func (e *RemoteError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrNotFound) and errors.Is(err, ErrUniqueViolation)
// match on the kind.
func (e *RemoteError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrUniqueViolation:
		return e.Kind == KindUniqueViolation
	}
	return false
}

// KindOf returns the kind of a RemoteError anywhere in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Kind
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return KindValidation
	}
	return 0
}

// FieldError is a single field's validation failure.
type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"message"`
}

func (e FieldError) Error() string { return e.Field + ": " + e.Msg }

// ValidationError collects client-side validation failures. It is produced
// before any gateway call is made.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Error())
	}
	return strings.Join(msgs, "; ")
}

// Is makes errors.Is(err, ErrInvalidInput) true for validation failures.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Msg: msg}}}
}

// OrNil returns nil when no field failed, so callers can return it directly.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Msg: msg})
}
