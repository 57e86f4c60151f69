package helpers

import (
	"net/http"
	"strconv"
	"time"

	"eventhub/internal/domain"

	"github.com/google/uuid"
)

// QueryInt reads an integer query parameter. Missing means 0.
func QueryInt(r *http.Request, key string) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, domain.NewValidationError(key, "must be an integer")
	}
	return v, nil
}

// QueryTime reads an RFC 3339 timestamp query parameter. Missing means nil.
func QueryTime(r *http.Request, key string) (*time.Time, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, domain.NewValidationError(key, "must be an RFC 3339 timestamp")
	}
	return &t, nil
}

// PathUUID returns the named path value if it is a UUID.
func PathUUID(r *http.Request, name string) (string, error) {
	s := r.PathValue(name)
	if err := uuid.Validate(s); err != nil {
		return "", domain.NewValidationError(name, "must be a UUID")
	}
	return s, nil
}
