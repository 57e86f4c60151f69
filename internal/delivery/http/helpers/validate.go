package helpers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"eventhub/internal/domain"

	"github.com/go-playground/validator/v10"
)

// MaxBodyBytes bounds JSON request bodies.
const MaxBodyBytes = 1 << 20

// Validator is implemented by request bodies with rules struct tags cannot
// express. Each message is reported as a "body" field error.
type Validator interface {
	Validate() []string
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// DecodeAndValidate decodes the JSON body into dst, rejecting unknown fields,
// then runs `validate` struct tags and the Validator interface. On failure it
// writes a 400 and returns false.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body: "+err.Error())
		return false
	}
	if err := ValidateStruct(dst); err != nil {
		WriteValidationError(w, err)
		return false
	}
	return true
}

// ValidateStruct runs struct tag and Validator checks on v.
func ValidateStruct(v any) *domain.ValidationError {
	ve := &domain.ValidationError{}
	var verrs validator.ValidationErrors
	if err := validate.Struct(v); errors.As(err, &verrs) {
		for _, fe := range verrs {
			ve.Fields = append(ve.Fields, domain.FieldError{Field: fe.Field(), Msg: tagMessage(fe)})
		}
	}
	if c, ok := v.(Validator); ok {
		for _, msg := range c.Validate() {
			ve.Fields = append(ve.Fields, domain.FieldError{Field: "body", Msg: msg})
		}
	}
	if len(ve.Fields) == 0 {
		return nil
	}
	return ve
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "invalid email format"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return "must be one of: " + fe.Param()
	case "uuid":
		return "must be a UUID"
	case "url":
		return "must be a URL"
	case "gte":
		return "must be at least " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}
