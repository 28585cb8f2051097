package validators

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// DecodeJSONBody strictly decodes a JSON object of at most 1 MiB into dest
// and then runs its validate tags. Every failure is a CodeValidation error.
func DecodeJSONBody(r *http.Request, dest any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return errBodyRequired()
	}
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	defer func() {
		_, _ = io.Copy(io.Discard, body)
	}()

	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return decodeError(err)
	}
	return ValidateStruct(dest)
}

func errBodyRequired() error {
	return pkgerrors.New(pkgerrors.CodeValidation, "request body is required")
}

// decodeError maps decoder failures onto client-facing validation details.
func decodeError(err error) error {
	var (
		tooLarge  *http.MaxBytesError
		syntax    *json.SyntaxError
		typeError *json.UnmarshalTypeError
	)
	details := map[string]any{"error": err.Error()}
	switch {
	case errors.Is(err, io.EOF):
		return errBodyRequired()
	case errors.As(err, &tooLarge):
		details = map[string]any{"limit_bytes": tooLarge.Limit}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "request body too large").WithDetails(details)
	case errors.As(err, &syntax):
		details["offset"] = syntax.Offset
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed json").WithDetails(details)
	case errors.As(err, &typeError):
		if typeError.Field != "" {
			details["field"] = typeError.Field
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "wrong type in request body").WithDetails(details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body").WithDetails(details)
}

// ValidateStruct runs the validate tags on an already-populated struct.
func ValidateStruct(dest any) error {
	if err := validate.Struct(dest); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

func formatValidationErrors(err error) *pkgerrors.Error {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		details := map[string]string{}
		for _, fieldErr := range errs {
			details[fieldErr.Field()] = validationMessage(fieldErr)
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email":
		return "must be a valid email"
	case "uuid", "uuid4":
		return "must be a valid uuid"
	case "url", "http_url":
		return "must be a valid url"
	case "dive":
		return "contains an invalid entry"
	}
	return "is invalid"
}
