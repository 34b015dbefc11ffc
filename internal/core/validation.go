package core

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is shared by every request type in this package. Field errors are
// reported under their JSON names.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateRequest runs struct validation and turns the first failure into an
// InvalidRequest error.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &Error{Kind: KindInvalidRequest, Message: "invalid request", Err: err}
	}

	var missing []string
	for _, fe := range fieldErrs {
		if fe.Tag() != "required" {
			return &Error{Kind: KindInvalidRequest, Message: fe.Field() + " is invalid", Err: err}
		}
		missing = append(missing, fe.Field())
	}
	msg := missing[0] + " is required"
	if len(missing) > 1 {
		msg = strings.Join(missing, " and ") + " are required"
	}
	return &Error{Kind: KindInvalidRequest, Message: msg, Err: err}
}
