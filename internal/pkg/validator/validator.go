package validator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
}

// FieldError is a single violated rule, keyed by the JSON field name.
type FieldError struct {
	Field string
	Tag   string
	Param string
}

// RegisterStringRule adds a custom tag that checks string fields with fn.
// Must be called from init, before any Validate call.
func RegisterStringRule(tag string, fn func(string) bool) {
	err := validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return fn(fl.Field().String())
	})
	if err != nil {
		panic(err)
	}
}

// Validate struct fields. Every field is checked; the first failing tag of each
// field is reported, in struct order.
func Validate(v interface{}) []FieldError {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "", Tag: "invalid"}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field: fe.Field(),
			Tag:   fe.Tag(),
			Param: fe.Param(),
		})
	}
	return out
}
