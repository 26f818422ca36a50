package core

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report json names so errors match what API clients send.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("class", func(fl validator.FieldLevel) bool {
		return ClassCategory(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("month", func(fl validator.FieldLevel) bool {
		return Month(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("paymethod", func(fl validator.FieldLevel) bool {
		return PaymentMethod(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("paytype", func(fl validator.FieldLevel) bool {
		return PaymentType(fl.Field().String()).Valid()
	})
	return v
}

// validateStruct runs the struct tags on s and maps the first failure to
// ErrInvalidInput.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("%w: field %s failed %s", ErrInvalidInput, fe.Field(), describeTag(fe))
	}
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "min", "max":
		return fe.Tag() + "=" + fe.Param()
	case "class":
		return "class (unknown class category)"
	case "month":
		return "month (unknown month label)"
	case "paymethod":
		return "payment method (unknown method)"
	case "paytype":
		return "payment type (unknown type)"
	default:
		return fe.Tag()
	}
}
