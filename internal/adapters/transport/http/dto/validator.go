package dto

import (
	"errors"
	"reflect"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	customErrors "github.com/peitalin/dt-auth-service/internal/domain/user/errors"
)

// NewValidator returns a validator that reports JSON field names and knows
// two extra rules: strongpwd (at least 8 runes, one upper case letter and
// one digit) and nocontrol (no control characters).
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("strongpwd", strongPassword)
	_ = v.RegisterValidation("nocontrol", noControl)
	return v
}

func strongPassword(fl validator.FieldLevel) bool {
	pwd := fl.Field().String()
	if utf8.RuneCountInString(pwd) < 8 || len(pwd) > 256 {
		return false
	}
	var hasUpper, hasDigit bool
	for _, r := range pwd {
		if unicode.IsUpper(r) {
			hasUpper = true
		}
		if unicode.IsDigit(r) {
			hasDigit = true
		}
	}
	return hasUpper && hasDigit
}

func noControl(fl validator.FieldLevel) bool {
	return !strings.ContainsFunc(fl.Field().String(), unicode.IsControl)
}

// FieldErrors maps JSON field names to the rule they failed. It matches
// customErrors.ErrInvalidArgument.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	parts := make([]string, 0, len(f))
	for field, rule := range f {
		parts = append(parts, field+": "+rule)
	}
	sort.Strings(parts)
	return "invalid fields: " + strings.Join(parts, "; ")
}

func (f FieldErrors) Unwrap() error { return customErrors.ErrInvalidArgument }

// Validate runs v over s and turns validator output into FieldErrors.
func Validate(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return customErrors.NewInvalidArgument("invalid request")
	}
	fields := make(FieldErrors, len(ve))
	for _, fe := range ve {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		fields[fe.Field()] = rule
	}
	return fields
}
