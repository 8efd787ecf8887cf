package shared

import (
	"errors"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// FormErrors maps a form field name to a human readable message.
type FormErrors map[string]string

const passwordSpecials = "~!@#$%^&*_+()[]{}<>\\/|\"'.,:;"

// NewValidator returns a validator that reports fields by their `form` tag
// and understands the `password` rule.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return PasswordProblem(fl.Field().String()) == ""
	})
	return v
}

// PasswordProblem describes why password violates the password policy, or
// returns "" for an acceptable password.
func PasswordProblem(password string) string {
	if password == "" {
		return "Password is required"
	}
	n := utf8.RuneCountInString(password)
	if n < 8 {
		return "Password must be at least 8 characters long"
	}
	if n > 128 {
		return "Password must be at most 128 characters long"
	}
	var lower, upper, digit bool
	for _, r := range password {
		switch {
		case unicode.IsSpace(r):
			return "Password must not contain spaces"
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case unicode.Is(unicode.Cyrillic, r) && unicode.IsLetter(r):
		case strings.ContainsRune(passwordSpecials, r):
		default:
			return "Password contains forbidden characters"
		}
	}
	switch {
	case !lower:
		return "Password must contain a lowercase letter"
	case !upper:
		return "Password must contain an uppercase letter"
	case !digit:
		return "Password must contain a digit"
	}
	return ""
}

// ValidationErrors converts a validator error into FormErrors. Errors of any
// other type are returned under the "general" key.
func ValidationErrors(err error) FormErrors {
	out := FormErrors{}
	if err == nil {
		return out
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["general"] = err.Error()
		return out
	}
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		out[fe.Field()] = messageFor(fe)
	}
	return out
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return "Must be at least " + fe.Param() + " characters long"
	case "max":
		return "Must be at most " + fe.Param() + " characters long"
	case "alphanum":
		return "Only latin letters and digits are allowed"
	case "alphaunicode":
		return "Only letters are allowed"
	case "eqfield":
		return "Passwords do not match"
	case "password":
		return PasswordProblem(fe.Value().(string))
	case "gt":
		return "Select a value"
	default:
		return "Invalid value"
	}
}
