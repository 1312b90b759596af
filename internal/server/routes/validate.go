package routes

import (
	"unicode"

	"github.com/go-playground/validator"
)

const minPasswordLength = 8

// RegisterValidations adds the custom tags used by request bodies:
// "strongpassword" requires eight characters with an upper case letter, a
// lower case letter and a digit.
func RegisterValidations(v *validator.Validate) error {
	return v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return StrongPassword(fl.Field().String())
	})
}

func StrongPassword(p string) bool {
	if len(p) < minPasswordLength {
		return false
	}
	var upper, lower, digit bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}
