package goGuard

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const usernameTag = "username"

// newRegistrationValidator returns a validator for RegisterRequest. The
// "username" tag requires an untrimmed value of at least minUsername runes.
func newRegistrationValidator(minUsername int) (*validator.Validate, error) {
	v := validator.New()
	err := v.RegisterValidation(usernameTag, func(fl validator.FieldLevel) bool {
		name := fl.Field().String()
		return strings.TrimSpace(name) == name && utf8.RuneCountInString(name) >= minUsername
	})
	if err != nil {
		return nil, fmt.Errorf("register %q validation: %w", usernameTag, err)
	}
	return v, nil
}

// registrationError maps the first failed field of a RegisterRequest onto the
// engine's error contract.
func registrationError(err error, minUsername int) error {
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	switch fe := fields[0]; fe.StructField() {
	case "Username":
		return validation("username", fmt.Sprintf("Username must be at least %d characters", minUsername))
	case "Email":
		return validation("email", "Please enter a valid email address")
	case "Password":
		return validation("password", "Please choose a password")
	case "ConfirmPassword":
		return ErrPasswordMismatch
	default:
		return validation(strings.ToLower(fe.Field()), "Please check "+fe.Field())
	}
}
