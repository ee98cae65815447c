package service

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/folkout/folkout/internal/apperr"
)

var secretKeyPattern = regexp.MustCompile(`^[1-9][0-9]*\.[0-9a-f]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	err := v.RegisterValidation("secret_key", func(fl validator.FieldLevel) bool {
		return secretKeyPattern.MatchString(fl.Field().String())
	})
	if err != nil {
		panic(fmt.Sprintf("failed to register secret_key validation: %v", err))
	}
	return v
}

// validateRequest checks the struct tags of a request message.
func validateRequest(msg any) error {
	if err := validate.Struct(msg); err != nil {
		return apperr.Validation("invalid request: %v", err)
	}
	return nil
}
