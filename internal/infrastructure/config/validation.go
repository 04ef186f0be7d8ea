package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground/validator for struct-tag validation.
type Validator struct {
	validate *validator.Validate
}

// NewValidator builds a Validator with the tags used across the config
// structs (required, required_if, oneof, url, min/max).
func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// Validate validates i against its `validate` struct tags.
func (v *Validator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return v.formatValidationError(err)
	}
	return nil
}

func (v *Validator) formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		messages := make([]string, 0, len(validationErrs))
		for _, e := range validationErrs {
			messages = append(messages, fmt.Sprintf(
				"field '%s' failed validation: %s (value: '%v')",
				e.Field(), e.Tag(), e.Value(),
			))
		}
		return fmt.Errorf("validation failed:\n  %s", strings.Join(messages, "\n  "))
	}
	return err
}

// ValidateConfig validates the entire configuration.
func ValidateConfig(cfg *Config) error {
	return NewValidator().Validate(cfg)
}
