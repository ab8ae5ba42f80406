package models

import "github.com/go-playground/validator/v10"

var validate = validator.New()

// Validate checks the validate tags on a typed record.
func Validate(v any) error {
	return validate.Struct(v)
}
