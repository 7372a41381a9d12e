package handler

import "github.com/go-playground/validator/v10"

// Validator adapts go-playground/validator to echo's Validator
// interface. Handlers run c.Validate(dto) after binding and map any
// error to a 400 response.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

func (v *Validator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}
