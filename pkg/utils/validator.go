package utils

import (
	"github.com/go-playground/validator/v10"
)

type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()

	// Custom validations
	v.RegisterValidation("payment_method", validatePaymentMethod)

	return &Validator{
		validate: v,
	}
}

func (v *Validator) Struct(s interface{}) error {
	return v.validate.Struct(s)
}

func validatePaymentMethod(fl validator.FieldLevel) bool {
	method := fl.Field().String()
	supportedMethods := map[string]bool{
		"upi":    true,
		"cash":   true,
		"online": true,
	}
	return supportedMethods[method]
}
