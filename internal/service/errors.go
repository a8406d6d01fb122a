package service

import (
	"yatube/internal/models"
	"yatube/internal/validation"
)

// invalidForm wraps field errors in a VALIDATION_ERROR AppError.
// validation.AsFieldErrors recovers them for re-rendering the form.
func invalidForm(fields validation.FieldErrors) error {
	return &models.AppError{
		Code:    models.CodeValidation,
		Message: "Invalid form submission",
		Err:     fields,
	}
}

func checkForm(form any) error {
	if err := validation.Struct(form); err != nil {
		if fields, ok := validation.AsFieldErrors(err); ok {
			return invalidForm(fields)
		}
		return models.NewInternalError(err)
	}
	return nil
}
