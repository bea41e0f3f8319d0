package handlers

import (
	"fmt"

	"github.com/BradenHooton/backupsui/internal/backuptool"
	"github.com/go-playground/validator/v10"
)

// ValidationErrorResponse represents a validation error with field-level details
type ValidationErrorResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Global validator instance (reused across all handlers)
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// backupname: a file name exactly as `backup list` reports it
	if err := v.RegisterValidation("backupname", func(fl validator.FieldLevel) bool {
		return backuptool.ValidName(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// ValidateRequest validates a request struct using go-playground/validator
// Returns a user-friendly error message if validation fails
func ValidateRequest(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
			first := ValidationErrorResponse{
				Field:   ve[0].Field(),
				Message: formatValidationError(ve[0]),
			}
			return fmt.Errorf("validation failed: %s: %s", first.Field, first.Message)
		}
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// formatValidationError converts a validator FieldError to a user-friendly message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "backupname":
		return "must be a backup file name"
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}
