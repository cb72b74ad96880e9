package http_common

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// Rest result codes. Every response body carries exactly one of them.
const (
	CodeOk              = "Ok"
	CodeUnexpectedError = "UnexpectedError"
	CodeUnauthorized    = "Unauthorized"
	CodeNotAllowed      = "NotAllowed"
	CodeNotFound        = "NotFound"
	CodeValidationError = "ValidationError"
	CodeWrongSecretCode = "WrongSecretCode"
	CodeLoginIsBusy     = "LoginIsBusy"
)

type StandardResponse struct {
	ResultCode string `json:"resultCode"`
}

func Ok() StandardResponse {
	return StandardResponse{ResultCode: CodeOk}
}

func Fail(code string) StandardResponse {
	return StandardResponse{ResultCode: code}
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationErrorResponse struct {
	StandardResponse
	ValidationErrors []ValidationError `json:"validationErrors"`
}

func NewValidationErrorResponse(validationErrors []ValidationError) ValidationErrorResponse {
	return ValidationErrorResponse{
		StandardResponse: Fail(CodeValidationError),
		ValidationErrors: validationErrors,
	}
}

// FromBindingError converts a gin binding failure into the field-level
// validation payload. Non-validator failures (malformed json and the
// like) are reported against the whole body.
func FromBindingError(err error) ValidationErrorResponse {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return NewValidationErrorResponse([]ValidationError{
			{Field: "body", Message: "invalid request format"},
		})
	}

	fields := make([]ValidationError, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		fields = append(fields, ValidationError{
			Field:   lowerFirst(fieldError.Field()),
			Message: "failed on rule: " + fieldError.Tag(),
		})
	}
	return NewValidationErrorResponse(fields)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}
