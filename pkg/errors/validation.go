package errors

import (
	"net/mail"
	"net/url"
	"strings"
)

// ValidationResult holds validation results
type ValidationResult struct {
	IsValid bool
	Errors  []*AppError
}

// NewValidationResult returns an empty, valid result.
func NewValidationResult() *ValidationResult {
	return &ValidationResult{IsValid: true}
}

// AddError adds an error to the validation result
func (vr *ValidationResult) AddError(err *AppError) {
	vr.IsValid = false
	vr.Errors = append(vr.Errors, err)
}

// Merge appends all errors of other.
func (vr *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	for _, err := range other.Errors {
		vr.AddError(err)
	}
}

// GetFirstError returns the first error or nil
func (vr *ValidationResult) GetFirstError() *AppError {
	if len(vr.Errors) > 0 {
		return vr.Errors[0]
	}
	return nil
}

// Messages returns the user messages of all errors, in order.
func (vr *ValidationResult) Messages() []string {
	out := make([]string, 0, len(vr.Errors))
	for _, err := range vr.Errors {
		out = append(out, err.GetUserMessage())
	}
	return out
}

// Field builds a validation error bound to a form field.
func Field(field, code, userMessage string) *AppError {
	return New(ErrTypeValidation, code, field+": "+strings.ToLower(userMessage)).
		WithUserMessage(userMessage).
		WithContext("field", field)
}

// Validator provides validation utilities
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateLogin validates the login form
func (v *Validator) ValidateLogin(email, password string) *ValidationResult {
	result := NewValidationResult()

	email = strings.TrimSpace(email)
	if email == "" {
		result.AddError(ErrEmailRequired)
	} else if _, err := mail.ParseAddress(email); err != nil {
		result.AddError(Field("email", "EMAIL_INVALID", "Please enter a valid email address"))
	}

	if password == "" {
		result.AddError(ErrPasswordRequired)
	}

	return result
}

// ValidateProfileNames validates the profile name form
func (v *Validator) ValidateProfileNames(firstName, lastName string) *ValidationResult {
	result := NewValidationResult()

	if strings.TrimSpace(firstName) == "" || strings.TrimSpace(lastName) == "" {
		result.AddError(ErrNameRequired)
		return result
	}

	if len(firstName) > 100 || len(lastName) > 100 {
		result.AddError(Field("name", "NAME_TOO_LONG", "Names must be at most 100 characters"))
	}

	return result
}

// ValidateAvatarURL validates an avatar image location
func (v *Validator) ValidateAvatarURL(raw string) *ValidationResult {
	result := NewValidationResult()

	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		result.AddError(ErrInvalidAvatarURL.WithContext("value", raw))
	}

	return result
}
