package errors

import stderrors "errors"

// FrontendError represents an error formatted for frontend consumption
type FrontendError struct {
	Type      string                 `json:"type"`
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Retryable bool                   `json:"retryable"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// ToFrontendError converts an AppError to a frontend-friendly format
func ToFrontendError(err error) *FrontendError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &FrontendError{
			Type:      string(appErr.Type),
			Code:      appErr.Code,
			Message:   appErr.GetUserMessage(),
			Retryable: appErr.Retryable,
			Context:   appErr.Context,
		}
	}

	// Handle generic errors
	return &FrontendError{
		Type:      string(ErrTypeApp),
		Code:      "GENERIC_ERROR",
		Message:   "An unexpected error occurred. Please try again",
		Retryable: true,
		Context:   map[string]interface{}{"originalError": err.Error()},
	}
}

// UserMessage returns the message to show in a flash/toast for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return ToFrontendError(err).Message
}
