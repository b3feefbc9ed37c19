package errors

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	// Authentication errors
	ErrTypeAuth ErrorType = "authentication"
	// Local persistence errors
	ErrTypeStorage ErrorType = "storage"
	// Configuration errors
	ErrTypeConfig ErrorType = "configuration"
	// Validation errors
	ErrTypeValidation ErrorType = "validation"
	// Remote API and gateway errors
	ErrTypeNetwork ErrorType = "network"
	// Generic application errors
	ErrTypeApp ErrorType = "application"
)

// AppError represents a structured application error
type AppError struct {
	Type        ErrorType              `json:"type"`
	Code        string                 `json:"code"`
	Message     string                 `json:"message"`
	UserMessage string                 `json:"userMessage"`
	InternalErr error                  `json:"-"`
	Retryable   bool                   `json:"retryable"`
	Context     map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.InternalErr != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Type, e.Code, e.Message, e.InternalErr)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

// Unwrap exposes the wrapped error to errors.Is / errors.As.
func (e *AppError) Unwrap() error {
	return e.InternalErr
}

// Is reports whether target is an AppError with the same type and code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// GetUserMessage returns a user-friendly error message
func (e *AppError) GetUserMessage() string {
	if e.UserMessage != "" {
		return e.UserMessage
	}
	return e.Message
}

// Clone returns a copy safe to decorate without touching the original.
func (e *AppError) Clone() *AppError {
	out := *e
	if e.Context != nil {
		out.Context = make(map[string]interface{}, len(e.Context))
		for k, v := range e.Context {
			out.Context[k] = v
		}
	}
	return &out
}

// WithContext returns a copy of the error carrying the extra key.
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	out := e.Clone()
	if out.Context == nil {
		out.Context = make(map[string]interface{})
	}
	out.Context[key] = value
	return out
}

// WithCause returns a copy of the error wrapping err.
func (e *AppError) WithCause(err error) *AppError {
	out := e.Clone()
	out.InternalErr = err
	return out
}

// Log logs the error at error level
func (e *AppError) Log(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{"type", e.Type, "code", e.Code, "error", e.Error()}
	for k, v := range e.Context {
		attrs = append(attrs, k, v)
	}
	logger.Error("app error", attrs...)
}

// New creates a new AppError
func New(errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:    errType,
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:        errType,
		Code:        code,
		Message:     message,
		InternalErr: err,
	}
}

// Predefined errors for common scenarios
var (
	// Authentication errors
	ErrNotAuthenticated = New(ErrTypeAuth, "NOT_AUTHENTICATED", "user not authenticated").
				WithUserMessage("Please log in to continue")

	ErrInvalidCredentials = New(ErrTypeAuth, "INVALID_CREDENTIALS", "invalid email or password").
				WithUserMessage("Invalid email or password. Please try again")

	ErrSessionExpired = New(ErrTypeAuth, "SESSION_EXPIRED", "session rejected by the API").
				WithUserMessage("Your session has expired. Please log in again")

	ErrInvalidLoginResponse = New(ErrTypeNetwork, "INVALID_LOGIN_RESPONSE", "login response carried no token").
				WithUserMessage("Login failed. Please try again later")

	// Validation errors
	ErrEmailRequired = New(ErrTypeValidation, "EMAIL_REQUIRED", "email is required").
				WithUserMessage("Please enter your email address")

	ErrPasswordRequired = New(ErrTypeValidation, "PASSWORD_REQUIRED", "password is required").
				WithUserMessage("Please enter your password")

	ErrNameRequired = New(ErrTypeValidation, "NAME_REQUIRED", "first and last name are required").
			WithUserMessage("First and last name cannot be empty")

	ErrInvalidAvatarURL = New(ErrTypeValidation, "AVATAR_URL_INVALID", "avatar url must be an absolute http(s) url").
				WithUserMessage("Please provide a valid image URL")

	// Storage errors
	ErrStorageWriteFailed = New(ErrTypeStorage, "STORAGE_WRITE_FAILED", "failed to persist session").
				WithUserMessage("Unable to save your session locally")

	// Network errors
	ErrAPIUnavailable = New(ErrTypeNetwork, "API_UNAVAILABLE", "api request failed").
				WithUserMessage("The service is unavailable. Please try again").
				WithRetryable(true)

	ErrNotFound = New(ErrTypeNetwork, "NOT_FOUND", "resource not found").
			WithUserMessage("The requested item could not be found")

	// Configuration errors
	ErrConfigLoadFailed = New(ErrTypeConfig, "CONFIG_LOAD_FAILED", "failed to load configuration").
				WithUserMessage("Configuration file could not be loaded. Using defaults")
)

// WithUserMessage sets a user-friendly message
func (e *AppError) WithUserMessage(msg string) *AppError {
	e.UserMessage = msg
	return e
}

// WithRetryable marks the error as retryable
func (e *AppError) WithRetryable(retryable bool) *AppError {
	e.Retryable = retryable
	return e
}

// IsRetryable checks if the error can be retried
func (e *AppError) IsRetryable() bool {
	return e.Retryable
}

// RetryHandler provides retry functionality for operations
type RetryHandler struct {
	MaxAttempts int
	Backoff     time.Duration
	OnRetry     func(attempt int, err error)
}

// NewRetryHandler creates a new retry handler
func NewRetryHandler(maxAttempts int) *RetryHandler {
	return &RetryHandler{
		MaxAttempts: maxAttempts,
		Backoff:     200 * time.Millisecond,
		OnRetry: func(attempt int, err error) {
			slog.Warn("retry attempt failed", "attempt", attempt, "max_attempts", maxAttempts, "error", err)
		},
	}
}

// Execute runs a function with retry logic.
// Only errors that are *AppError with Retryable set are retried. When every
// attempt fails, the last error is returned with an "attempts" context key.
func (r *RetryHandler) Execute(fn func() error) error {
	return r.ExecuteContext(context.Background(), fn)
}

// ExecuteContext is Execute with a cancellable backoff. A context that ends
// while waiting stops the retries and its error is returned.
func (r *RetryHandler) ExecuteContext(ctx context.Context, fn func() error) error {
	var lastErr *AppError

	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		appErr, ok := err.(*AppError)
		if !ok || !appErr.IsRetryable() {
			return err
		}
		lastErr = appErr

		if attempt < r.MaxAttempts {
			if r.OnRetry != nil {
				r.OnRetry(attempt, err)
			}
			if err := wait(ctx, r.Backoff*time.Duration(attempt)); err != nil {
				return fmt.Errorf("retry after attempt %d: %w", attempt, err)
			}
		}
	}

	if lastErr == nil {
		return New(ErrTypeApp, "NO_ATTEMPTS", "retry handler configured with zero attempts")
	}
	return lastErr.WithContext("attempts", r.MaxAttempts)
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
