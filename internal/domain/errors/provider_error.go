// Package errors defines the classified failures returned by external providers.
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Severity indicates how a provider failure should be handled.
type Severity string

const (
	SeverityRetryable Severity = "retryable" // retry with backoff
	SeverityFatal     Severity = "fatal"     // give up immediately
)

// IsRetryable returns true if the failure can be retried.
func (s Severity) IsRetryable() bool {
	return s == SeverityRetryable
}

// Category names the provider failure reason.
type Category string

// Transient categories.
const (
	CategoryRateLimited Category = "rate_limited"
	CategoryTimeout     Category = "timeout"
	CategoryUnavailable Category = "unavailable"
)

// Terminal categories.
const (
	CategoryInvalidDestination Category = "invalid_destination"
	CategoryQuotaExhausted     Category = "quota_exhausted"
	CategoryUnauthorized       Category = "unauthorized"
	CategoryRejected           Category = "rejected"
)

// Severity returns the handling severity implied by the category.
func (c Category) Severity() Severity {
	switch c {
	case CategoryRateLimited, CategoryTimeout, CategoryUnavailable:
		return SeverityRetryable
	default:
		return SeverityFatal
	}
}

// ProviderError is a failure reported by the messaging gateway or the completion service.
type ProviderError struct {
	Provider   string   `json:"provider"`
	Category   Category `json:"category"`
	Severity   Severity `json:"severity"`
	Retryable  bool     `json:"retryable"`
	Message    string   `json:"message"`
	StatusCode int      `json:"status_code,omitempty"`
	Code       string   `json:"code,omitempty"`
	Cause      error    `json:"-"`
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Provider, e.Category, e.Message)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (caused by: %v)", msg, e.Cause)
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns true if the error can be retried.
func (e *ProviderError) IsRetryable() bool {
	return e.Retryable && e.Severity.IsRetryable()
}

// NewProviderError creates a provider error whose severity follows the category.
func NewProviderError(provider string, category Category, message string) *ProviderError {
	severity := category.Severity()
	return &ProviderError{
		Provider:  provider,
		Category:  category,
		Severity:  severity,
		Retryable: severity.IsRetryable(),
		Message:   message,
	}
}

// WithCause adds an underlying cause to the error.
func (e *ProviderError) WithCause(cause error) *ProviderError {
	e.Cause = cause
	return e
}

// WithStatus records the provider's HTTP status and error code.
func (e *ProviderError) WithStatus(statusCode int, code string) *ProviderError {
	e.StatusCode = statusCode
	e.Code = code
	return e
}

// Transient wraps err as a retryable provider failure.
func Transient(provider string, category Category, err error) *ProviderError {
	pe := NewProviderError(provider, category, errorMessage(err)).WithCause(err)
	pe.Severity = SeverityRetryable
	pe.Retryable = true
	return pe
}

// Terminal wraps err as a non-retryable provider failure.
func Terminal(provider string, category Category, err error) *ProviderError {
	pe := NewProviderError(provider, category, errorMessage(err)).WithCause(err)
	pe.Severity = SeverityFatal
	pe.Retryable = false
	return pe
}

// FromStatus classifies an HTTP status code returned by a provider.
func FromStatus(provider string, statusCode int, code, message string) *ProviderError {
	var category Category
	switch {
	case statusCode == 429:
		category = CategoryRateLimited
	case statusCode == 408 || statusCode == 504:
		category = CategoryTimeout
	case statusCode >= 500:
		category = CategoryUnavailable
	case statusCode == 401 || statusCode == 403:
		category = CategoryUnauthorized
	case statusCode == 402:
		category = CategoryQuotaExhausted
	default:
		category = CategoryRejected
	}
	return NewProviderError(provider, category, message).WithStatus(statusCode, code)
}

// Classify converts an arbitrary error into a ProviderError.
// Deadline and network failures are transient; anything unknown is terminal.
func Classify(provider string, err error) *ProviderError {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Transient(provider, CategoryTimeout, err)
	}
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return Transient(provider, CategoryTimeout, err)
	}
	return Terminal(provider, CategoryRejected, err)
}

// IsRetryable reports whether err is a retryable ProviderError.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.IsRetryable()
	}
	return false
}

// CategoryOf returns the provider category carried by err, or an empty category.
func CategoryOf(err error) Category {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ""
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
