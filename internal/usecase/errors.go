package usecase

import (
	"fmt"
	"net/http"

	"studentcare-chat/internal/config"
)

type ErrorKind string

const (
	ErrorConfigurationMissing ErrorKind = "CONFIGURATION_MISSING"
	ErrorInvalidInput         ErrorKind = "INVALID_INPUT"
	ErrorMissingSession       ErrorKind = "MISSING_SESSION"
	ErrorInvalidCredentials   ErrorKind = "INVALID_CREDENTIALS"
	ErrorRateLimited          ErrorKind = "RATE_LIMITED"
	ErrorQuotaExceeded        ErrorKind = "QUOTA_EXCEEDED"
	ErrorProviderUnavailable  ErrorKind = "PROVIDER_UNAVAILABLE"
	ErrorNetwork              ErrorKind = "NETWORK_ERROR"
	ErrorInvalidRequest       ErrorKind = "INVALID_REQUEST"
	ErrorEmptyCompletion      ErrorKind = "EMPTY_COMPLETION"
	ErrorStorage              ErrorKind = "STORAGE_ERROR"
	ErrorUnknown              ErrorKind = "UNKNOWN_ERROR"
)

type kindInfo struct {
	status      int
	summary     string
	userMessage string
}

var kindTable = map[ErrorKind]kindInfo{
	ErrorConfigurationMissing: {
		status:      http.StatusServiceUnavailable,
		summary:     "OpenAI API key is not configured properly.",
		userMessage: "The AI service is not available right now. Please try again later or contact the administrator.",
	},
	ErrorInvalidInput: {
		status:      http.StatusBadRequest,
		summary:     "Message is required and must be a non-empty string.",
		userMessage: "Please enter a message to send.",
	},
	ErrorMissingSession: {
		status:      http.StatusBadRequest,
		summary:     "Session ID is required.",
		userMessage: "Session error. Please refresh the page and try again.",
	},
	ErrorInvalidCredentials: {
		status:      http.StatusServiceUnavailable,
		summary:     "Invalid OpenAI API key.",
		userMessage: "The AI service is not properly configured. Please contact support.",
	},
	ErrorRateLimited: {
		status:      http.StatusTooManyRequests,
		summary:     "Rate limit exceeded.",
		userMessage: "Too many requests. Please wait a moment and try again.",
	},
	ErrorQuotaExceeded: {
		status:      http.StatusServiceUnavailable,
		summary:     "OpenAI API quota exceeded.",
		userMessage: "Service temporarily unavailable. Please contact support.",
	},
	ErrorProviderUnavailable: {
		status:      http.StatusServiceUnavailable,
		summary:     "OpenAI service temporarily unavailable.",
		userMessage: "The AI service is temporarily down. Please try again in a few minutes.",
	},
	ErrorNetwork: {
		status:      http.StatusServiceUnavailable,
		summary:     "Network error connecting to OpenAI.",
		userMessage: "Connection issue. Please check your internet and try again.",
	},
	ErrorInvalidRequest: {
		status:      http.StatusBadRequest,
		summary:     "Invalid request to OpenAI API.",
		userMessage: "Invalid request. Please try rephrasing your message.",
	},
	ErrorEmptyCompletion: {
		status:      http.StatusInternalServerError,
		summary:     "Received empty response from OpenAI.",
		userMessage: "I apologize, but I had trouble generating a response. Please try again.",
	},
	ErrorStorage: {
		status:      http.StatusInternalServerError,
		summary:     "Chat history store failure.",
		userMessage: "We couldn't save or load your conversation right now. Please try again.",
	},
	ErrorUnknown: {
		status:      http.StatusInternalServerError,
		summary:     "An unexpected error occurred.",
		userMessage: "I'm having trouble connecting right now. Please try again in a moment.",
	},
}

func (k ErrorKind) info() kindInfo {
	if in, ok := kindTable[k]; ok {
		return in
	}
	return kindTable[ErrorUnknown]
}

// HTTPStatus is the response status for the kind.
func (k ErrorKind) HTTPStatus() int { return k.info().status }

// Summary is the short internal description of the kind.
func (k ErrorKind) Summary() string { return k.info().summary }

// UserMessage is safe to show to the student as-is.
func (k ErrorKind) UserMessage() string { return k.info().userMessage }

type Error struct {
	Kind   ErrorKind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Kind, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Kind, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(kind ErrorKind, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}

// ConfigError carries the redacted configuration status behind a
// ConfigurationMissing failure.
type ConfigError struct {
	Status config.Status
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("usecase: provider not configured (hasApiKey=%t, keyLength=%d)", e.Status.HasAPIKey, e.Status.KeyLength)
}
