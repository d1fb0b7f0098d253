// Package llm - error taxonomy and message classification.
package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAPIKeyMissing is returned when the active provider requires a
// credential and none is configured.
var ErrAPIKeyMissing = errors.New("llm: API key not configured")

// TranscriptTooShortError is returned for transcripts under the minimum
// word count. Very short transcripts produce useless cleanup requests.
type TranscriptTooShortError struct {
	Words int // whitespace-delimited words found
}

func (e *TranscriptTooShortError) Error() string {
	return fmt.Sprintf("llm: transcript too short (%d words, need at least %d)", e.Words, MinTranscriptWords)
}

// TranscriptTooLongError is returned when the estimated token count
// exceeds the active provider class's ceiling. MaxChars carries the
// character ceiling (tokens * 4) for user messaging.
type TranscriptTooLongError struct {
	MaxChars int
}

func (e *TranscriptTooLongError) Error() string {
	return fmt.Sprintf("llm: transcript too long (limit %d characters)", e.MaxChars)
}

// UnavailableError is returned when a provider cannot accept requests,
// with a human-readable reason.
type UnavailableError struct {
	Provider string
	Reason   string
}

func (e *UnavailableError) Error() string {
	if e.Reason != "" {
		return e.Provider + " is unavailable: " + e.Reason
	}
	return e.Provider + " is unavailable"
}

// RequestError wraps a transport/backend failure, preserving the
// underlying message for diagnostics.
type RequestError struct {
	Provider string
	Err      error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("llm: %s request failed: %v", e.Provider, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// ErrorType categorizes LLM errors for user messaging decisions.
type ErrorType string

const (
	ErrorTypeUnknown    ErrorType = "unknown"
	ErrorTypeRateLimit  ErrorType = "rate_limit"
	ErrorTypeOverloaded ErrorType = "overloaded"
	ErrorTypeAuth       ErrorType = "auth"
	ErrorTypeTimeout    ErrorType = "timeout"
)

// ClassifyError determines the error type from an error message.
// Returns ErrorTypeUnknown if the error doesn't match any known pattern.
func ClassifyError(msg string) ErrorType {
	if msg == "" {
		return ErrorTypeUnknown
	}
	if isRateLimitMessage(msg) {
		return ErrorTypeRateLimit
	}
	if isOverloadedMessage(msg) {
		return ErrorTypeOverloaded
	}
	if isAuthMessage(msg) {
		return ErrorTypeAuth
	}
	if isTimeoutMessage(msg) {
		return ErrorTypeTimeout
	}
	return ErrorTypeUnknown
}

// FormatErrorForUser returns a user-friendly error message based on error type.
func FormatErrorForUser(msg string, errType ErrorType) string {
	switch errType {
	case ErrorTypeRateLimit:
		return "Rate limited - too many requests. Please wait a moment and try again."
	case ErrorTypeOverloaded:
		return "The AI service is temporarily overloaded. Please try again in a moment."
	case ErrorTypeAuth:
		return "Authentication failed. Check your API key configuration."
	case ErrorTypeTimeout:
		return "Request timed out. Please try again."
	default:
		return fmt.Sprintf("AI cleanup failed: %s", msg)
	}
}

// isRateLimitMessage checks if a message indicates rate limiting.
func isRateLimitMessage(msg string) bool {
	lower := strings.ToLower(msg)

	if strings.Contains(lower, "429") {
		return true
	}

	return strings.Contains(lower, "rate_limit") ||
		strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "too many requests") ||
		strings.Contains(lower, "quota exceeded") ||
		strings.Contains(lower, "resource_exhausted")
}

// isOverloadedMessage checks if a message indicates the service is overloaded.
func isOverloadedMessage(msg string) bool {
	lower := strings.ToLower(msg)

	if strings.Contains(lower, "503") && (strings.Contains(lower, "service") || strings.Contains(lower, "unavailable")) {
		return true
	}

	return strings.Contains(lower, "overloaded") ||
		strings.Contains(lower, "server is busy") ||
		strings.Contains(lower, "temporarily unavailable")
}

// isAuthMessage checks if a message indicates authentication failure.
func isAuthMessage(msg string) bool {
	lower := strings.ToLower(msg)

	if strings.Contains(lower, "401") || strings.Contains(lower, "403") {
		return true
	}

	return strings.Contains(lower, "invalid api key") ||
		strings.Contains(lower, "invalid_api_key") ||
		strings.Contains(lower, "incorrect api key") ||
		strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "forbidden") ||
		strings.Contains(lower, "authentication")
}

// isTimeoutMessage checks if a message indicates a timeout.
func isTimeoutMessage(msg string) bool {
	lower := strings.ToLower(msg)

	if strings.Contains(lower, "408") || strings.Contains(lower, "504") {
		return true
	}

	return strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "timed out") ||
		strings.Contains(lower, "deadline exceeded") ||
		strings.Contains(lower, "connection reset")
}
