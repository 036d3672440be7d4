// Package errors provides the error taxonomy for the novachat client.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrSessionExpired  = errors.New("session expired")
	ErrNoSession       = errors.New("no session found")
	ErrInvalidResponse = errors.New("invalid response format")
)

// AuthError represents a rejected or expired session (HTTP 401).
type AuthError struct {
	Message  string
	Endpoint string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return "authentication failed: session may have expired"
	}
	return fmt.Sprintf("authentication failed: %s", e.Message)
}

// Is allows comparison with the ErrSessionExpired sentinel.
func (e *AuthError) Is(target error) bool {
	if target == ErrSessionExpired {
		return true
	}
	_, ok := target.(*AuthError)
	return ok
}

// NewAuthError creates a new AuthError
func NewAuthError(message string) *AuthError {
	return &AuthError{Message: message}
}

// NewAuthErrorWithEndpoint creates a new AuthError tagged with the endpoint
func NewAuthErrorWithEndpoint(message, endpoint string) *AuthError {
	return &AuthError{Message: message, Endpoint: endpoint}
}

// SendError represents a failed submit call. The optimistic user message
// is rolled back when this is raised — the backend never accepted it.
type SendError struct {
	Message string
	Cause   error
}

func (e *SendError) Error() string {
	if e.Message == "" {
		return "failed to send message"
	}
	return fmt.Sprintf("failed to send message: %s", e.Message)
}

func (e *SendError) Unwrap() error { return e.Cause }

// NewSendError creates a new SendError
func NewSendError(message string, cause error) *SendError {
	return &SendError{Message: message, Cause: cause}
}

// ProcessingError represents a terminal error status reported mid-stream.
// The user message is retained: the backend accepted it, only the
// assistant turn was abandoned.
type ProcessingError struct {
	Message string
}

func (e *ProcessingError) Error() string {
	if e.Message == "" {
		return "processing failed"
	}
	return e.Message
}

// NewProcessingError creates a new ProcessingError
func NewProcessingError(message string) *ProcessingError {
	return &ProcessingError{Message: message}
}

// TimeoutError represents an exhausted poll loop. Same retention policy
// as ProcessingError.
type TimeoutError struct {
	Message string
}

func (e *TimeoutError) Error() string {
	if e.Message == "" {
		return "request timed out"
	}
	return e.Message
}

// NewTimeoutError creates a new TimeoutError
func NewTimeoutError(message string) *TimeoutError {
	return &TimeoutError{Message: message}
}

// ExtractionError represents a failed or text-free file extraction.
type ExtractionError struct {
	FileName string
	Message  string
}

func (e *ExtractionError) Error() string {
	if e.FileName != "" {
		return fmt.Sprintf("could not extract text from %s: %s", e.FileName, e.Message)
	}
	return fmt.Sprintf("file extraction failed: %s", e.Message)
}

// NewExtractionError creates a new ExtractionError
func NewExtractionError(fileName, message string) *ExtractionError {
	return &ExtractionError{FileName: fileName, Message: message}
}

// APIError represents an unexpected HTTP status from the backend.
type APIError struct {
	StatusCode int
	Endpoint   string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("API error [%d] at %s: %s", e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("API error at %s: %s", e.Endpoint, e.Message)
}

// NewAPIError creates a new APIError
func NewAPIError(statusCode int, endpoint, message string) *APIError {
	return &APIError{StatusCode: statusCode, Endpoint: endpoint, Message: message}
}

// NewAPIErrorWithBody creates a new APIError with the response body attached
func NewAPIErrorWithBody(statusCode int, endpoint, message, body string) *APIError {
	return &APIError{StatusCode: statusCode, Endpoint: endpoint, Message: message, Body: body}
}

// NetworkError represents a request that never produced a response.
type NetworkError struct {
	Op       string
	Endpoint string
	Cause    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Cause)
}

func (e *NetworkError) Unwrap() error { return e.Cause }

// NewNetworkError creates a new NetworkError
func NewNetworkError(op, endpoint string, cause error) *NetworkError {
	return &NetworkError{Op: op, Endpoint: endpoint, Cause: cause}
}

// ParseError represents a response that could not be decoded.
type ParseError struct {
	Message string
	Path    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %s", e.Message)
}

// Is allows comparison with the ErrInvalidResponse sentinel.
func (e *ParseError) Is(target error) bool {
	if target == ErrInvalidResponse {
		return true
	}
	_, ok := target.(*ParseError)
	return ok
}

// NewParseError creates a new ParseError
func NewParseError(message, path string) *ParseError {
	return &ParseError{Message: message, Path: path}
}
