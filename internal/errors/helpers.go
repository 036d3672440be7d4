package errors

import "errors"

// IsAuthError reports whether err is an authentication failure.
func IsAuthError(err error) bool {
	var target *AuthError
	return errors.As(err, &target) || errors.Is(err, ErrSessionExpired)
}

// IsSendError reports whether err is a failed submit call.
func IsSendError(err error) bool {
	var target *SendError
	return errors.As(err, &target)
}

// IsProcessingError reports whether err is a mid-stream terminal error.
func IsProcessingError(err error) bool {
	var target *ProcessingError
	return errors.As(err, &target)
}

// IsTimeoutError reports whether err is an exhausted poll loop.
func IsTimeoutError(err error) bool {
	var target *TimeoutError
	return errors.As(err, &target)
}

// IsExtractionError reports whether err is a failed file extraction.
func IsExtractionError(err error) bool {
	var target *ExtractionError
	return errors.As(err, &target)
}

// IsNetworkError reports whether err is a transport-level failure.
func IsNetworkError(err error) bool {
	var target *NetworkError
	return errors.As(err, &target)
}

// GetHTTPStatus returns the HTTP status attached to err, or 0.
func GetHTTPStatus(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return 401
	}
	return 0
}
