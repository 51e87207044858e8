package canvas

import (
	"errors"
	"fmt"
	"strings"
)

// APIError preserves the status and message of a failed Canvas call.
// StatusCode 0 means the request never got an HTTP response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("canvas request failed: %s", e.Message)
	}
	return fmt.Sprintf("canvas returned %d: %s", e.StatusCode, e.Message)
}

func asAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}

// IsNotFound reports whether Canvas answered 404.
func IsNotFound(err error) bool {
	apiErr := asAPIError(err)
	return apiErr != nil && apiErr.StatusCode == 404
}

// IsConflict reports whether a create failed because the object already
// exists. Canvas signals SIS-id collisions as 400 with an "already in use"
// message rather than 409; callers treat either as success and switch to the
// update path.
func IsConflict(err error) bool {
	apiErr := asAPIError(err)
	if apiErr == nil {
		return false
	}
	if apiErr.StatusCode == 409 {
		return true
	}
	message := strings.ToLower(apiErr.Message)
	return apiErr.StatusCode == 400 &&
		(strings.Contains(message, "already in use") || strings.Contains(message, "already exists"))
}

// IsTransient reports whether the failure is worth retrying later: network
// errors, 5xx, and throttling.
func IsTransient(err error) bool {
	apiErr := asAPIError(err)
	if apiErr == nil {
		return false
	}
	if apiErr.StatusCode == 0 || apiErr.StatusCode >= 500 || apiErr.StatusCode == 429 {
		return true
	}
	return apiErr.StatusCode == 403 && strings.Contains(apiErr.Message, "Rate Limit Exceeded")
}
