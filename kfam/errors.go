package kfam

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// APIError is returned for any response outside the 2xx range
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("profile controller responded %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("profile controller responded %d: %s", e.StatusCode, e.Body)
}

// StatusCode returns the status of the profile controller response that
// caused err, if any.
func StatusCode(err error) (int, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, true
	}
	return 0, false
}

// ResponseBody returns the body of the profile controller response that
// caused err, if any.
func ResponseBody(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Body
	}
	return ""
}
