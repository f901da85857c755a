package github

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidURL    = errors.New("invalid GitHub URL")
	ErrNotFound      = errors.New("not found")
	ErrRateLimited   = errors.New("GitHub API rate limit exceeded")
	ErrBinaryContent = errors.New("binary content")
)

// APIError is a non-2xx answer from the GitHub REST API.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("github: %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("github: %s: status %d", e.Op, e.StatusCode)
}

// Unwrap maps well-known statuses onto the package sentinels so callers can
// use errors.Is. GitHub reports an exhausted quota as 403 as well as 429.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusForbidden, http.StatusTooManyRequests:
		return ErrRateLimited
	}
	return nil
}
