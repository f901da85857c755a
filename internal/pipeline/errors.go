package pipeline

import (
	"context"
	"errors"
	"net/http"
)

// Kind is the failure category of a summarization request. Every error
// returned by Summarizer carries exactly one.
type Kind string

const (
	KindInvalidInput    Kind = "invalid_input"
	KindNotFound        Kind = "not_found"
	KindRateLimited     Kind = "rate_limited"
	KindUpstream        Kind = "upstream"
	KindAllChunksFailed Kind = "all_chunks_failed"
	KindMalformedOutput Kind = "malformed_output"
	KindTimeout         Kind = "timeout"
	KindInternal        Kind = "internal"
)

// HTTPStatus is the response code the HTTP surface uses for k.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUpstream, KindAllChunksFailed, KindMalformedOutput:
		return http.StatusBadGateway
	case KindTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// Error is a categorised failure with a caller-facing message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return string(e.Kind) + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf classifies any error. Uncategorised errors are internal, except
// deadline expiry which is always a timeout.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindInternal
}

// MessageOf returns the caller-facing message for err. Internal details of
// uncategorised errors are not exposed.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	switch KindOf(err) {
	case KindTimeout:
		return "Request timed out"
	}
	return "Internal server error"
}
