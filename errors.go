package gatekeeper

import (
	"fmt"
	"net/http"
)

// Error codes returned in the "error" field of failure responses.
const (
	ErrorCodeUnknownClient       = "unknown_client"
	ErrorCodeBadCode             = "bad_code"
	ErrorCodeUpstreamUnreachable = "upstream_unreachable"
	ErrorCodeServerError         = "server_error"
	ErrorCodeRateLimitExceeded   = "rate_limit_exceeded"
)

// Error is a failure with the HTTP status it is reported with.
//
// 402 Payment Required is reused for both exchange failures. It is kept for
// compatibility with existing callers and means "the provider did not
// exchange the code, start the flow again", never anything about payment.
type Error struct {
	Code        string // e.g. "unknown_client"
	Description string // Safe for callers; never carries internal detail
	Status      int
	Err         error // Internal cause, logged but never written to a response
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Description, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Unwrap returns the internal cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error
func NewError(code, description string, status int, cause error) *Error {
	return &Error{
		Code:        code,
		Description: description,
		Status:      status,
		Err:         cause,
	}
}

var (
	// ErrUnknownClient indicates the path named a client that is not registered
	ErrUnknownClient = func() *Error {
		return NewError(ErrorCodeUnknownClient, "Client is not registered", http.StatusNotFound, nil)
	}

	// ErrBadCode indicates the provider answered without issuing a token
	ErrBadCode = func(cause error) *Error {
		return NewError(ErrorCodeBadCode, "Authorization code was not accepted", http.StatusPaymentRequired, cause)
	}

	// ErrUpstreamUnreachable indicates the provider could not be reached
	ErrUpstreamUnreachable = func(cause error) *Error {
		return NewError(ErrorCodeUpstreamUnreachable, "Authorization provider could not be reached", http.StatusPaymentRequired, cause)
	}

	// ErrServerError indicates the gateway itself is misconfigured
	ErrServerError = func(cause error) *Error {
		return NewError(ErrorCodeServerError, "Internal server error", http.StatusInternalServerError, cause)
	}

	// ErrRateLimitExceeded indicates the caller sent too many requests
	ErrRateLimitExceeded = func() *Error {
		return NewError(ErrorCodeRateLimitExceeded, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests, nil)
	}
)
