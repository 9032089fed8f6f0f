package gatekeeper

import (
	"errors"
	"net/http"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "without cause",
			err:  &Error{Code: ErrorCodeUnknownClient, Description: "Client is not registered"},
			want: "unknown_client: Client is not registered",
		},
		{
			name: "with cause",
			err:  &Error{Code: ErrorCodeBadCode, Description: "rejected", Err: errors.New("bad_verification_code")},
			want: "bad_code: rejected: bad_verification_code",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := ErrServerError(cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false")
	}

	var target *Error
	if !errors.As(error(err), &target) || target.Code != ErrorCodeServerError {
		t.Errorf("errors.As() did not yield server_error, got %v", target)
	}
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *Error
		wantCode   string
		wantStatus int
	}{
		{"unknown client", ErrUnknownClient(), ErrorCodeUnknownClient, http.StatusNotFound},
		{"bad code", ErrBadCode(nil), ErrorCodeBadCode, http.StatusPaymentRequired},
		{"upstream unreachable", ErrUpstreamUnreachable(nil), ErrorCodeUpstreamUnreachable, http.StatusPaymentRequired},
		{"server error", ErrServerError(nil), ErrorCodeServerError, http.StatusInternalServerError},
		{"rate limit", ErrRateLimitExceeded(), ErrorCodeRateLimitExceeded, http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.wantCode)
			}
			if tt.err.Status != tt.wantStatus {
				t.Errorf("Status = %d, want %d", tt.err.Status, tt.wantStatus)
			}
			if tt.err.Description == "" {
				t.Error("Description is empty")
			}
		})
	}
}

func TestNewError(t *testing.T) {
	cause := errors.New("provider said no")

	tests := []struct {
		name        string
		code        string
		description string
		status      int
		cause       error
	}{
		{
			name:        "bad code with cause",
			code:        ErrorCodeBadCode,
			description: "Authorization code was not accepted",
			status:      http.StatusPaymentRequired,
			cause:       cause,
		},
		{
			name:        "unknown client without cause",
			code:        ErrorCodeUnknownClient,
			description: "Client is not registered",
			status:      http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewError(tt.code, tt.description, tt.status, tt.cause)
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
			if err.Description != tt.description {
				t.Errorf("Description = %q, want %q", err.Description, tt.description)
			}
			if err.Status != tt.status {
				t.Errorf("Status = %d, want %d", err.Status, tt.status)
			}
			if !errors.Is(err, tt.cause) && tt.cause != nil {
				t.Errorf("errors.Is(err, cause) = false")
			}
		})
	}
}
