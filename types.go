package gatekeeper

import "golang.org/x/oauth2"

// ExchangeRequest is one authenticate call, taken from the request path.
type ExchangeRequest struct {
	ClientID string
	Code     string

	// ClientIP is used for audit records only.
	ClientIP string
}

// ExchangeResult is a successful exchange and how it must be answered.
type ExchangeResult struct {
	// ClientID is the registry identifier from the request.
	ClientID string

	// OutwardClientID is the identifier used in the redirect target.
	// Empty when redirect mode is disabled.
	OutwardClientID string

	Token *oauth2.Token

	// Location is the redirect target. Empty means answer with JSON.
	Location string
}

// Redirect reports whether the result is answered with a 302.
func (r *ExchangeResult) Redirect() bool {
	return r.Location != ""
}

// TokenResponse is the 200 body when redirect mode is disabled.
type TokenResponse struct {
	Token string `json:"token"`
}

// ErrorResponse is the body of every failure response
type ErrorResponse struct {
	// Error is the error code
	Error string `json:"error"`

	// ErrorDescription provides additional information
	ErrorDescription string `json:"error_description,omitempty"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Clients int    `json:"clients"`
}
