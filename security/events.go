package security

// Audit event types.
const (
	// EventExchangeSucceeded is logged when a code is exchanged for a token.
	EventExchangeSucceeded = "code_exchange_succeeded"

	// EventExchangeFailed is logged when the provider rejects a code or
	// cannot be reached.
	EventExchangeFailed = "code_exchange_failed"

	// EventUnknownClient is logged when a request names a client that is not
	// registered.
	EventUnknownClient = "unknown_client"

	// EventRateLimitExceeded is logged when a caller exceeds the request rate.
	EventRateLimitExceeded = "rate_limit_exceeded"

	// EventRedirectMisconfigured is logged when the redirect policy in the
	// environment cannot be parsed.
	EventRedirectMisconfigured = "redirect_misconfigured"
)
