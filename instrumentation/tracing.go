package instrumentation

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys
//
// SECURITY WARNING: Never put authorization codes, access tokens or client
// secrets on spans. Traces are retained longer and read more widely than the
// gateway itself. Record presence or length instead.
const (
	AttrClientID        = "oauth.client_id"         // Registry identifier (non-secret)
	AttrOutwardClientID = "oauth.outward_client_id" // Alias used in redirects
	AttrCodeLength      = "oauth.code.length"       // Length of the presented code
	AttrTokenType       = "oauth.token_type"        //nolint:gosec // Token type, never the token
	AttrResponseMode    = "gatekeeper.response_mode"
	AttrExchangeOutcome = "gatekeeper.exchange.outcome"
	AttrError           = "oauth.error"

	AttrProviderName      = "provider.name"
	AttrProviderOperation = "provider.operation"
	AttrProviderHost      = "provider.host"
	AttrProviderStatus    = "provider.status"
	AttrProviderErrorType = "provider.error_type"

	AttrClientIP = "security.client_ip"
)

// RecordError records an error on a span with proper status codes (nil-safe)
func RecordError(span trace.Span, err error) {
	if span != nil && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess marks a span as successful (nil-safe)
func SetSpanSuccess(span trace.Span) {
	if span != nil {
		span.SetStatus(codes.Ok, "")
	}
}

// SetSpanError sets an error status on a span (nil-safe)
func SetSpanError(span trace.Span, message string) {
	if span != nil {
		span.SetStatus(codes.Error, message)
	}
}

// SetSpanAttributes sets attributes on a span (nil-safe)
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	if span != nil {
		span.SetAttributes(attrs...)
	}
}

// AddExchangeAttributes adds request attributes to a span (nil-safe).
// Only the code length is recorded, never the code.
func AddExchangeAttributes(span trace.Span, clientID, code string) {
	SetSpanAttributes(span,
		attribute.String(AttrClientID, clientID),
		attribute.Int(AttrCodeLength, len(code)),
	)
}

// AddProviderAttributes adds provider attributes to a span (nil-safe)
func AddProviderAttributes(span trace.Span, providerName, operation, host string) {
	SetSpanAttributes(span,
		attribute.String(AttrProviderName, providerName),
		attribute.String(AttrProviderOperation, operation),
		attribute.String(AttrProviderHost, host),
	)
}
