package instrumentation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names
const (
	MetricHTTPRequestsTotal     = "gatekeeper.http.requests.total"
	MetricHTTPRequestDuration   = "gatekeeper.http.request.duration"
	MetricCodeExchanged         = "gatekeeper.code.exchanged"
	MetricClientUnknown         = "gatekeeper.client.unknown"
	MetricRedirectIssued        = "gatekeeper.redirect.issued"
	MetricRateLimitExceeded     = "gatekeeper.rate_limit.exceeded"
	MetricProviderAPICallsTotal = "provider.api.calls.total"
	MetricProviderAPIDuration   = "provider.api.duration"
	MetricProviderAPIErrors     = "provider.api.errors.total"
	MetricAuditEventsTotal      = "gatekeeper.audit.events.total"
	MetricClientsRegistered     = "gatekeeper.clients.registered"
)

// Metrics holds all metric instruments for the gateway
type Metrics struct {
	// HTTP Layer Metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	// Exchange Metrics
	CodeExchanged  metric.Int64Counter
	ClientUnknown  metric.Int64Counter
	RedirectIssued metric.Int64Counter

	// Security Metrics
	RateLimitExceeded metric.Int64Counter
	AuditEventsTotal  metric.Int64Counter

	// Provider Metrics
	ProviderAPICallsTotal metric.Int64Counter
	ProviderAPIDuration   metric.Float64Histogram
	ProviderAPIErrors     metric.Int64Counter

	// Registry Metrics
	ClientsRegistered metric.Int64ObservableGauge
}

// newMetrics creates and registers all metric instruments
func newMetrics(inst *Instrumentation) (*Metrics, error) {
	m := &Metrics{}

	httpMeter := inst.Meter("http")
	providerMeter := inst.Meter("provider")
	securityMeter := inst.Meter("security")
	registryMeter := inst.Meter("registry")

	var err error
	m.HTTPRequestsTotal, err = httpMeter.Int64Counter(
		MetricHTTPRequestsTotal,
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http.requests.total counter: %w", err)
	}

	m.HTTPRequestDuration, err = httpMeter.Float64Histogram(
		MetricHTTPRequestDuration,
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http.request.duration histogram: %w", err)
	}

	m.CodeExchanged, err = httpMeter.Int64Counter(
		MetricCodeExchanged,
		metric.WithDescription("Number of authorization code exchanges by outcome"),
		metric.WithUnit("{exchange}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create code.exchanged counter: %w", err)
	}

	m.ClientUnknown, err = httpMeter.Int64Counter(
		MetricClientUnknown,
		metric.WithDescription("Number of requests naming an unregistered client"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create client.unknown counter: %w", err)
	}

	m.RedirectIssued, err = httpMeter.Int64Counter(
		MetricRedirectIssued,
		metric.WithDescription("Number of successful exchanges answered with a redirect"),
		metric.WithUnit("{redirect}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create redirect.issued counter: %w", err)
	}

	m.RateLimitExceeded, err = securityMeter.Int64Counter(
		MetricRateLimitExceeded,
		metric.WithDescription("Number of rate limit violations"),
		metric.WithUnit("{violation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate_limit.exceeded counter: %w", err)
	}

	m.AuditEventsTotal, err = securityMeter.Int64Counter(
		MetricAuditEventsTotal,
		metric.WithDescription("Total number of audit events"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit.events.total counter: %w", err)
	}

	m.ProviderAPICallsTotal, err = providerMeter.Int64Counter(
		MetricProviderAPICallsTotal,
		metric.WithDescription("Total number of provider API calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider.api.calls.total counter: %w", err)
	}

	m.ProviderAPIDuration, err = providerMeter.Float64Histogram(
		MetricProviderAPIDuration,
		metric.WithDescription("Provider API call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider.api.duration histogram: %w", err)
	}

	m.ProviderAPIErrors, err = providerMeter.Int64Counter(
		MetricProviderAPIErrors,
		metric.WithDescription("Total number of provider API errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider.api.errors.total counter: %w", err)
	}

	m.ClientsRegistered, err = registryMeter.Int64ObservableGauge(
		MetricClientsRegistered,
		metric.WithDescription("Number of registered OAuth clients"),
		metric.WithUnit("{client}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create clients.registered gauge: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request metric
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, endpoint string, statusCode int, durationMs float64) {
	attrs := []attribute.KeyValue{
		attribute.String("method", method),
		attribute.String("endpoint", endpoint),
		attribute.Int("status", statusCode),
	}

	m.HTTPRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.HTTPRequestDuration.Record(ctx, durationMs, metric.WithAttributes(attribute.String("endpoint", endpoint)))
}

// RecordCodeExchange records an exchange outcome ("success", "upstream_rejected", "upstream_unreachable")
func (m *Metrics) RecordCodeExchange(ctx context.Context, clientID, outcome string) {
	m.CodeExchanged.Add(ctx, 1, metric.WithAttributes(
		attribute.String("client_id", clientID),
		attribute.String("outcome", outcome),
	))
}

// RecordClientUnknown records a lookup miss.
// The requested identifier is attacker controlled and deliberately not recorded.
func (m *Metrics) RecordClientUnknown(ctx context.Context) {
	m.ClientUnknown.Add(ctx, 1)
}

// RecordRedirectIssued records a redirect response
func (m *Metrics) RecordRedirectIssued(ctx context.Context, clientID string, renamed bool) {
	m.RedirectIssued.Add(ctx, 1, metric.WithAttributes(
		attribute.String("client_id", clientID),
		attribute.Bool("renamed", renamed),
	))
}

// RecordRateLimitExceeded records a rate limit violation
func (m *Metrics) RecordRateLimitExceeded(ctx context.Context, limiterType string) {
	m.RateLimitExceeded.Add(ctx, 1, metric.WithAttributes(
		attribute.String("limiter_type", limiterType),
	))
}

// RecordAuditEvent records an audit event
func (m *Metrics) RecordAuditEvent(ctx context.Context, eventType string) {
	m.AuditEventsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
	))
}

// RecordProviderAPICall records a provider API call
func (m *Metrics) RecordProviderAPICall(ctx context.Context, provider, operation string, statusCode int, durationMs float64, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("provider", provider),
		attribute.String("operation", operation),
		attribute.Int("status", statusCode),
	}

	m.ProviderAPICallsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.ProviderAPIDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("operation", operation),
	))

	if err != nil {
		errorType := "network"
		if statusCode >= 400 && statusCode < 500 {
			errorType = "client_error"
		} else if statusCode >= 500 {
			errorType = "server_error"
		} else if statusCode > 0 {
			errorType = "invalid_response"
		}

		m.ProviderAPIErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("operation", operation),
			attribute.String("error_type", errorType),
		))
	}
}
