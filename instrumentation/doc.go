// Package instrumentation provides OpenTelemetry instrumentation for the gateway.
//
// Metrics and traces are recorded through the OpenTelemetry API. By default
// the providers are no-op, so instrumentation costs nothing until a provider
// is configured.
//
// # Quick Start
//
//	inst, err := instrumentation.New(instrumentation.Config{
//		Enabled:        true,
//		ServiceVersion: "1.2.0",
//		OTLPEndpoint:   "http://otel-collector:4318/v1/traces",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer inst.Shutdown(context.Background())
//
// # Custom Providers
//
// Any metric.MeterProvider or trace.TracerProvider can be injected, for
// example an SDK meter provider with a Prometheus reader:
//
//	inst, err := instrumentation.New(instrumentation.Config{
//		Enabled:       true,
//		MeterProvider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
//	})
//
// # HTTP
//
// HTTPHandler and HTTPTransport wrap inbound handlers and the outbound
// provider transport with otelhttp so request spans propagate upstream.
//
// # Security
//
// Authorization codes, access tokens and client secrets are never recorded.
// Spans carry the code length only.
package instrumentation
