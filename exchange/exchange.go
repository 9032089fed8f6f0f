package exchange

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/oauth2"

	"github.com/giantswarm/gatekeeper/clients"
	"github.com/giantswarm/gatekeeper/instrumentation"
)

// DefaultTimeout bounds a single upstream token request.
const DefaultTimeout = 5 * time.Second

const (
	providerName      = "oauth"
	operationExchange = "exchange_code"
)

// Reason classifies a failed exchange.
type Reason string

const (
	// ReasonRejected means the provider answered but did not issue a token.
	ReasonRejected Reason = "upstream_rejected"

	// ReasonUnreachable means no usable answer arrived from the provider.
	ReasonUnreachable Reason = "upstream_unreachable"
)

var (
	// ErrUpstreamRejected matches errors with ReasonRejected.
	ErrUpstreamRejected = errors.New("upstream rejected authorization code")

	// ErrUpstreamUnreachable matches errors with ReasonUnreachable.
	ErrUpstreamUnreachable = errors.New("upstream unreachable")
)

// Error is returned by Exchange for every failure.
type Error struct {
	Reason Reason
	Err    error

	canceled bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

// Unwrap exposes both the reason sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	sentinel := ErrUpstreamRejected
	if e.Reason == ReasonUnreachable {
		sentinel = ErrUpstreamUnreachable
	}
	return []error{sentinel, e.Err}
}

// Canceled reports whether the caller's context was cancelled before the
// provider answered.
func (e *Error) Canceled() bool {
	return e.canceled
}

// ReasonOf returns the Reason carried by err, or "" if err is not an *Error.
func ReasonOf(err error) Reason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

// Config configures an Exchanger.
type Config struct {
	// HTTPClient performs the token request. Nil uses a client with the
	// instrumentation transport, or a plain client when Instrumentation is nil.
	HTTPClient *http.Client

	// Timeout bounds each exchange (default: DefaultTimeout).
	Timeout time.Duration

	Logger *slog.Logger

	// Instrumentation is optional.
	Instrumentation *instrumentation.Instrumentation
}

// Exchanger trades authorization codes for access tokens at the provider's
// token endpoint.
type Exchanger struct {
	provider   clients.Provider
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
	inst       *instrumentation.Instrumentation
	tracer     trace.Tracer
}

// New returns an Exchanger for provider.
func New(provider clients.Provider, cfg Config) *Exchanger {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	e := &Exchanger{
		provider: provider,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger,
		inst:     cfg.Instrumentation,
		tracer:   tracenoop.NewTracerProvider().Tracer(""),
	}
	if e.inst != nil {
		e.tracer = e.inst.Tracer("provider")
	}

	e.httpClient = cfg.HTTPClient
	if e.httpClient == nil {
		e.httpClient = &http.Client{}
		if e.inst != nil {
			e.httpClient.Transport = e.inst.HTTPTransport(nil)
		}
	}

	return e
}

// Exchange sends exactly one token request for code on behalf of client.
// It never retries. Any failure is an *Error.
func (e *Exchanger) Exchange(ctx context.Context, client clients.Client, code string) (*oauth2.Token, error) {
	tokenURL := client.TokenURL(e.provider)

	ctx, span := e.tracer.Start(ctx, "provider.exchange", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	instrumentation.AddProviderAttributes(span, providerName, operationExchange, e.provider.Host)
	instrumentation.AddExchangeAttributes(span, client.ID, code)

	reqCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	reqCtx = context.WithValue(reqCtx, oauth2.HTTPClient, e.httpClient)

	conf := &oauth2.Config{
		ClientID:     client.UpstreamClientID(),
		ClientSecret: client.Secret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	start := time.Now()
	token, err := conf.Exchange(reqCtx, code)
	if err == nil && token.AccessToken == "" {
		err = errors.New("provider response carried no access token")
	}
	elapsed := float64(time.Since(start).Milliseconds())

	if err != nil {
		xerr := &Error{
			Reason:   classify(err),
			Err:      err,
			canceled: errors.Is(ctx.Err(), context.Canceled),
		}
		e.record(ctx, statusOf(err), elapsed, xerr)
		instrumentation.SetSpanAttributes(span, attribute.String(instrumentation.AttrExchangeOutcome, string(xerr.Reason)))
		instrumentation.RecordError(span, xerr)

		e.logger.Warn("Code exchange failed",
			"client_id", client.ID,
			"reason", xerr.Reason,
			"canceled", xerr.canceled,
			"error", err)
		return nil, xerr
	}

	e.record(ctx, http.StatusOK, elapsed, nil)
	instrumentation.SetSpanAttributes(span,
		attribute.String(instrumentation.AttrExchangeOutcome, "success"),
		attribute.String(instrumentation.AttrTokenType, token.Type()),
	)
	instrumentation.SetSpanSuccess(span)

	e.logger.Debug("Code exchanged",
		"client_id", client.ID,
		"token_type", token.Type(),
		"duration_ms", elapsed)
	return token, nil
}

func (e *Exchanger) record(ctx context.Context, status int, elapsed float64, err error) {
	if e.inst == nil {
		return
	}
	e.inst.Metrics().RecordProviderAPICall(ctx, providerName, operationExchange, status, elapsed, err)
}

// classify maps an oauth2 or transport error to a Reason. Anything that is
// not clearly a transport failure counts as a rejection.
func classify(err error) Reason {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return ReasonRejected
	}

	var urlErr *url.Error
	var netErr net.Error
	switch {
	case errors.As(err, &urlErr), errors.As(err, &netErr):
		return ReasonUnreachable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ReasonUnreachable
	}
	return ReasonRejected
}

func statusOf(err error) int {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		return retrieveErr.Response.StatusCode
	}
	return 0
}
