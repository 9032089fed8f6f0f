package gatekeeper

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/giantswarm/gatekeeper/instrumentation"
	"github.com/giantswarm/gatekeeper/security"
)

// Route patterns served by Handler.Routes.
const (
	RouteAuthenticate = "GET /authenticate/{client}/{code}"
	RouteHealth       = "GET /healthz"
)

// Handler is a thin HTTP adapter for the Server.
// It handles HTTP requests and delegates to the Server for business logic.
type Handler struct {
	server *Server
	logger *slog.Logger
	tracer trace.Tracer // OpenTelemetry tracer for HTTP layer
}

// NewHandler creates a new HTTP handler
func NewHandler(server *Server, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handler{
		server: server,
		logger: logger,
		tracer: tracenoop.NewTracerProvider().Tracer(""),
	}

	if server.instrumentation != nil {
		h.tracer = server.instrumentation.Tracer("http")
	}

	return h
}

// Routes returns the gateway's routes wrapped with request IDs and, when
// configured, otelhttp server instrumentation.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(RouteAuthenticate, h.ServeAuthenticate)
	mux.HandleFunc(RouteHealth, h.ServeHealth)

	var handler http.Handler = mux
	if h.server.instrumentation != nil {
		handler = h.server.instrumentation.HTTPHandler(handler, "gatekeeper")
	}
	return security.RequestIDMiddleware(handler)
}

// ServeAuthenticate handles GET /authenticate/{client}/{code}.
//
// Responses: 404 unknown client, 402 exchange failed, 200 {"token": ...}
// when redirect mode is off, 302 to <base>/<outward client>/<code> when it
// is on. 500 only when the redirect policy in the environment is invalid and
// 429 only when rate limiting is enabled.
func (h *Handler) ServeAuthenticate(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	ctx, span := h.tracer.Start(r.Context(), "gatekeeper.authenticate")
	defer span.End()

	clientIP := security.ClientIP(r, h.proxyTrust())
	instrumentation.SetSpanAttributes(span, attribute.String(instrumentation.AttrClientIP, clientIP))

	if !h.server.Allow(ctx, clientIP) {
		w.Header().Set("Retry-After", strconv.Itoa(int(DefaultRetryAfter.Seconds())))
		h.fail(ctx, w, r, span, ErrRateLimitExceeded(), startTime)
		return
	}

	req := ExchangeRequest{
		ClientID: r.PathValue("client"),
		Code:     r.PathValue("code"),
		ClientIP: clientIP,
	}
	instrumentation.SetSpanAttributes(span, attribute.Int(instrumentation.AttrCodeLength, len(req.Code)))

	result, err := h.server.Authenticate(ctx, req)
	if err != nil {
		if canceled(ctx, err) {
			// The caller is gone; there is nobody to answer.
			security.RequestLogger(ctx, h.logger).Debug("Request cancelled during exchange", "client_id", req.ClientID)
			instrumentation.SetSpanError(span, "request cancelled")
			return
		}

		var gerr *Error
		if !errors.As(err, &gerr) {
			gerr = ErrServerError(err)
		}
		if gerr.Status != http.StatusNotFound {
			instrumentation.SetSpanAttributes(span, attribute.String(instrumentation.AttrClientID, req.ClientID))
		}
		h.fail(ctx, w, r, span, gerr, startTime)
		return
	}

	instrumentation.SetSpanAttributes(span, attribute.String(instrumentation.AttrClientID, result.ClientID))

	if result.Redirect() {
		instrumentation.SetSpanAttributes(span,
			attribute.String(instrumentation.AttrResponseMode, "redirect"),
			attribute.String(instrumentation.AttrOutwardClientID, result.OutwardClientID),
		)
		instrumentation.SetSpanSuccess(span)
		h.writeRedirect(w, r, result.Location)
		h.recordHTTPMetrics(ctx, http.StatusFound, startTime)
		return
	}

	instrumentation.SetSpanAttributes(span, attribute.String(instrumentation.AttrResponseMode, "token"))
	instrumentation.SetSpanSuccess(span)
	h.writeJSON(w, r, http.StatusOK, TokenResponse{Token: result.Token.AccessToken})
	h.recordHTTPMetrics(ctx, http.StatusOK, startTime)
}

// ServeHealth handles GET /healthz.
func (h *Handler) ServeHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, HealthResponse{
		Status:  "ok",
		Clients: h.server.registry.Len(),
	})
}

func (h *Handler) proxyTrust() security.ProxyTrust {
	return security.ProxyTrust{
		Enabled: h.server.config.Security.TrustProxy,
		Hops:    h.server.config.Security.TrustedProxyCount,
	}
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, r *http.Request, span trace.Span, err *Error, startTime time.Time) {
	instrumentation.SetSpanAttributes(span, attribute.String(instrumentation.AttrError, err.Code))
	instrumentation.RecordError(span, err)
	h.writeError(w, r, err)
	h.recordHTTPMetrics(ctx, err.Status, startTime)
}

// writeError writes err's code and public description. The internal cause
// is never written.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err *Error) {
	h.writeJSON(w, r, err.Status, ErrorResponse{
		Error:            err.Code,
		ErrorDescription: err.Description,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	security.SetSecurityHeaders(w, r)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		security.RequestLogger(r.Context(), h.logger).Debug("Failed to write response", "error", err)
	}
}

func (h *Handler) writeRedirect(w http.ResponseWriter, r *http.Request, location string) {
	security.SetSecurityHeaders(w, r)
	w.Header().Set("Location", location)
	w.WriteHeader(http.StatusFound)
}

func (h *Handler) recordHTTPMetrics(ctx context.Context, status int, startTime time.Time) {
	if h.server.instrumentation == nil {
		return
	}

	duration := time.Since(startTime).Seconds() * 1000 // milliseconds
	h.server.instrumentation.Metrics().RecordHTTPRequest(ctx, http.MethodGet, "authenticate", status, duration)
}
