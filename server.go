package gatekeeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"

	"github.com/giantswarm/gatekeeper/clients"
	"github.com/giantswarm/gatekeeper/exchange"
	"github.com/giantswarm/gatekeeper/instrumentation"
	"github.com/giantswarm/gatekeeper/runtimeconfig"
	"github.com/giantswarm/gatekeeper/security"
)

// ClientRegistry resolves client identifiers. *clients.Registry implements it.
type ClientRegistry interface {
	Lookup(id string) (clients.Client, bool)
	Len() int
}

// TokenExchanger trades a code for a token. *exchange.Exchanger implements it.
// Failures should be *exchange.Error so they can be classified.
type TokenExchanger interface {
	Exchange(ctx context.Context, client clients.Client, code string) (*oauth2.Token, error)
}

// PolicySource yields the redirect policy in force for one request.
// *runtimeconfig.Source implements it.
type PolicySource interface {
	Current() (runtimeconfig.Policy, error)
}

// Server implements the exchange logic independently of HTTP.
type Server struct {
	registry  ClientRegistry
	exchanger TokenExchanger
	policies  PolicySource

	auditor         *security.Auditor
	rateLimiter     *security.RateLimiter
	instrumentation *instrumentation.Instrumentation
	logger          *slog.Logger
	config          *Config
}

// NewServer creates a new Server. A nil policies reads the process
// environment on every request.
func NewServer(registry ClientRegistry, exchanger TokenExchanger, policies PolicySource, config *Config) (*Server, error) {
	if registry == nil {
		return nil, fmt.Errorf("client registry is required")
	}
	if exchanger == nil {
		return nil, fmt.Errorf("token exchanger is required")
	}
	if policies == nil {
		policies = runtimeconfig.NewSource(nil)
	}
	if config == nil {
		config = &Config{}
	}
	config = applyDefaults(config)

	s := &Server{
		registry:        registry,
		exchanger:       exchanger,
		policies:        policies,
		instrumentation: config.Instrumentation,
		logger:          config.Logger,
		config:          config,
	}

	var recorder security.EventRecorder
	if s.instrumentation != nil {
		recorder = s.instrumentation.Metrics()
		if err := s.instrumentation.RegisterClientCountCallback(func() int64 {
			return int64(registry.Len())
		}); err != nil {
			return nil, fmt.Errorf("failed to register client count metric: %w", err)
		}
	}
	s.auditor = security.NewAuditor(s.logger, config.Security.EnableAuditLogging, recorder)

	if config.RateLimit.Rate > 0 {
		s.rateLimiter = security.NewRateLimiter(security.RateLimiterConfig{
			Rate:            config.RateLimit.Rate,
			Burst:           config.RateLimit.Burst,
			MaxEntries:      config.RateLimit.MaxEntries,
			CleanupInterval: config.RateLimit.CleanupInterval,
			Logger:          s.logger,
		})
	}

	return s, nil
}

// Close releases background resources.
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}

// Allow reports whether a request from clientIP is within the rate limit.
// It always returns true when rate limiting is disabled.
func (s *Server) Allow(ctx context.Context, clientIP string) bool {
	if s.rateLimiter == nil || s.rateLimiter.Allow(clientIP) {
		return true
	}

	s.logger.Warn("Rate limit exceeded", "ip", clientIP)
	if s.instrumentation != nil {
		s.instrumentation.Metrics().RecordRateLimitExceeded(ctx, "ip")
	}
	s.auditor.LogRateLimitExceeded(ctx, clientIP)
	return false
}

// Authenticate resolves the client, exchanges the code and decides how the
// success is answered. Every failure is an *Error.
//
// The redirect policy is resolved before the exchange so a misconfigured
// environment fails without spending the caller's single-use code.
func (s *Server) Authenticate(ctx context.Context, req ExchangeRequest) (*ExchangeResult, error) {
	logger := security.RequestLogger(ctx, s.logger)

	client, ok := s.registry.Lookup(req.ClientID)
	if !ok {
		logger.Info("Unknown client requested", "ip", req.ClientIP)
		s.recordClientUnknown(ctx)
		s.auditor.LogUnknownClient(ctx, req.ClientIP)
		return nil, ErrUnknownClient()
	}

	policy, err := s.policies.Current()
	if err != nil {
		logger.Error("Redirect policy is misconfigured", "client_id", client.ID, "error", err)
		s.auditor.LogRedirectMisconfigured(ctx, client.ID, req.ClientIP, err)
		return nil, ErrServerError(err)
	}

	token, err := s.exchanger.Exchange(ctx, client, req.Code)
	if err == nil && (token == nil || token.AccessToken == "") {
		err = &exchange.Error{Reason: exchange.ReasonRejected, Err: errors.New("exchanger returned no access token")}
	}
	if err != nil {
		reason := exchange.ReasonOf(err)
		if reason == "" {
			reason = exchange.ReasonRejected
		}
		s.recordCodeExchange(ctx, client.ID, string(reason))
		s.auditor.LogExchangeFailed(ctx, client.ID, req.ClientIP, req.Code, string(reason))

		if reason == exchange.ReasonUnreachable {
			return nil, ErrUpstreamUnreachable(err)
		}
		return nil, ErrBadCode(err)
	}
	s.recordCodeExchange(ctx, client.ID, "success")

	result := &ExchangeResult{
		ClientID: client.ID,
		Token:    token,
	}

	if !policy.Enabled() {
		s.auditor.LogExchangeSucceeded(ctx, client.ID, "", req.ClientIP, req.Code, "token")
		return result, nil
	}

	result.OutwardClientID = outwardClientID(policy, client)
	result.Location = policy.Location(result.OutwardClientID, req.Code)

	if s.instrumentation != nil {
		s.instrumentation.Metrics().RecordRedirectIssued(ctx, client.ID, result.OutwardClientID != client.ID)
	}
	s.auditor.LogExchangeSucceeded(ctx, client.ID, result.OutwardClientID, req.ClientIP, req.Code, "redirect")

	return result, nil
}

// outwardClientID picks the identifier placed in the redirect target: the
// environment rename table first, then the client's configured alias.
func outwardClientID(policy runtimeconfig.Policy, client clients.Client) string {
	if alias, ok := policy.Alias(client.ID); ok {
		return alias
	}
	if client.RenamedAs != "" {
		return client.RenamedAs
	}
	return client.ID
}

func (s *Server) recordClientUnknown(ctx context.Context) {
	if s.instrumentation != nil {
		s.instrumentation.Metrics().RecordClientUnknown(ctx)
	}
}

func (s *Server) recordCodeExchange(ctx context.Context, clientID, outcome string) {
	if s.instrumentation != nil {
		s.instrumentation.Metrics().RecordCodeExchange(ctx, clientID, outcome)
	}
}

// canceled reports whether err stems from the caller going away.
func canceled(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.Canceled) {
		return true
	}
	var xerr *exchange.Error
	return errors.As(err, &xerr) && xerr.Canceled()
}
