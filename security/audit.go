package security

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
)

// EventRecorder counts audit events, typically *instrumentation.Metrics.
type EventRecorder interface {
	RecordAuditEvent(ctx context.Context, eventType string)
}

// Auditor writes security audit records through slog.
//
// Authorization codes are never logged. A truncated SHA-256 of the code is
// logged instead so repeated submissions of one code can be correlated.
type Auditor struct {
	logger   *slog.Logger
	enabled  bool
	recorder EventRecorder
}

// NewAuditor returns an Auditor. A nil logger uses slog.Default; a nil
// recorder disables event counting.
func NewAuditor(logger *slog.Logger, enabled bool, recorder EventRecorder) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{
		logger:   logger,
		enabled:  enabled,
		recorder: recorder,
	}
}

// Event is a single audit record.
type Event struct {
	Type      string
	ClientID  string
	Outward   string
	IPAddress string
	Code      string
	Details   map[string]any
}

// Log writes event if auditing is enabled.
func (a *Auditor) Log(ctx context.Context, event Event) {
	if a == nil || !a.enabled {
		return
	}

	if a.recorder != nil {
		a.recorder.RecordAuditEvent(ctx, event.Type)
	}

	attrs := []any{
		"event_type", event.Type,
		"ip_address", event.IPAddress,
	}
	if event.ClientID != "" {
		attrs = append(attrs, "client_id", event.ClientID)
	}
	if event.Outward != "" && event.Outward != event.ClientID {
		attrs = append(attrs, "outward_client_id", event.Outward)
	}
	if event.Code != "" {
		attrs = append(attrs, "code_hash", hashForLogging(event.Code))
	}
	if len(event.Details) > 0 {
		attrs = append(attrs, "details", event.Details)
	}

	RequestLogger(ctx, a.logger).InfoContext(ctx, "security_audit", attrs...)
}

// LogExchangeSucceeded records a successful exchange and how it was answered.
func (a *Auditor) LogExchangeSucceeded(ctx context.Context, clientID, outward, ip, code, mode string) {
	a.Log(ctx, Event{
		Type:      EventExchangeSucceeded,
		ClientID:  clientID,
		Outward:   outward,
		IPAddress: ip,
		Code:      code,
		Details:   map[string]any{"response_mode": mode},
	})
}

// LogExchangeFailed records a failed exchange.
func (a *Auditor) LogExchangeFailed(ctx context.Context, clientID, ip, code, reason string) {
	a.Log(ctx, Event{
		Type:      EventExchangeFailed,
		ClientID:  clientID,
		IPAddress: ip,
		Code:      code,
		Details:   map[string]any{"reason": reason},
	})
}

// LogUnknownClient records a lookup miss. The requested identifier is
// attacker controlled and is not logged.
func (a *Auditor) LogUnknownClient(ctx context.Context, ip string) {
	a.Log(ctx, Event{
		Type:      EventUnknownClient,
		IPAddress: ip,
	})
}

// LogRateLimitExceeded records a rejected request.
func (a *Auditor) LogRateLimitExceeded(ctx context.Context, ip string) {
	a.Log(ctx, Event{
		Type:      EventRateLimitExceeded,
		IPAddress: ip,
	})
}

// LogRedirectMisconfigured records a request that could not be served
// because the redirect policy is invalid.
func (a *Auditor) LogRedirectMisconfigured(ctx context.Context, clientID, ip string, err error) {
	a.Log(ctx, Event{
		Type:      EventRedirectMisconfigured,
		ClientID:  clientID,
		IPAddress: ip,
		Details:   map[string]any{"error": err.Error()},
	})
}

func hashForLogging(sensitive string) string {
	if sensitive == "" {
		return "<empty>"
	}
	sum := sha256.Sum256([]byte(sensitive))
	return hex.EncodeToString(sum[:])[:16]
}
