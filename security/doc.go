// Package security provides the request-level protections of the gateway:
// per-IP rate limiting, client IP resolution behind proxies, request IDs,
// response headers and audit logging.
//
// # Rate Limiting
//
// RateLimiter keeps one token bucket per key (normally the client IP) and
// bounds memory with LRU eviction plus a periodic sweep of idle buckets.
//
//	limiter := security.NewRateLimiter(security.RateLimiterConfig{
//		Rate:   5,
//		Burst:  20,
//		Logger: logger,
//	})
//	defer limiter.Stop()
//
//	if !limiter.Allow(security.ClientIP(r, trust)) {
//		// 429
//	}
//
// Defaults: 10,000 tracked keys, a sweep every 5 minutes, buckets idle for
// 30 minutes are dropped.
//
// # Client IP
//
// ClientIP only reads X-Forwarded-For and X-Real-IP when ProxyTrust.Enabled
// is set. Enable it only behind a reverse proxy that overwrites these headers.
//
// # Audit Logging
//
// Auditor emits "security_audit" records. Authorization codes and client
// secrets are never written; codes appear as a truncated SHA-256 hash.
package security
