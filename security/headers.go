package security

import "net/http"

// SetSecurityHeaders sets response headers for token-bearing responses.
// HSTS is only sent when the request arrived over TLS.
func SetSecurityHeaders(w http.ResponseWriter, r *http.Request) {
	h := w.Header()

	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
	h.Set("Referrer-Policy", "no-referrer")

	// Responses may carry an access token.
	h.Set("Cache-Control", "no-store")
	h.Set("Pragma", "no-cache")

	if r != nil && r.TLS != nil {
		h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
	}
}
