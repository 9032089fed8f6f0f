package testutil

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// TokenServer is a TLS test server standing in for an upstream OAuth
// provider's token endpoint. It records every form it receives.
type TokenServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []url.Values
	handler  http.HandlerFunc
}

// NewTokenServer starts a TokenServer answering with handler.
// The server is closed when the test ends.
func NewTokenServer(t *testing.T, handler http.HandlerFunc) *TokenServer {
	t.Helper()

	s := &TokenServer{handler: handler}
	s.Server = httptest.NewTLSServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)

	return s
}

func (s *TokenServer) serve(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()

	s.mu.Lock()
	s.requests = append(s.requests, r.PostForm)
	handler := s.handler
	s.mu.Unlock()

	handler(w, r)
}

// Host returns the server's host:port, suitable for an oauth_host setting.
func (s *TokenServer) Host() string {
	return strings.TrimPrefix(s.URL, "https://")
}

// Requests returns the forms received so far.
func (s *TokenServer) Requests() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]url.Values, len(s.requests))
	copy(out, s.requests)
	return out
}

// SetHandler replaces the response handler.
func (s *TokenServer) SetHandler(handler http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = handler
}

// TokenResponse answers POSTs with a bearer token, like GitHub does for a
// valid code.
func TokenResponse(token string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token": token,
			"token_type":   "bearer",
		})
	}
}

// ErrorResponse answers with an OAuth error body and the given status.
// GitHub reports bad codes with status 200 and an error field.
func ErrorResponse(status int, code string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":             code,
			"error_description": "The code passed is incorrect or expired.",
		})
	}
}

// RawResponse answers with a fixed body and content type.
func RawResponse(status int, contentType, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

// CollectSum returns the sum of all data points of an int64 counter.
func CollectSum(t *testing.T, reader sdkmetric.Reader, name string) int64 {
	t.Helper()

	var total int64
	for _, m := range collect(t, reader) {
		if m.Name != name {
			continue
		}
		if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

// CollectGauge returns the last observed value of an int64 gauge.
func CollectGauge(t *testing.T, reader sdkmetric.Reader, name string) int64 {
	t.Helper()

	for _, m := range collect(t, reader) {
		if m.Name != name {
			continue
		}
		if gauge, ok := m.Data.(metricdata.Gauge[int64]); ok && len(gauge.DataPoints) > 0 {
			return gauge.DataPoints[len(gauge.DataPoints)-1].Value
		}
	}
	return 0
}

func collect(t *testing.T, reader sdkmetric.Reader) []metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	var out []metricdata.Metrics
	for _, sm := range rm.ScopeMetrics {
		out = append(out, sm.Metrics...)
	}
	return out
}

// WriteConfig writes a client configuration document to a temp file and
// returns its path.
func WriteConfig(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

// GenerateRandomString generates a random base64-encoded string
func GenerateRandomString(length int) string {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("failed to generate random string: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)[:length]
}

// AssertNoError fails the test if err is not nil
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error but got nil")
	}
}

// AssertEqual fails the test if got != want
func AssertEqual(t *testing.T, got, want any) {
	t.Helper()
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

// AssertStringContains fails the test if s does not contain substr
func AssertStringContains(t *testing.T, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("string %q does not contain %q", s, substr)
	}
}

// AssertStringNotContains fails the test if s contains substr
func AssertStringNotContains(t *testing.T, s, substr string) {
	t.Helper()
	if strings.Contains(s, substr) {
		t.Errorf("string %q should not contain %q", s, substr)
	}
}
