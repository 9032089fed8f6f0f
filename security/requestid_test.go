package security

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewRequestID(t *testing.T) {
	a := NewRequestID()
	b := NewRequestID()

	if len(a) != 22 {
		t.Errorf("len(NewRequestID()) = %d, want 22", len(a))
	}
	if a == b {
		t.Error("NewRequestID() returned the same value twice")
	}
	if !acceptableRequestID(a) {
		t.Errorf("generated ID %q is not acceptable", a)
	}
}

func TestRequestIDContext(t *testing.T) {
	if got := RequestIDFrom(context.Background()); got != "" {
		t.Errorf("RequestIDFrom(empty) = %q, want empty", got)
	}

	ctx := WithRequestID(context.Background(), "req-1")
	if got := RequestIDFrom(ctx); got != "req-1" {
		t.Errorf("RequestIDFrom() = %q, want %q", got, "req-1")
	}
}

func TestAcceptableRequestID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"abc123", true},
		{"request_id-123", true},
		{"550e8400-e29b-41d4-a716-446655440000", true},
		{"a", true},
		{strings.Repeat("a", 128), true},
		{strings.Repeat("a", 129), false},
		{"", false},
		{"id\r\nX-Injected: evil", false},
		{"id 123", false},
		{"id=123", false},
		{"id/123", false},
		{"id.123", false},
		{"id\x00123", false},
		{"<script>", false},
	}

	for _, tt := range tests {
		if got := acceptableRequestID(tt.id); got != tt.want {
			t.Errorf("acceptableRequestID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		inbound  string
		wantKeep bool
	}{
		{name: "mints when absent", inbound: "", wantKeep: false},
		{name: "keeps acceptable upstream ID", inbound: "upstream-id_42", wantKeep: true},
		{name: "replaces ID with spaces", inbound: "id with spaces", wantKeep: false},
		{name: "replaces oversized ID", inbound: strings.Repeat("x", 200), wantKeep: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := RequestIDMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				seen = RequestIDFrom(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			if tt.inbound != "" {
				req.Header.Set(RequestIDHeader, tt.inbound)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			echoed := rec.Header().Get(RequestIDHeader)
			if echoed == "" || echoed != seen {
				t.Fatalf("response header %q, context %q; want equal and non-empty", echoed, seen)
			}
			if tt.wantKeep && seen != tt.inbound {
				t.Errorf("request ID = %q, want %q", seen, tt.inbound)
			}
			if !tt.wantKeep && seen == tt.inbound {
				t.Errorf("request ID %q should have been replaced", seen)
			}
		})
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	RequestLogger(WithRequestID(context.Background(), "req-7"), base).Info("hello")
	if !strings.Contains(buf.String(), "request_id=req-7") {
		t.Errorf("log line %q missing request_id", buf.String())
	}

	buf.Reset()
	RequestLogger(context.Background(), base).Info("hello")
	if strings.Contains(buf.String(), "request_id") {
		t.Errorf("log line %q should not carry request_id", buf.String())
	}

	if RequestLogger(context.Background(), nil) == nil {
		t.Error("RequestLogger(nil logger) returned nil")
	}
}
