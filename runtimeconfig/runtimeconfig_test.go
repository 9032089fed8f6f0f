package runtimeconfig

import (
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
)

func sourceFrom(values map[string]string) *Source {
	return NewSource(func() map[string]string { return values })
}

func TestSource_Current(t *testing.T) {
	tests := []struct {
		name        string
		environ     map[string]string
		wantEnabled bool
		wantBase    string
		wantRenames map[string]string
	}{
		{
			name:    "nothing configured",
			environ: map[string]string{},
		},
		{
			name:    "renames without redirect are ignored",
			environ: map[string]string{EnvClientRenames: `{"default":"production"}`},
		},
		{
			name:    "blank redirect disables",
			environ: map[string]string{EnvAuthenticateRedirect: "   "},
		},
		{
			name:        "redirect only",
			environ:     map[string]string{EnvAuthenticateRedirect: "https://other.example.net/pre/fix"},
			wantEnabled: true,
			wantBase:    "https://other.example.net/pre/fix",
		},
		{
			name: "redirect with renames",
			environ: map[string]string{
				EnvAuthenticateRedirect: "https://other.example.net/pre/fix",
				EnvClientRenames:        `{"default":"production"}`,
			},
			wantEnabled: true,
			wantBase:    "https://other.example.net/pre/fix",
			wantRenames: map[string]string{"default": "production"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := sourceFrom(tt.environ).Current()
			if err != nil {
				t.Fatalf("Current() error = %v", err)
			}
			if p.Enabled() != tt.wantEnabled {
				t.Errorf("Enabled() = %v, want %v", p.Enabled(), tt.wantEnabled)
			}
			if tt.wantEnabled && p.BaseURL.String() != tt.wantBase {
				t.Errorf("BaseURL = %q, want %q", p.BaseURL.String(), tt.wantBase)
			}
			for id, alias := range tt.wantRenames {
				got, ok := p.Alias(id)
				if !ok || got != alias {
					t.Errorf("Alias(%q) = %q, %v, want %q", id, got, ok, alias)
				}
			}
		})
	}
}

func TestSource_Current_Misconfigured(t *testing.T) {
	tests := []struct {
		name    string
		environ map[string]string
		errMsg  string
	}{
		{
			name:    "relative redirect",
			environ: map[string]string{EnvAuthenticateRedirect: "/pre/fix"},
			errMsg:  "absolute http(s) URL",
		},
		{
			name:    "unsupported scheme",
			environ: map[string]string{EnvAuthenticateRedirect: "javascript:alert(1)"},
			errMsg:  "absolute http(s) URL",
		},
		{
			name:    "missing host",
			environ: map[string]string{EnvAuthenticateRedirect: "https:///path"},
			errMsg:  "has no host",
		},
		{
			name:    "fragment",
			environ: map[string]string{EnvAuthenticateRedirect: "https://example.net/a#frag"},
			errMsg:  "fragment",
		},
		{
			name:    "unparseable url",
			environ: map[string]string{EnvAuthenticateRedirect: "https://exa mple.net/%zz"},
			errMsg:  EnvAuthenticateRedirect,
		},
		{
			name: "malformed renames",
			environ: map[string]string{
				EnvAuthenticateRedirect: "https://example.net",
				EnvClientRenames:        `{"default":`,
			},
			errMsg: EnvClientRenames,
		},
		{
			name: "non-string renames",
			environ: map[string]string{
				EnvAuthenticateRedirect: "https://example.net",
				EnvClientRenames:        `{"default":1}`,
			},
			errMsg: "JSON object of strings",
		},
		{
			name: "empty alias",
			environ: map[string]string{
				EnvAuthenticateRedirect: "https://example.net",
				EnvClientRenames:        `{"default":""}`,
			},
			errMsg: "empty client ids or aliases",
		},
		{
			name: "blank alias",
			environ: map[string]string{
				EnvAuthenticateRedirect: "https://example.net",
				EnvClientRenames:        `{"default":"  "}`,
			},
			errMsg: "empty client ids or aliases",
		},
		{
			name: "empty client id",
			environ: map[string]string{
				EnvAuthenticateRedirect: "https://example.net",
				EnvClientRenames:        `{"":"production"}`,
			},
			errMsg: "empty client ids or aliases",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sourceFrom(tt.environ)
			_, err := s.Current()
			if err == nil {
				t.Fatal("Current() expected error")
			}
			if !errors.Is(err, ErrMisconfiguredRedirect) {
				t.Errorf("Current() error = %v, want ErrMisconfiguredRedirect", err)
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Current() error = %v, want error containing %q", err, tt.errMsg)
			}
			if s.Validate() == nil {
				t.Error("Validate() expected error")
			}
		})
	}
}

func TestSource_Current_ReadsFreshEachCall(t *testing.T) {
	var mu sync.Mutex
	values := map[string]string{}
	s := NewSource(func() map[string]string {
		mu.Lock()
		defer mu.Unlock()
		snapshot := make(map[string]string, len(values))
		for k, v := range values {
			snapshot[k] = v
		}
		return snapshot
	})

	p, err := s.Current()
	if err != nil || p.Enabled() {
		t.Fatalf("Current() = %+v, %v, want disabled", p, err)
	}

	mu.Lock()
	values[EnvAuthenticateRedirect] = "https://example.net"
	mu.Unlock()

	p, err = s.Current()
	if err != nil || !p.Enabled() {
		t.Fatalf("Current() = %+v, %v, want enabled", p, err)
	}

	mu.Lock()
	delete(values, EnvAuthenticateRedirect)
	mu.Unlock()

	p, err = s.Current()
	if err != nil || p.Enabled() {
		t.Fatalf("Current() = %+v, %v, want disabled again", p, err)
	}
}

func TestSource_ProcessEnvironment(t *testing.T) {
	t.Setenv(EnvAuthenticateRedirect, "https://example.net/base")
	t.Setenv(EnvClientRenames, `{"default":"production"}`)

	p, err := NewSource(nil).Current()
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if !p.Enabled() {
		t.Fatal("Enabled() = false, want true")
	}
	if alias, _ := p.Alias("default"); alias != "production" {
		t.Errorf("Alias(default) = %q, want production", alias)
	}
}

func TestPolicy_Location(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		outward string
		code    string
		want    string
	}{
		{
			name:    "extends existing path",
			base:    "https://other.example.net/pre/fix",
			outward: "production",
			code:    "validCode",
			want:    "https://other.example.net/pre/fix/production/validCode",
		},
		{
			name:    "trailing slash",
			base:    "https://other.example.net/pre/fix/",
			outward: "production",
			code:    "abc",
			want:    "https://other.example.net/pre/fix/production/abc",
		},
		{
			name:    "no path",
			base:    "https://other.example.net",
			outward: "default",
			code:    "abc",
			want:    "https://other.example.net/default/abc",
		},
		{
			name:    "query preserved",
			base:    "https://other.example.net/cb?src=gk",
			outward: "default",
			code:    "abc",
			want:    "https://other.example.net/cb/default/abc?src=gk",
		},
		{
			name:    "segments escaped",
			base:    "https://other.example.net/cb",
			outward: "default",
			code:    "../../evil",
			want:    "https://other.example.net/cb/default/..%2F..%2Fevil",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, err := url.Parse(tt.base)
			if err != nil {
				t.Fatalf("url.Parse() error = %v", err)
			}
			p := Policy{BaseURL: base}
			if got := p.Location(tt.outward, tt.code); got != tt.want {
				t.Errorf("Location() = %q, want %q", got, tt.want)
			}
			if p.BaseURL.String() != tt.base {
				t.Errorf("Location() mutated base URL to %q", p.BaseURL.String())
			}
		})
	}

	if got := (Policy{}).Location("a", "b"); got != "" {
		t.Errorf("disabled Location() = %q, want empty", got)
	}
}

func TestStatic(t *testing.T) {
	base, _ := url.Parse("https://example.net")
	p, err := Static{BaseURL: base}.Current()
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if !p.Enabled() {
		t.Error("Enabled() = false, want true")
	}
	if _, ok := p.Alias("default"); ok {
		t.Error("Alias() on empty renames should not be found")
	}
}
