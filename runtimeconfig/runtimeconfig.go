// Package runtimeconfig derives the redirect policy from the process
// environment at request time, so operators can toggle redirect mode and
// client renames without restarting the gateway.
package runtimeconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Environment variables read on every call to Current.
const (
	EnvAuthenticateRedirect = "GATEKEEPER_AUTHENTICATE_REDIRECT"
	EnvClientRenames        = "GATEKEEPER_CLIENT_RENAMES"
)

// ErrMisconfiguredRedirect is returned when the redirect base URL or the
// rename table cannot be parsed.
var ErrMisconfiguredRedirect = errors.New("misconfigured redirect")

// Policy decides how a successful exchange is answered.
type Policy struct {
	// BaseURL is the redirect target prefix. Nil disables redirect mode.
	BaseURL *url.URL

	// Renames maps real client identifiers to the aliases used in redirects.
	Renames map[string]string
}

// Enabled reports whether successful exchanges are answered with a redirect.
func (p Policy) Enabled() bool {
	return p.BaseURL != nil
}

// Alias returns the rename configured for clientID, if any.
func (p Policy) Alias(clientID string) (string, bool) {
	alias, ok := p.Renames[clientID]
	if !ok || alias == "" {
		return "", false
	}
	return alias, true
}

// Location returns the redirect target for the given outward client
// identifier and code. Both are appended as escaped path segments to the
// base URL; an existing base path and query are preserved.
func (p Policy) Location(outwardClientID, code string) string {
	if p.BaseURL == nil {
		return ""
	}

	u := *p.BaseURL
	basePath := strings.TrimSuffix(u.Path, "/")
	baseRawPath := strings.TrimSuffix(u.EscapedPath(), "/")

	u.Path = basePath + "/" + outwardClientID + "/" + code
	u.RawPath = baseRawPath + "/" + url.PathEscape(outwardClientID) + "/" + url.PathEscape(code)

	return u.String()
}

// rawEnv holds the raw environment values before validation.
type rawEnv struct {
	AuthenticateRedirect string `env:"GATEKEEPER_AUTHENTICATE_REDIRECT"`
	ClientRenames        string `env:"GATEKEEPER_CLIENT_RENAMES"`
}

// Source reads the policy from an environment snapshot on every call.
type Source struct {
	environ func() map[string]string
}

// NewSource returns a Source reading from environ.
// A nil environ reads the process environment.
func NewSource(environ func() map[string]string) *Source {
	if environ == nil {
		environ = OSEnvironment
	}
	return &Source{environ: environ}
}

// OSEnvironment returns a snapshot of the process environment.
func OSEnvironment() map[string]string {
	return env.ToMap(os.Environ())
}

// Current parses the policy from a fresh environment snapshot.
// No value is cached between calls.
func (s *Source) Current() (Policy, error) {
	var raw rawEnv
	if err := env.ParseWithOptions(&raw, env.Options{Environment: s.environ()}); err != nil {
		return Policy{}, fmt.Errorf("parse env: %w", err)
	}
	return parse(raw)
}

// Validate checks the current environment once, for startup validation.
func (s *Source) Validate() error {
	_, err := s.Current()
	return err
}

func parse(raw rawEnv) (Policy, error) {
	redirect := strings.TrimSpace(raw.AuthenticateRedirect)
	if redirect == "" {
		// Renames are irrelevant without a redirect target.
		return Policy{}, nil
	}

	base, err := parseBaseURL(redirect)
	if err != nil {
		return Policy{}, err
	}

	renames, err := parseRenames(raw.ClientRenames)
	if err != nil {
		return Policy{}, err
	}

	return Policy{BaseURL: base, Renames: renames}, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMisconfiguredRedirect, EnvAuthenticateRedirect, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return nil, fmt.Errorf("%w: %s must be an absolute http(s) URL", ErrMisconfiguredRedirect, EnvAuthenticateRedirect)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: %s has no host", ErrMisconfiguredRedirect, EnvAuthenticateRedirect)
	}
	if u.Fragment != "" {
		return nil, fmt.Errorf("%w: %s cannot carry a fragment", ErrMisconfiguredRedirect, EnvAuthenticateRedirect)
	}
	return u, nil
}

func parseRenames(raw string) (map[string]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var renames map[string]string
	if err := json.Unmarshal([]byte(raw), &renames); err != nil {
		return nil, fmt.Errorf("%w: %s must be a JSON object of strings: %v", ErrMisconfiguredRedirect, EnvClientRenames, err)
	}
	for id, alias := range renames {
		if strings.TrimSpace(id) == "" || strings.TrimSpace(alias) == "" {
			return nil, fmt.Errorf("%w: %s cannot contain empty client ids or aliases", ErrMisconfiguredRedirect, EnvClientRenames)
		}
	}
	return renames, nil
}

// Static is a fixed Policy. It satisfies the same Current contract as Source.
type Static Policy

// Current returns the fixed policy.
func (s Static) Current() (Policy, error) {
	return Policy(s), nil
}
