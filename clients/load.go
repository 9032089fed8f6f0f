package clients

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk configuration format.
type fileConfig struct {
	OAuthHost string                `yaml:"oauth_host" json:"oauth_host"`
	OAuthPath string                `yaml:"oauth_path" json:"oauth_path"`
	Clients   map[string]fileClient `yaml:"clients" json:"clients"`
}

type fileClient struct {
	ClientID     string `yaml:"client_id,omitempty" json:"client_id,omitempty"`
	ClientSecret string `yaml:"client_secret" json:"client_secret"`
	TokenPath    string `yaml:"token_path,omitempty" json:"token_path,omitempty"`
	RenamedAs    string `yaml:"renamed_as,omitempty" json:"renamed_as,omitempty"`
}

// providerEnv holds environment overrides for the provider location.
type providerEnv struct {
	OAuthHost string `env:"GATEKEEPER_OAUTH_HOST"`
	OAuthPath string `env:"GATEKEEPER_OAUTH_PATH"`
}

// Load reads the configuration file at path and builds a Registry.
// environ supplies the override variables; nil means the process environment.
func Load(path string, environ map[string]string) (*Registry, error) {
	f, err := os.Open(path) // #nosec G304 -- operator supplied config path
	if err != nil {
		return nil, fmt.Errorf("open client config: %w", err)
	}
	defer func() { _ = f.Close() }()

	r, err := Parse(f, environ)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return r, nil
}

// Parse decodes a configuration document and builds a Registry.
// Unknown fields are rejected so typos fail at startup, not per request.
func Parse(r io.Reader, environ map[string]string) (*Registry, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read client config: %w", err)
	}

	var cfg fileConfig
	if err := decode(content, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	var overrides providerEnv
	if err := env.ParseWithOptions(&overrides, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if overrides.OAuthHost != "" {
		cfg.OAuthHost = overrides.OAuthHost
	}
	if overrides.OAuthPath != "" {
		cfg.OAuthPath = overrides.OAuthPath
	}

	list := make([]Client, 0, len(cfg.Clients))
	for id, fc := range cfg.Clients {
		list = append(list, Client{
			ID:            id,
			OAuthClientID: fc.ClientID,
			Secret:        fc.ClientSecret,
			TokenPath:     fc.TokenPath,
			RenamedAs:     fc.RenamedAs,
		})
	}

	return New(Provider{Host: cfg.OAuthHost, TokenPath: cfg.OAuthPath}, list)
}

// decode accepts JSON documents as well as YAML. JSON is routed through
// encoding/json because tab-indented JSON is not valid YAML.
func decode(content []byte, cfg *fileConfig) error {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 {
		return errors.New("empty configuration")
	}

	if trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.DisallowUnknownFields()
		return dec.Decode(cfg)
	}

	dec := yaml.NewDecoder(bytes.NewReader(trimmed))
	dec.KnownFields(true)
	return dec.Decode(cfg)
}
