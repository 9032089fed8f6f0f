package clients

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidConfig is returned when the provider or a client fails validation.
var ErrInvalidConfig = errors.New("invalid client configuration")

// Provider describes the upstream OAuth provider shared by all clients.
type Provider struct {
	// Host is the provider host, optionally with a port (e.g. "github.com").
	Host string

	// TokenPath is the token endpoint path (e.g. "/login/oauth/access_token").
	TokenPath string
}

// TokenURL returns the token endpoint for the given path.
// An empty path falls back to the provider's TokenPath.
func (p Provider) TokenURL(path string) string {
	if path == "" {
		path = p.TokenPath
	}
	return "https://" + p.Host + path
}

func (p Provider) validate() error {
	if p.Host == "" {
		return fmt.Errorf("%w: oauth host is required", ErrInvalidConfig)
	}
	if strings.ContainsAny(p.Host, "/?#@ ") {
		return fmt.Errorf("%w: oauth host %q must be a bare host", ErrInvalidConfig, p.Host)
	}
	if !strings.HasPrefix(p.TokenPath, "/") {
		return fmt.Errorf("%w: oauth path %q must start with /", ErrInvalidConfig, p.TokenPath)
	}
	return nil
}

// Client is a registered OAuth client. Values are immutable once registered.
type Client struct {
	// ID is the identifier callers use in the request path.
	ID string

	// OAuthClientID is the client_id sent upstream. Empty means ID.
	OAuthClientID string

	// Secret is the client secret sent upstream.
	Secret string

	// TokenPath overrides the provider token path for this client.
	TokenPath string

	// RenamedAs is the alias used in place of ID in redirect targets.
	RenamedAs string
}

// UpstreamClientID returns the client_id to present to the provider.
func (c Client) UpstreamClientID() string {
	if c.OAuthClientID != "" {
		return c.OAuthClientID
	}
	return c.ID
}

// TokenURL returns the provider token endpoint used for this client.
func (c Client) TokenURL(p Provider) string {
	return p.TokenURL(c.TokenPath)
}

func (c Client) validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: client id cannot be empty", ErrInvalidConfig)
	}
	if strings.Contains(c.ID, "/") {
		return fmt.Errorf("%w: client id %q cannot contain /", ErrInvalidConfig, c.ID)
	}
	if c.Secret == "" {
		return fmt.Errorf("%w: client %q: client secret is required", ErrInvalidConfig, c.ID)
	}
	if c.TokenPath != "" && !strings.HasPrefix(c.TokenPath, "/") {
		return fmt.Errorf("%w: client %q: token path %q must start with /", ErrInvalidConfig, c.ID, c.TokenPath)
	}
	if c.RenamedAs == c.ID {
		return fmt.Errorf("%w: client %q cannot be renamed to itself", ErrInvalidConfig, c.ID)
	}
	return nil
}

// Registry maps client identifiers to their configuration.
type Registry struct {
	provider Provider
	clients  map[string]Client
}

// New validates the provider and clients and builds a Registry.
func New(provider Provider, clients []Client) (*Registry, error) {
	if err := provider.validate(); err != nil {
		return nil, err
	}
	if len(clients) == 0 {
		return nil, fmt.Errorf("%w: at least one client is required", ErrInvalidConfig)
	}

	r := &Registry{
		provider: provider,
		clients:  make(map[string]Client, len(clients)),
	}
	for _, c := range clients {
		if err := c.validate(); err != nil {
			return nil, err
		}
		if _, exists := r.clients[c.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate client %q", ErrInvalidConfig, c.ID)
		}
		r.clients[c.ID] = c
	}

	return r, nil
}

// Lookup returns the client registered under id.
func (r *Registry) Lookup(id string) (Client, bool) {
	c, ok := r.clients[id]
	return c, ok
}

// Provider returns the upstream provider configuration.
func (r *Registry) Provider() Provider {
	return r.provider
}

// Len returns the number of registered clients.
func (r *Registry) Len() int {
	return len(r.clients)
}

// IDs returns the registered client identifiers in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
