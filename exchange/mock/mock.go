// Package mock provides a test double for the token exchanger.
package mock

import (
	"context"
	"sync"

	"golang.org/x/oauth2"

	"github.com/giantswarm/gatekeeper/clients"
	"github.com/giantswarm/gatekeeper/exchange"
)

// Call records the arguments of one Exchange invocation.
type Call struct {
	Client clients.Client
	Code   string
}

// Exchanger is a configurable stand-in for *exchange.Exchanger.
type Exchanger struct {
	// ExchangeFunc is called by Exchange. Nil returns a rejection.
	ExchangeFunc func(ctx context.Context, client clients.Client, code string) (*oauth2.Token, error)

	mu    sync.Mutex
	calls []Call
}

// NewExchanger returns an Exchanger that issues token for every code.
func NewExchanger(token string) *Exchanger {
	return &Exchanger{
		ExchangeFunc: func(context.Context, clients.Client, string) (*oauth2.Token, error) {
			return &oauth2.Token{AccessToken: token, TokenType: "bearer"}, nil
		},
	}
}

// Failing returns an Exchanger that fails every call with reason.
func Failing(reason exchange.Reason) *Exchanger {
	return &Exchanger{
		ExchangeFunc: func(context.Context, clients.Client, string) (*oauth2.Token, error) {
			return nil, &exchange.Error{Reason: reason, Err: oauth2ErrorFor(reason)}
		},
	}
}

// Exchange records the call and delegates to ExchangeFunc.
func (m *Exchanger) Exchange(ctx context.Context, client clients.Client, code string) (*oauth2.Token, error) {
	// Release the lock before calling out so ExchangeFunc may inspect Calls.
	m.mu.Lock()
	m.calls = append(m.calls, Call{Client: client, Code: code})
	fn := m.ExchangeFunc
	m.mu.Unlock()

	if fn == nil {
		return nil, &exchange.Error{Reason: exchange.ReasonRejected, Err: exchange.ErrUpstreamRejected}
	}
	return fn(ctx, client, code)
}

// Calls returns a copy of the recorded calls.
func (m *Exchanger) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of Exchange calls.
func (m *Exchanger) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func oauth2ErrorFor(reason exchange.Reason) error {
	if reason == exchange.ReasonUnreachable {
		return context.DeadlineExceeded
	}
	return &oauth2.RetrieveError{ErrorCode: "bad_verification_code"}
}
