package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/giantswarm/gatekeeper/clients"
	"github.com/giantswarm/gatekeeper/exchange"
)

func TestExchanger_Token(t *testing.T) {
	m := NewExchanger("tok")
	client := clients.Client{ID: "default", Secret: "s"}

	token, err := m.Exchange(context.Background(), client, "code-1")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if token.AccessToken != "tok" {
		t.Errorf("AccessToken = %q, want tok", token.AccessToken)
	}

	calls := m.Calls()
	if len(calls) != 1 || calls[0].Code != "code-1" || calls[0].Client.ID != "default" {
		t.Errorf("Calls() = %+v", calls)
	}
}

func TestFailing(t *testing.T) {
	tests := []struct {
		reason exchange.Reason
		want   error
	}{
		{exchange.ReasonRejected, exchange.ErrUpstreamRejected},
		{exchange.ReasonUnreachable, exchange.ErrUpstreamUnreachable},
	}

	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			m := Failing(tt.reason)
			_, err := m.Exchange(context.Background(), clients.Client{ID: "a"}, "c")
			if !errors.Is(err, tt.want) {
				t.Errorf("error %v does not match %v", err, tt.want)
			}
			if m.CallCount() != 1 {
				t.Errorf("CallCount() = %d, want 1", m.CallCount())
			}
		})
	}
}

func TestExchanger_NilFunc(t *testing.T) {
	m := &Exchanger{}
	_, err := m.Exchange(context.Background(), clients.Client{ID: "a"}, "c")
	if exchange.ReasonOf(err) != exchange.ReasonRejected {
		t.Errorf("ReasonOf() = %q, want %q", exchange.ReasonOf(err), exchange.ReasonRejected)
	}
}
