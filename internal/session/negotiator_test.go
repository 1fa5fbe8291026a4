package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vietddude/walletlink/internal/core/domain"
)

func TestNegotiate_NotInstalled(t *testing.T) {
	n, _ := newTestNegotiator(newFakeRegistry(), domain.NetworkTestnet)

	for _, name := range []string{"alpha", "nami", "yoroi"} {
		out := n.Negotiate(context.Background(), name)
		if out.Connected() {
			t.Fatalf("%s: expected failure", name)
		}
		if out.Category != domain.CategoryNotInstalled {
			t.Errorf("%s: category = %s, want not_installed", name, out.Category)
		}
		if !strings.Contains(out.Message, name) {
			t.Errorf("%s: message %q does not name the provider", name, out.Message)
		}
		if !errors.Is(out.Err, ErrNotInstalled) {
			t.Errorf("%s: expected ErrNotInstalled, got %v", name, out.Err)
		}
	}
}

func TestNegotiate_WrongNetwork(t *testing.T) {
	tests := []struct {
		name      string
		network   domain.Network
		reported  int
		wantLabel string
	}{
		{"mainnet wallet on testnet app", domain.NetworkTestnet, 1, "Testnet"},
		{"testnet wallet on mainnet app", domain.NetworkMainnet, 0, "Mainnet"},
		{"unknown id on mainnet app", domain.NetworkMainnet, 42, "Mainnet"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handle := newFakeCapability(tt.reported, addresses("stake1abc"))
			n, _ := newTestNegotiator(newFakeRegistry(newFakeProvider("beta", handle)), tt.network)

			out := n.Negotiate(context.Background(), "beta")
			if out.Category != domain.CategoryWrongNetwork {
				t.Fatalf("category = %s, want wrong_network", out.Category)
			}
			if !strings.Contains(out.Message, "Network mismatch") || !strings.Contains(out.Message, tt.wantLabel) {
				t.Errorf("unexpected message %q", out.Message)
			}
			if handle.calls() != 0 {
				t.Errorf("reward addresses should not be queried, got %d calls", handle.calls())
			}
		})
	}
}

func TestNegotiate_Connected(t *testing.T) {
	handle := newFakeCapability(1, addresses("stake1abc", "stake1def"))
	n, rec := newTestNegotiator(newFakeRegistry(newFakeProvider("eternl", handle)), domain.NetworkMainnet)

	out := n.Negotiate(context.Background(), "eternl")
	if !out.Connected() {
		t.Fatalf("expected connected, got %+v", out)
	}
	if out.StakeAddress != "stake1abc" || !out.HasStakeAddress {
		t.Errorf("stake address = %q (%v), want stake1abc", out.StakeAddress, out.HasStakeAddress)
	}
	if out.Capability != handle {
		t.Error("expected the enabled handle to be returned")
	}
	if out.AttemptID == "" {
		t.Error("expected an attempt id")
	}

	waits := rec.recorded()
	if len(waits) != 1 || waits[0] != 100*time.Millisecond {
		t.Errorf("expected a single 100ms settle delay, got %v", waits)
	}
}

func TestNegotiate_EmptyRewardList(t *testing.T) {
	handle := newFakeCapability(0, addresses())
	n, _ := newTestNegotiator(newFakeRegistry(newFakeProvider("gero", handle)), domain.NetworkTestnet)

	out := n.Negotiate(context.Background(), "gero")
	if !out.Connected() {
		t.Fatalf("expected connected, got %+v", out)
	}
	if out.HasStakeAddress || out.StakeAddress != "" {
		t.Errorf("expected absent stake address, got %q", out.StakeAddress)
	}
}

func TestNegotiate_EnableRejected(t *testing.T) {
	p := newFakeProvider("nami", newFakeCapability(0))
	p.enableErr = errors.New("user declined")
	n, _ := newTestNegotiator(newFakeRegistry(p), domain.NetworkTestnet)

	out := n.Negotiate(context.Background(), "nami")
	if out.Category != domain.CategoryGeneric {
		t.Fatalf("category = %s, want generic", out.Category)
	}
	if out.Message != "Error connecting to nami: user declined" {
		t.Errorf("unexpected message %q", out.Message)
	}
	if !errors.Is(out.Err, p.enableErr) {
		t.Errorf("expected wrapped enable error, got %v", out.Err)
	}
}

func TestNegotiate_NetworkQueryFailure(t *testing.T) {
	handle := newFakeCapability(0)
	handle.networkErr = errors.New("wallet locked")
	n, _ := newTestNegotiator(newFakeRegistry(newFakeProvider("nami", handle)), domain.NetworkTestnet)

	out := n.Negotiate(context.Background(), "nami")
	if out.Message != "Error connecting to nami: wallet locked" {
		t.Errorf("unexpected message %q", out.Message)
	}
}

func TestNegotiate_ReEnableHandsFreshHandle(t *testing.T) {
	stale := newFakeCapability(0, accountChanged())
	fresh := newFakeCapability(0, addresses("stake_test1fresh"))
	p := newFakeProvider("typhon", stale, fresh)
	n, _ := newTestNegotiator(newFakeRegistry(p), domain.NetworkTestnet)

	out := n.Negotiate(context.Background(), "typhon")
	if !out.Connected() {
		t.Fatalf("expected connected, got %+v", out)
	}
	if out.Capability != fresh {
		t.Error("expected the re-enabled handle to be handed to the host")
	}
	if p.enables() != 2 {
		t.Errorf("expected 2 enable calls, got %d", p.enables())
	}
	if out.StakeAddress != "stake_test1fresh" {
		t.Errorf("unexpected stake address %q", out.StakeAddress)
	}
}

func TestNegotiate_RetryExhaustedIsGeneric(t *testing.T) {
	handle := newFakeCapability(0, accountChanged())
	n, _ := newTestNegotiator(newFakeRegistry(newFakeProvider("flint", handle)), domain.NetworkTestnet)

	out := n.Negotiate(context.Background(), "flint")
	if out.Connected() {
		t.Fatal("expected failure")
	}
	if out.Category != domain.CategoryGeneric {
		t.Errorf("category = %s, want generic", out.Category)
	}
	if out.Message != "Error connecting to flint: Account changed" {
		t.Errorf("unexpected message %q", out.Message)
	}
}
