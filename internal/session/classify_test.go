package session

import (
	"errors"
	"strings"
	"testing"

	"github.com/vietddude/walletlink/internal/core/domain"
)

func TestClassifier_Classify(t *testing.T) {
	c := NewClassifier(domain.NetworkTestnet)

	tests := []struct {
		raw          string
		source       Source
		wantCategory domain.ErrorCategory
		wantMessage  string
	}{
		{"Wallet not installed", SourceInternal, domain.CategoryNotInstalled,
			"nami wallet is not installed. Please install it from the official website."},
		{"Provider NOT FOUND", SourceWidget, domain.CategoryNotInstalled,
			"nami wallet is not installed. Please install it from the official website."},
		{"extension not available", SourceInternal, domain.CategoryNotInstalled, ""},
		{"No wallet detected", SourceInternal, domain.CategoryNotInstalled, ""},
		{"Wrong network selected", SourceInternal, domain.CategoryWrongNetwork,
			"Network mismatch: This app requires Testnet. Please switch your wallet network."},
		{"invalid network type", SourceWidget, domain.CategoryWrongNetwork, ""},
		{"wallet is on Mainnet", SourceWidget, domain.CategoryWrongNetwork, ""},
		{"user declined", SourceInternal, domain.CategoryGeneric, "Error connecting to nami: user declined"},
		{"user declined", SourceWidget, domain.CategoryGeneric, "Error with nami: user declined"},
	}

	for _, tt := range tests {
		got := c.Classify("nami", errors.New(tt.raw), tt.source)
		if got.Category != tt.wantCategory {
			t.Errorf("Classify(%q, %v) category = %s, want %s", tt.raw, tt.source, got.Category, tt.wantCategory)
		}
		if tt.wantMessage != "" && got.Message != tt.wantMessage {
			t.Errorf("Classify(%q, %v) message = %q, want %q", tt.raw, tt.source, got.Message, tt.wantMessage)
		}
	}
}

func TestClassifier_SourcesConvergeOnClassifiedText(t *testing.T) {
	c := NewClassifier(domain.NetworkMainnet)

	for _, raw := range []string{"wallet not found", "wrong network"} {
		internal := c.ClassifyMessage("lace", raw, SourceInternal)
		widget := c.ClassifyMessage("lace", raw, SourceWidget)
		if internal != widget {
			t.Errorf("%q: internal %+v != widget %+v", raw, internal, widget)
		}
	}
}

func TestWrongNetworkMessage(t *testing.T) {
	if msg := WrongNetworkMessage(domain.NetworkMainnet); !strings.Contains(msg, "Mainnet") {
		t.Errorf("expected Mainnet in %q", msg)
	}
	if msg := WrongNetworkMessage(domain.NetworkTestnet); !strings.Contains(msg, "Testnet") {
		t.Errorf("expected Testnet in %q", msg)
	}
}

func TestClassifier_NilError(t *testing.T) {
	got := NewClassifier(domain.NetworkTestnet).Classify("nami", nil, SourceInternal)
	if got.Category != domain.CategoryGeneric {
		t.Errorf("expected generic category, got %s", got.Category)
	}
}
