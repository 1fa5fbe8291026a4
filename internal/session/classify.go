package session

import (
	"fmt"
	"strings"

	"github.com/vietddude/walletlink/internal/core/domain"
)

// Source identifies who reported an error.
type Source int

const (
	// SourceInternal is the negotiator itself.
	SourceInternal Source = iota
	// SourceWidget is an external connector widget's failure callback.
	SourceWidget
)

func (s Source) String() string {
	if s == SourceWidget {
		return "widget"
	}
	return "internal"
}

// Classification is the stable category and user-facing text of an error.
type Classification struct {
	Category domain.ErrorCategory
	Message  string
}

var (
	notInstalledPatterns = []string{"not installed", "not found", "not available", "no wallet"}
	wrongNetworkPatterns = []string{"wrong network", "network type", "mainnet", "testnet"}
)

// Classifier maps raw provider errors into classifications.
type Classifier struct {
	network domain.Network
}

// NewClassifier creates a classifier for the expected network.
func NewClassifier(network domain.Network) *Classifier {
	return &Classifier{network: network}
}

// Classify classifies err reported for providerName.
func (c *Classifier) Classify(providerName string, err error, source Source) Classification {
	if err == nil {
		return Classification{
			Category: domain.CategoryGeneric,
			Message:  genericMessage(providerName, "unknown error", source),
		}
	}
	return c.ClassifyMessage(providerName, err.Error(), source)
}

// ClassifyMessage classifies a raw error string.
func (c *Classifier) ClassifyMessage(providerName, raw string, source Source) Classification {
	lower := strings.ToLower(raw)

	if containsAny(lower, notInstalledPatterns) {
		return Classification{
			Category: domain.CategoryNotInstalled,
			Message:  NotInstalledMessage(providerName),
		}
	}

	if containsAny(lower, wrongNetworkPatterns) {
		return Classification{
			Category: domain.CategoryWrongNetwork,
			Message:  WrongNetworkMessage(c.network),
		}
	}

	return Classification{
		Category: domain.CategoryGeneric,
		Message:  genericMessage(providerName, raw, source),
	}
}

// NotInstalledMessage is shown when the provider is missing from the registry.
func NotInstalledMessage(providerName string) string {
	return fmt.Sprintf(
		"%s wallet is not installed. Please install it from the official website.",
		providerName,
	)
}

// WrongNetworkMessage is shown when the wallet is on the other network.
func WrongNetworkMessage(network domain.Network) string {
	return fmt.Sprintf(
		"Network mismatch: This app requires %s. Please switch your wallet network.",
		network.Label(),
	)
}

func genericMessage(providerName, raw string, source Source) string {
	if source == SourceWidget {
		return fmt.Sprintf("Error with %s: %s", providerName, raw)
	}
	return fmt.Sprintf("Error connecting to %s: %s", providerName, raw)
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
