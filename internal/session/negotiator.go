package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/walletlink/internal/core/domain"
	"github.com/vietddude/walletlink/internal/metrics"
)

var (
	// ErrNotInstalled is returned when the provider is absent from the registry.
	ErrNotInstalled = errors.New("wallet not installed")

	// ErrWrongNetwork is returned when the wallet reports an unexpected network id.
	ErrWrongNetwork = errors.New("wrong network")
)

// DefaultSettleDelay is the pause between the network check and the first
// reward address query. Some wallets return stale state right after enable.
const DefaultSettleDelay = 100 * time.Millisecond

// NegotiatorConfig holds negotiation settings.
type NegotiatorConfig struct {
	Network     domain.Network
	SettleDelay time.Duration
	Reward      RewardConfig
}

// Outcome is the terminal result of a negotiation.
type Outcome struct {
	AttemptID    string
	ProviderName string
	Result       domain.AttemptOutcome

	// Set when Result is AttemptConnected.
	Capability      domain.Capability
	StakeAddress    string
	HasStakeAddress bool

	// Set when Result is AttemptFailed.
	Category domain.ErrorCategory
	Message  string
	Err      error

	StartedAt  time.Time
	FinishedAt time.Time
}

// Connected reports whether the negotiation produced a session.
func (o Outcome) Connected() bool {
	return o.Result == domain.AttemptConnected
}

// Attempt converts the outcome into an audit record.
func (o Outcome) Attempt() domain.ConnectionAttempt {
	return domain.ConnectionAttempt{
		ID:           o.AttemptID,
		Provider:     o.ProviderName,
		Outcome:      o.Result,
		Category:     o.Category,
		Message:      o.Message,
		StakeAddress: o.StakeAddress,
		StartedAt:    o.StartedAt,
		FinishedAt:   o.FinishedAt,
	}
}

// Negotiator runs enable → network check → reward address fetch.
type Negotiator struct {
	registry   domain.Registry
	classifier *Classifier
	fetcher    *RewardAddressFetcher
	cfg        NegotiatorConfig
	sleep      Sleeper
	log        *slog.Logger
}

// NewNegotiator creates a negotiator over registry.
func NewNegotiator(registry domain.Registry, cfg NegotiatorConfig) *Negotiator {
	if cfg.Network == "" {
		cfg.Network = domain.NetworkTestnet
	}
	if cfg.Reward == (RewardConfig{}) {
		cfg.Reward = DefaultRewardConfig
	}
	return &Negotiator{
		registry:   registry,
		classifier: NewClassifier(cfg.Network),
		fetcher:    NewRewardAddressFetcher(cfg.Reward),
		cfg:        cfg,
		sleep:      sleepContext,
		log:        slog.Default().With("component", "negotiator"),
	}
}

// Classifier returns the classifier bound to the expected network.
func (n *Negotiator) Classifier() *Classifier {
	return n.classifier
}

// Registry returns the provider registry.
func (n *Negotiator) Registry() domain.Registry {
	return n.registry
}

// Network returns the expected network.
func (n *Negotiator) Network() domain.Network {
	return n.cfg.Network
}

// Negotiate connects to providerName. It never panics on provider errors;
// every failure is returned as a classified Outcome.
func (n *Negotiator) Negotiate(ctx context.Context, providerName string) Outcome {
	out := Outcome{
		AttemptID:    uuid.NewString(),
		ProviderName: providerName,
		StartedAt:    time.Now(),
	}
	log := n.log.With("provider", providerName, "attempt", out.AttemptID)

	provider, ok := n.registry.Lookup(providerName)
	if !ok {
		return n.fail(out, log, domain.CategoryNotInstalled,
			NotInstalledMessage(providerName),
			fmt.Errorf("%w: %s", ErrNotInstalled, providerName))
	}

	handle, err := provider.Enable(ctx)
	if err != nil {
		return n.failErr(out, log, fmt.Errorf("enable: %w", err))
	}

	networkID, err := handle.GetNetworkID(ctx)
	if err != nil {
		return n.failErr(out, log, fmt.Errorf("get network id: %w", err))
	}
	if expected := n.cfg.Network.ExpectedID(); networkID != expected {
		return n.fail(out, log, domain.CategoryWrongNetwork,
			WrongNetworkMessage(n.cfg.Network),
			fmt.Errorf("%w: got network id %d, want %d", ErrWrongNetwork, networkID, expected))
	}

	if err := n.sleep(ctx, n.cfg.SettleDelay); err != nil {
		return n.failErr(out, log, err)
	}

	res, err := n.fetcher.Fetch(ctx, handle, provider.Enable)
	if res.Attempts > 1 {
		metrics.RewardAddressRetries.WithLabelValues(providerName).Add(float64(res.Attempts - 1))
	}
	if res.ReEnabled {
		metrics.ReEnables.WithLabelValues(providerName).Inc()
		log.Warn("Reward address query kept failing, provider re-enabled", "attempts", res.Attempts)
	}
	if err != nil {
		return n.failErr(out, log, fmt.Errorf("get reward addresses: %w", err))
	}
	if res.Capability != nil {
		handle = res.Capability
	}

	out.Result = domain.AttemptConnected
	out.Capability = handle
	if len(res.Addresses) > 0 {
		out.StakeAddress = res.Addresses[0]
		out.HasStakeAddress = true
	}
	n.finish(&out)

	log.Info("Wallet connected", "stake_address", out.StakeAddress, "attempts", res.Attempts)
	return out
}

// failErr classifies err and fails with the resulting text. The raw message
// is the innermost error so wrapping context does not leak into user text.
func (n *Negotiator) failErr(out Outcome, log *slog.Logger, err error) Outcome {
	c := n.classifier.Classify(out.ProviderName, rootCause(err), SourceInternal)
	return n.fail(out, log, c.Category, c.Message, err)
}

func (n *Negotiator) fail(
	out Outcome,
	log *slog.Logger,
	category domain.ErrorCategory,
	message string,
	err error,
) Outcome {
	out.Result = domain.AttemptFailed
	out.Category = category
	out.Message = message
	out.Err = err
	n.finish(&out)

	metrics.ErrorsTotal.WithLabelValues(string(category), SourceInternal.String()).Inc()
	log.Warn("Wallet negotiation failed", "category", category, "error", err)
	return out
}

func (n *Negotiator) finish(out *Outcome) {
	out.FinishedAt = time.Now()
	metrics.NegotiationsTotal.WithLabelValues(out.ProviderName, string(out.Result)).Inc()
	metrics.NegotiationDuration.WithLabelValues(out.ProviderName).
		Observe(out.FinishedAt.Sub(out.StartedAt).Seconds())
}

func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
