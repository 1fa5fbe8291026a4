package session

import (
	"context"
	"strings"
	"time"

	"github.com/vietddude/walletlink/internal/core/domain"
)

// RewardConfig defines the "account changed" retry policy.
type RewardConfig struct {
	MaxAttempts    int
	Backoff        time.Duration
	ReEnableSettle time.Duration
}

// DefaultRewardConfig matches the settle behaviour observed from wallet providers.
var DefaultRewardConfig = RewardConfig{
	MaxAttempts:    3,
	Backoff:        500 * time.Millisecond,
	ReEnableSettle: 200 * time.Millisecond,
}

// ReEnableFunc obtains a fresh capability handle from the provider.
type ReEnableFunc func(ctx context.Context) (domain.Capability, error)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// IsAccountChanged reports whether err is the transient "account changed" fault.
func IsAccountChanged(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "account changed")
}

type fetchState int

const (
	fetchAttempting fetchState = iota
	fetchBackoff
	fetchReEnabling
	fetchFinal
)

func (s fetchState) String() string {
	switch s {
	case fetchAttempting:
		return "attempting"
	case fetchBackoff:
		return "backoff"
	case fetchReEnabling:
		return "re-enabling"
	case fetchFinal:
		return "final"
	default:
		return "unknown"
	}
}

// RewardResult is the outcome of a successful or failed Fetch.
type RewardResult struct {
	Addresses []string

	// Capability is the handle the addresses were read from. It differs from
	// the input handle when a re-enable happened.
	Capability domain.Capability

	Attempts  int
	ReEnabled bool
}

// RewardAddressFetcher reads reward addresses, riding out "account changed"
// faults that some wallets report right after approval.
type RewardAddressFetcher struct {
	cfg   RewardConfig
	sleep Sleeper
}

// NewRewardAddressFetcher creates a fetcher with the given policy.
func NewRewardAddressFetcher(cfg RewardConfig) *RewardAddressFetcher {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultRewardConfig.MaxAttempts
	}
	return &RewardAddressFetcher{cfg: cfg, sleep: sleepContext}
}

// Fetch queries handle for reward addresses.
//
// State machine:
//   - attempting: query; success returns, unrelated errors return immediately,
//     "account changed" spends one unit of budget
//   - backoff: wait cfg.Backoff, back to attempting
//   - re-enabling: budget exhausted, obtain a fresh handle and wait cfg.ReEnableSettle
//   - final: exactly one query against the fresh handle, returned as-is
func (f *RewardAddressFetcher) Fetch(
	ctx context.Context,
	handle domain.Capability,
	reEnable ReEnableFunc,
) (RewardResult, error) {
	res := RewardResult{Capability: handle}
	budget := f.cfg.MaxAttempts
	state := fetchAttempting
	var lastErr error

	for {
		switch state {
		case fetchAttempting:
			addrs, err := res.Capability.GetRewardAddresses(ctx)
			res.Attempts++
			if err == nil {
				res.Addresses = addrs
				return res, nil
			}
			if !IsAccountChanged(err) {
				return res, err
			}
			lastErr = err
			budget--
			if budget > 0 {
				state = fetchBackoff
			} else {
				state = fetchReEnabling
			}

		case fetchBackoff:
			if err := f.sleep(ctx, f.cfg.Backoff); err != nil {
				return res, err
			}
			state = fetchAttempting

		case fetchReEnabling:
			if reEnable == nil {
				return res, lastErr
			}
			fresh, err := reEnable(ctx)
			if err != nil {
				return res, err
			}
			res.Capability = fresh
			res.ReEnabled = true
			if err := f.sleep(ctx, f.cfg.ReEnableSettle); err != nil {
				return res, err
			}
			state = fetchFinal

		case fetchFinal:
			addrs, err := res.Capability.GetRewardAddresses(ctx)
			res.Attempts++
			if err != nil {
				return res, err
			}
			res.Addresses = addrs
			return res, nil
		}
	}
}
