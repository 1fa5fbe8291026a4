package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/vietddude/walletlink/internal/core/domain"
)

// =============================================================================
// Fake provider and capability
// =============================================================================

var errNotSupported = errors.New("not supported by fake")

type rewardReply struct {
	addrs []string
	err   error
}

type fakeCapability struct {
	mu          sync.Mutex
	networkID   int
	networkErr  error
	replies     []rewardReply
	rewardCalls int
}

func newFakeCapability(networkID int, replies ...rewardReply) *fakeCapability {
	return &fakeCapability{networkID: networkID, replies: replies}
}

func (c *fakeCapability) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rewardCalls
}

func (c *fakeCapability) GetNetworkID(ctx context.Context) (int, error) {
	return c.networkID, c.networkErr
}

// GetRewardAddresses replays replies in order; the last one repeats.
func (c *fakeCapability) GetRewardAddresses(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.rewardCalls
	c.rewardCalls++
	if len(c.replies) == 0 {
		return nil, nil
	}
	if i >= len(c.replies) {
		i = len(c.replies) - 1
	}
	return c.replies[i].addrs, c.replies[i].err
}

func (c *fakeCapability) GetChangeAddress(ctx context.Context) (string, error) {
	return "", errNotSupported
}

func (c *fakeCapability) GetUsedAddresses(ctx context.Context) ([]string, error) {
	return nil, errNotSupported
}

func (c *fakeCapability) GetUnusedAddresses(ctx context.Context) ([]string, error) {
	return nil, errNotSupported
}

func (c *fakeCapability) GetUtxos(ctx context.Context) ([]string, error) {
	return nil, errNotSupported
}

func (c *fakeCapability) GetBalance(ctx context.Context) (string, error) {
	return "", errNotSupported
}

func (c *fakeCapability) SignTx(ctx context.Context, tx string, partial bool) (string, error) {
	return "", errNotSupported
}

func (c *fakeCapability) SignData(ctx context.Context, address, payload string) (domain.DataSignature, error) {
	return domain.DataSignature{}, errNotSupported
}

func (c *fakeCapability) SubmitTx(ctx context.Context, tx string) (string, error) {
	return "", errNotSupported
}

type fakeProvider struct {
	mu          sync.Mutex
	name        string
	enableErr   error
	handles     []*fakeCapability
	enableCalls int
}

func newFakeProvider(name string, handles ...*fakeCapability) *fakeProvider {
	return &fakeProvider{name: name, handles: handles}
}

func (p *fakeProvider) Name() string       { return p.name }
func (p *fakeProvider) Icon() string       { return "data:image/svg+xml;base64," + p.name }
func (p *fakeProvider) APIVersion() string { return "0.1.0" }

func (p *fakeProvider) IsEnabled(ctx context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enableCalls > 0, nil
}

// Enable returns the configured handles in order; the last one repeats.
func (p *fakeProvider) Enable(ctx context.Context) (domain.Capability, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := p.enableCalls
	p.enableCalls++
	if p.enableErr != nil {
		return nil, p.enableErr
	}
	if i >= len(p.handles) {
		i = len(p.handles) - 1
	}
	return p.handles[i], nil
}

func (p *fakeProvider) enables() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enableCalls
}

type fakeRegistry struct {
	providers map[string]domain.Provider
}

func newFakeRegistry(providers ...*fakeProvider) *fakeRegistry {
	r := &fakeRegistry{providers: make(map[string]domain.Provider)}
	for _, p := range providers {
		r.providers[p.name] = p
	}
	return r
}

func (r *fakeRegistry) Lookup(name string) (domain.Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

func (r *fakeRegistry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// =============================================================================
// Helpers
// =============================================================================

type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, d)
	return ctx.Err()
}

func (s *sleepRecorder) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.waits))
	copy(out, s.waits)
	return out
}

func newTestNegotiator(registry domain.Registry, network domain.Network) (*Negotiator, *sleepRecorder) {
	n := NewNegotiator(registry, NegotiatorConfig{
		Network:     network,
		SettleDelay: DefaultSettleDelay,
		Reward:      DefaultRewardConfig,
	})
	rec := &sleepRecorder{}
	n.sleep = rec.sleep
	n.fetcher.sleep = rec.sleep
	return n, rec
}

func accountChanged() rewardReply {
	return rewardReply{err: errors.New("Account changed")}
}

func addresses(addrs ...string) rewardReply {
	return rewardReply{addrs: addrs}
}
