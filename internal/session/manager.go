package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/walletlink/internal/core/domain"
	"github.com/vietddude/walletlink/internal/metrics"
)

var (
	// ErrConnecting is returned when a negotiation is already in flight.
	ErrConnecting = errors.New("connection already in progress")

	// ErrAlreadyConnected is returned when a session is already connected.
	ErrAlreadyConnected = errors.New("wallet already connected")

	// ErrNoPendingConnection is returned when an external completion does not
	// match the provider being connected.
	ErrNoPendingConnection = errors.New("no pending connection for provider")
)

// DefaultConnectPath is where NavigateOnConnect sends the host when no
// OnConnect callback is registered.
const DefaultConnectPath = "/dashboard"

// Layout controls how the provider selector reacts to OpenSelector.
type Layout string

const (
	// LayoutDropdown toggles the selector open and closed.
	LayoutDropdown Layout = "dropdown"
	// LayoutInline keeps the selector open once shown.
	LayoutInline Layout = "inline"
)

// Toggles reports whether OpenSelector closes an already open selector.
func (l Layout) Toggles() bool {
	return l != LayoutInline
}

// Callbacks is the host notification surface. Every field is optional.
type Callbacks struct {
	// OnConnect is called once per successful negotiation.
	OnConnect func(providerName string, capability domain.Capability, stakeAddress string, hasStakeAddress bool)

	// NavigateOnConnect is used when OnConnect is nil.
	NavigateOnConnect func(path string)

	// OnDisconnect is called when Disconnect leaves the connected state.
	OnDisconnect func()

	// ShowError receives every throttle-admitted error. Defaults to logging.
	ShowError func(message string)
}

// Config holds session manager settings.
type Config struct {
	DefaultOpen bool
	Layout      Layout
	ConnectPath string
	Providers   []string
}

// ProviderOffer is a provider the host offers in its selector.
type ProviderOffer struct {
	Name       string `json:"name"`
	Icon       string `json:"icon,omitempty"`
	APIVersion string `json:"api_version,omitempty"`
	Installed  bool   `json:"installed"`
}

// Manager owns the session record and applies negotiation outcomes to it.
// It is the only writer of the session.
type Manager struct {
	mu      sync.Mutex
	session domain.Session
	origin  domain.SessionStatus
	history history

	cfg        Config
	negotiator *Negotiator
	throttle   *ErrorThrottle
	callbacks  Callbacks

	listenerMu          sync.RWMutex
	transitionListeners []func(Transition)
	outcomeListeners    []func(Outcome)

	log *slog.Logger
}

// NewManager creates a session manager. A nil throttle gets the default window.
func NewManager(cfg Config, negotiator *Negotiator, throttle *ErrorThrottle, callbacks Callbacks) *Manager {
	if cfg.Layout == "" {
		cfg.Layout = LayoutDropdown
	}
	if cfg.ConnectPath == "" {
		cfg.ConnectPath = DefaultConnectPath
	}
	if throttle == nil {
		throttle = NewErrorThrottle(DefaultThrottleWindow, nil)
	}

	status := domain.SessionDisconnected
	if cfg.DefaultOpen {
		status = domain.SessionListOpen
	}

	return &Manager{
		session:    domain.Session{Status: status, UpdatedAt: time.Now()},
		cfg:        cfg,
		negotiator: negotiator,
		throttle:   throttle,
		callbacks:  callbacks,
		log:        slog.Default().With("component", "session"),
	}
}

// OnTransition registers a listener for state changes.
func (m *Manager) OnTransition(fn func(Transition)) {
	m.listenerMu.Lock()
	defer m.listenerMu.Unlock()
	m.transitionListeners = append(m.transitionListeners, fn)
}

// OnOutcome registers a listener for finished negotiations.
func (m *Manager) OnOutcome(fn func(Outcome)) {
	m.listenerMu.Lock()
	defer m.listenerMu.Unlock()
	m.outcomeListeners = append(m.outcomeListeners, fn)
}

// State returns a snapshot of the session.
func (m *Manager) State() domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// IsConnected reports whether a wallet is connected.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Status == domain.SessionConnected
}

// History returns the most recent transitions, oldest first.
func (m *Manager) History() []Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.snapshot()
}

// Offers lists the configured providers, or every registered one when none
// are configured.
func (m *Manager) Offers() []ProviderOffer {
	registry := m.negotiator.Registry()
	names := m.cfg.Providers
	if len(names) == 0 {
		names = registry.Names()
	}

	offers := make([]ProviderOffer, 0, len(names))
	for _, name := range names {
		offer := ProviderOffer{Name: name}
		if p, ok := registry.Lookup(name); ok {
			offer.Installed = true
			offer.Icon = p.Icon()
			offer.APIVersion = p.APIVersion()
		}
		offers = append(offers, offer)
	}
	return offers
}

// OpenSelector opens the provider list, or closes it when the layout toggles.
// It is a no-op while connecting.
func (m *Manager) OpenSelector() error {
	m.mu.Lock()
	var (
		t   Transition
		err error
	)
	switch m.session.Status {
	case domain.SessionConnecting:
		m.mu.Unlock()
		return nil
	case domain.SessionConnected:
		m.mu.Unlock()
		return ErrAlreadyConnected
	case domain.SessionListOpen:
		if !m.cfg.Layout.Toggles() {
			clearError(&m.session)
			m.mu.Unlock()
			return nil
		}
		t, err = m.transitionLocked(domain.SessionDisconnected, "", "selector toggled closed", clearError)
	default:
		t, err = m.transitionLocked(domain.SessionListOpen, "", "selector opened", clearError)
	}
	m.mu.Unlock()

	if err != nil {
		return err
	}
	m.emitTransition(t)
	return nil
}

// CloseSelector closes the provider list and clears error state.
// It is a no-op while connecting or connected.
func (m *Manager) CloseSelector() error {
	m.mu.Lock()
	switch m.session.Status {
	case domain.SessionConnecting, domain.SessionConnected:
		m.mu.Unlock()
		return nil
	case domain.SessionDisconnected:
		clearError(&m.session)
		m.mu.Unlock()
		return nil
	}
	t, err := m.transitionLocked(domain.SessionDisconnected, "", "selector closed", clearError)
	m.mu.Unlock()

	if err != nil {
		return err
	}
	m.emitTransition(t)
	return nil
}

// SelectProvider negotiates with providerName and applies the outcome.
// It blocks until the negotiation finishes or ctx is done. A second call while
// a negotiation is in flight returns ErrConnecting.
func (m *Manager) SelectProvider(ctx context.Context, providerName string) (Outcome, error) {
	t, origin, err := m.begin(providerName, "", "provider selected")
	if err != nil {
		return Outcome{}, err
	}
	m.emitTransition(t)

	out := m.negotiator.Negotiate(ctx, providerName)
	m.apply(out, origin)
	return out, nil
}

// Disconnect ends a connected session. Calling it while not connected only
// clears stray fields.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if m.session.Status != domain.SessionConnected {
		if m.session.Status != domain.SessionConnecting {
			clearConnection(&m.session)
		}
		m.mu.Unlock()
		return
	}

	provider := m.session.ProviderName
	t, err := m.transitionLocked(domain.SessionDisconnected, provider, "disconnected", clearConnection)
	onDisconnect := m.callbacks.OnDisconnect
	m.mu.Unlock()

	if err != nil {
		m.log.Error("Disconnect failed", "error", err)
		return
	}

	metrics.SessionConnected.Set(0)
	m.log.Info("Wallet disconnected", "provider", provider)
	m.emitTransition(t)
	if onDisconnect != nil {
		onDisconnect()
	}
}

// BeginExternal marks a connection started by an external connector widget.
// It shares the single-negotiation guard with SelectProvider.
func (m *Manager) BeginExternal(providerName string) error {
	t, _, err := m.begin(providerName, providerName, "external connect started")
	if err != nil {
		return err
	}
	m.emitTransition(t)
	return nil
}

// CompleteExternal applies a successful external connection.
func (m *Manager) CompleteExternal(
	providerName string,
	capability domain.Capability,
	rewardAddresses []string,
) error {
	m.mu.Lock()
	if !m.externalPendingLocked(providerName) {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNoPendingConnection, providerName)
	}
	origin := m.origin
	m.mu.Unlock()

	now := time.Now()
	out := Outcome{
		AttemptID:    uuid.NewString(),
		ProviderName: providerName,
		Result:       domain.AttemptConnected,
		Capability:   capability,
		StartedAt:    now,
		FinishedAt:   now,
	}
	if len(rewardAddresses) > 0 {
		out.StakeAddress = rewardAddresses[0]
		out.HasStakeAddress = true
	}
	metrics.NegotiationsTotal.WithLabelValues(providerName, string(out.Result)).Inc()

	m.apply(out, origin)
	return nil
}

// FailExternal reports an error raised by an external connector widget.
// The error goes through the same classifier and throttle as internal ones.
func (m *Manager) FailExternal(providerName string, err error) Classification {
	c := m.negotiator.Classifier().Classify(providerName, err, SourceWidget)
	metrics.ErrorsTotal.WithLabelValues(string(c.Category), SourceWidget.String()).Inc()

	m.mu.Lock()
	if m.externalPendingLocked(providerName) {
		origin := m.origin
		m.mu.Unlock()

		now := time.Now()
		m.apply(Outcome{
			AttemptID:    uuid.NewString(),
			ProviderName: providerName,
			Result:       domain.AttemptFailed,
			Category:     c.Category,
			Message:      c.Message,
			Err:          err,
			StartedAt:    now,
			FinishedAt:   now,
		}, origin)
		return c
	}

	// An internal negotiation in flight owns the session until it finishes.
	switch m.session.Status {
	case domain.SessionConnected, domain.SessionConnecting:
	default:
		m.session.LastError = c.Message
	}
	m.mu.Unlock()

	m.surface(c.Message)
	return c
}

// externalPendingLocked reports whether the in-flight attempt was started by
// BeginExternal for providerName.
func (m *Manager) externalPendingLocked(providerName string) bool {
	return m.session.Status == domain.SessionConnecting &&
		m.session.ProviderName == providerName &&
		m.session.PendingProvider == providerName
}

func (m *Manager) begin(
	providerName, pending, reason string,
) (Transition, domain.SessionStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.session.Status {
	case domain.SessionConnecting:
		return Transition{}, "", ErrConnecting
	case domain.SessionConnected:
		return Transition{}, "", ErrAlreadyConnected
	}

	origin := m.session.Status
	m.origin = origin
	t, err := m.transitionLocked(domain.SessionConnecting, providerName, reason, func(s *domain.Session) {
		s.ProviderName = providerName
		s.PendingProvider = pending
		s.LastError = ""
	})
	return t, origin, err
}

// apply moves the session out of Connecting according to out.
func (m *Manager) apply(out Outcome, origin domain.SessionStatus) {
	m.mu.Lock()
	if m.session.Status != domain.SessionConnecting || m.session.ProviderName != out.ProviderName {
		status := m.session.Status
		m.mu.Unlock()
		m.log.Warn("Dropping stale negotiation outcome", "provider", out.ProviderName, "status", status)
		return
	}

	if out.Connected() {
		t, err := m.transitionLocked(domain.SessionConnected, out.ProviderName, "negotiation succeeded",
			func(s *domain.Session) {
				s.Capability = out.Capability
				s.StakeAddress = out.StakeAddress
				s.HasStakeAddress = out.HasStakeAddress
				s.PendingProvider = ""
				s.LastError = ""
			})
		cb := m.callbacks
		path := m.cfg.ConnectPath
		m.mu.Unlock()

		if err != nil {
			m.log.Error("Apply outcome failed", "error", err)
			return
		}

		metrics.SessionConnected.Set(1)
		m.emitTransition(t)
		m.emitOutcome(out)
		switch {
		case cb.OnConnect != nil:
			cb.OnConnect(out.ProviderName, out.Capability, out.StakeAddress, out.HasStakeAddress)
		case cb.NavigateOnConnect != nil:
			cb.NavigateOnConnect(path)
		}
		return
	}

	target := domain.SessionDisconnected
	if origin == domain.SessionListOpen {
		target = domain.SessionListOpen
	}
	t, err := m.transitionLocked(target, out.ProviderName, "negotiation failed: "+string(out.Category),
		func(s *domain.Session) {
			clearConnection(s)
			s.PendingProvider = ""
			s.LastError = out.Message
		})
	m.mu.Unlock()

	if err != nil {
		m.log.Error("Apply outcome failed", "error", err)
		return
	}

	m.emitTransition(t)
	m.emitOutcome(out)
	if errors.Is(out.Err, context.Canceled) {
		return
	}
	m.surface(out.Message)
}

// surface passes message through the throttle to the host.
func (m *Manager) surface(message string) {
	if !m.throttle.Report(message) {
		metrics.ErrorsSuppressed.Inc()
		m.log.Debug("Duplicate error suppressed", "message", message)
		return
	}
	if m.callbacks.ShowError != nil {
		m.callbacks.ShowError(message)
		return
	}
	m.log.Error("Wallet error", "message", message)
}

func (m *Manager) transitionLocked(
	to domain.SessionStatus,
	provider, reason string,
	mutate func(*domain.Session),
) (Transition, error) {
	from := m.session.Status
	if !CanTransition(from, to) {
		return Transition{}, fmt.Errorf(
			"%w: cannot transition from %s to %s",
			ErrInvalidTransition,
			from,
			to,
		)
	}

	if mutate != nil {
		mutate(&m.session)
	}
	m.session.Status = to
	m.session.UpdatedAt = time.Now()

	t := NewTransition(from, to, provider, reason)
	m.history.record(t)
	return t, nil
}

func (m *Manager) emitTransition(t Transition) {
	m.log.Debug("Session transition", "from", t.From, "to", t.To, "provider", t.Provider, "reason", t.Reason)

	m.listenerMu.RLock()
	listeners := m.transitionListeners
	m.listenerMu.RUnlock()
	for _, fn := range listeners {
		fn(t)
	}
}

func (m *Manager) emitOutcome(out Outcome) {
	m.listenerMu.RLock()
	listeners := m.outcomeListeners
	m.listenerMu.RUnlock()
	for _, fn := range listeners {
		fn(out)
	}
}

func clearError(s *domain.Session) {
	s.LastError = ""
	s.PendingProvider = ""
}

func clearConnection(s *domain.Session) {
	s.ProviderName = ""
	s.Capability = nil
	s.StakeAddress = ""
	s.HasStakeAddress = false
}
