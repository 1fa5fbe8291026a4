package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/walletlink/internal/session"
)

// Event is a session notification published for other services.
type Event struct {
	Type         string    `json:"type"`
	Provider     string    `json:"provider,omitempty"`
	From         string    `json:"from,omitempty"`
	To           string    `json:"to,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	AttemptID    string    `json:"attempt_id,omitempty"`
	Result       string    `json:"result,omitempty"`
	Category     string    `json:"category,omitempty"`
	Message      string    `json:"message,omitempty"`
	StakeAddress string    `json:"stake_address,omitempty"`
	At           time.Time `json:"at"`
}

const (
	EventTransition = "transition"
	EventOutcome    = "outcome"
)

// TransitionEvent converts a session transition.
func TransitionEvent(t session.Transition) Event {
	return Event{
		Type:     EventTransition,
		Provider: t.Provider,
		From:     string(t.From),
		To:       string(t.To),
		Reason:   t.Reason,
		At:       t.Timestamp,
	}
}

// OutcomeEvent converts a negotiation outcome. The capability handle is
// never published.
func OutcomeEvent(o session.Outcome) Event {
	return Event{
		Type:         EventOutcome,
		Provider:     o.ProviderName,
		AttemptID:    o.AttemptID,
		Result:       string(o.Result),
		Category:     string(o.Category),
		Message:      o.Message,
		StakeAddress: o.StakeAddress,
		At:           o.FinishedAt,
	}
}

// EventPublisher publishes session events on a pub/sub channel. Events go
// through one queue drained by a single worker so subscribers see them in
// the order the session produced them.
type EventPublisher struct {
	client  *Client
	channel string
	timeout time.Duration

	send   func(ctx context.Context, e Event) error
	events chan Event
	done   chan struct{}

	mu     sync.Mutex
	closed bool
}

const eventQueueSize = 256

// NewEventPublisher creates a publisher and starts its worker. An empty
// channel uses the default.
func NewEventPublisher(client *Client, channel string) *EventPublisher {
	p := &EventPublisher{
		client:  client,
		channel: eventsChannel(client.prefix, channel),
	}
	p.start(p.Publish)
	return p
}

func (p *EventPublisher) start(send func(ctx context.Context, e Event) error) {
	p.timeout = 2 * time.Second
	p.send = send
	p.events = make(chan Event, eventQueueSize)
	p.done = make(chan struct{})
	go p.run()
}

// Publish sends one event synchronously.
func (p *EventPublisher) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.client.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}
	return nil
}

// Attach subscribes the publisher to a session manager.
func (p *EventPublisher) Attach(m *session.Manager) {
	m.OnTransition(func(t session.Transition) {
		p.enqueue(TransitionEvent(t))
	})
	m.OnOutcome(func(o session.Outcome) {
		p.enqueue(OutcomeEvent(o))
	})
}

// Close stops accepting events and waits until the queued ones are sent or
// ctx is done.
func (p *EventPublisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.events)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain session events: %w", ctx.Err())
	}
}

func (p *EventPublisher) enqueue(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		slog.Warn("Session event after publisher closed", "type", e.Type)
		return
	}
	select {
	case p.events <- e:
	default:
		slog.Warn("Session event queue full, dropping event", "type", e.Type)
	}
}

func (p *EventPublisher) run() {
	defer close(p.done)
	for e := range p.events {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		if err := p.send(ctx, e); err != nil {
			slog.Warn("Failed to publish session event", "type", e.Type, "error", err)
		}
		cancel()
	}
}
