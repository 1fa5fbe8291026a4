package session

import (
	"errors"
	"time"

	"github.com/vietddude/walletlink/internal/core/domain"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// ValidTransitions defines allowed state transitions.
// Key is the current state, value is the list of valid next states.
var ValidTransitions = map[domain.SessionStatus][]domain.SessionStatus{
	domain.SessionDisconnected: {domain.SessionListOpen, domain.SessionConnecting},
	domain.SessionListOpen:     {domain.SessionDisconnected, domain.SessionConnecting},
	domain.SessionConnecting: {
		domain.SessionConnected,
		domain.SessionListOpen,
		domain.SessionDisconnected,
	},
	domain.SessionConnected: {domain.SessionDisconnected},
}

// CanTransition checks if a transition from one state to another is valid.
func CanTransition(from, to domain.SessionStatus) bool {
	for _, target := range ValidTransitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// Transition represents a state change with metadata.
type Transition struct {
	From      domain.SessionStatus
	To        domain.SessionStatus
	Provider  string
	Reason    string
	Timestamp time.Time
}

// NewTransition creates a new transition record.
func NewTransition(from, to domain.SessionStatus, provider, reason string) Transition {
	return Transition{
		From:      from,
		To:        to,
		Provider:  provider,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

// IsValid returns true if this transition is allowed by the state machine.
func (t Transition) IsValid() bool {
	return CanTransition(t.From, t.To)
}

// StateDescription returns a human-readable description of a state.
func StateDescription(s domain.SessionStatus) string {
	switch s {
	case domain.SessionDisconnected:
		return "Disconnected - no wallet session"
	case domain.SessionListOpen:
		return "Selecting - provider list is open"
	case domain.SessionConnecting:
		return "Connecting - negotiation in flight"
	case domain.SessionConnected:
		return "Connected - capability handed to host"
	default:
		return "Unknown state"
	}
}

const historySize = 10

// history keeps the most recent transitions.
type history struct {
	transitions []Transition
}

func (h *history) record(t Transition) {
	if len(h.transitions) >= historySize {
		copy(h.transitions, h.transitions[1:])
		h.transitions[len(h.transitions)-1] = t
		return
	}
	h.transitions = append(h.transitions, t)
}

func (h *history) snapshot() []Transition {
	out := make([]Transition, len(h.transitions))
	copy(out, h.transitions)
	return out
}
