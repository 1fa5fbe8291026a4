package domain

import "time"

// SessionStatus is the lifecycle state of the wallet connection.
type SessionStatus string

const (
	SessionDisconnected SessionStatus = "disconnected"
	SessionListOpen     SessionStatus = "list_open"
	SessionConnecting   SessionStatus = "connecting"
	SessionConnected    SessionStatus = "connected"
)

// Session is a point-in-time snapshot of the connection record.
type Session struct {
	Status          SessionStatus
	ProviderName    string
	Capability      Capability
	StakeAddress    string
	HasStakeAddress bool
	LastError       string
	PendingProvider string
	UpdatedAt       time.Time
}

// IsConnected reports whether the snapshot holds a live capability handle.
func (s Session) IsConnected() bool {
	return s.Status == SessionConnected
}
