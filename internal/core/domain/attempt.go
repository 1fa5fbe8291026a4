package domain

import "time"

// AttemptOutcome is the terminal result of one negotiation.
type AttemptOutcome string

const (
	AttemptConnected AttemptOutcome = "connected"
	AttemptFailed    AttemptOutcome = "failed"
)

// ConnectionAttempt is an audit record of one negotiation.
type ConnectionAttempt struct {
	ID           string
	Provider     string
	Outcome      AttemptOutcome
	Category     ErrorCategory
	Message      string
	StakeAddress string
	StartedAt    time.Time
	FinishedAt   time.Time
}
