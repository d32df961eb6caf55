package relay

import (
	"fmt"
	"time"
)

// rejects a malformed generation request before any upstream call
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid generation request: " + e.Reason
}

// rejects a generation when the user's daily allowance is spent.
// NextReset lets the client render a refill countdown.
type InsufficientCreditsError struct {
	Credits   int
	NextReset time.Time
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits (%d), next reset at %s",
		e.Credits, e.NextReset.UTC().Format(time.RFC3339))
}
