package relay

import (
	"context"
	"time"

	"codeberg.org/pagecraft/server/internal/dedup"
	"codeberg.org/pagecraft/server/internal/llm"
	"codeberg.org/pagecraft/server/internal/prompt"
	"codeberg.org/pagecraft/server/pagecraft/users"
)

// resolves a user's metering state, refilling credits when due
type CreditStore interface {
	ResetIfDue(ctx context.Context, email string) (*users.User, error)
}

// commits a finished generation (message plus optional credit charge)
type GenerationStore interface {
	SaveGeneration(ctx context.Context, frameID, email, content string, charge bool) (bool, error)
}

// receives the live output stream.
// OnStart commits the response to streaming mode and is called at most
// once, just before the first fragment; OnFragment relays one fragment.
type Sink interface {
	OnStart() error
	OnFragment(fragment string) error
}

// one chat turn from the client request
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// one client-issued generation attempt
type Request struct {
	FrameID      string
	UserID       string
	UserEmail    string
	GenerationID string // optional idempotency token
	Messages     []Message
}

// summarizes how a generation ended, for logging and tests
type Outcome struct {
	Text        string
	Model       string
	Substantial bool
	Duplicate   bool
	Charged     bool
	Interrupted bool
	Persisted   bool
}

// orchestrates one end-to-end generation
type Relay struct {
	credits           CreditStore
	store             GenerationStore
	generator         llm.StreamGenerator
	dedup             dedup.Store
	template          *prompt.Template
	maxStreamDuration time.Duration
}
