// Package dedup suppresses duplicate billing for retried generations.
//
// Clients may resubmit the same logical generation (network hiccup, retry
// button) with the same generation ID. The store remembers (user, generation)
// pairs for a short window so a retry streams output again but is never
// charged twice. This is a best-effort guard: a miss costs the user one
// credit, it never suppresses output.
package dedup

import (
	"context"
	"time"
)

// how long a generation ID is treated as a retry rather than a new generation
const TTL = 10 * time.Minute

// records and looks up recently seen generation keys
type Store interface {
	// reports whether key was recorded within the TTL window
	Seen(ctx context.Context, key string) (bool, error)

	// remembers key from now for the TTL window
	Record(ctx context.Context, key string) error
}

// builds the store key for a user's generation attempt
func Key(userID, generationID string) string {
	return userID + ":" + generationID
}
