package chat

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// the subset of the connection pool the repository uses; a seam so the
// transaction lifecycle is testable without a live database
type database interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// spends one credit inside an open transaction
type creditDebiter interface {
	DecrementCreditsTx(ctx context.Context, tx pgx.Tx, email string) (bool, error)
}

// handles chat message persistence for design frames
type Repository struct {
	db    database
	users creditDebiter
}

// recognized message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// represents one stored exchange turn on a frame
type Message struct {
	ID        string    `json:"id"`
	FrameID   string    `json:"frame_id"`
	CreatedBy string    `json:"created_by"` // user email
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
