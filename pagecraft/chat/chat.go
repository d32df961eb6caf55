package chat

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"codeberg.org/pagecraft/server/pagecraft/users"
)

func NewRepository(db *pgxpool.Pool, userRepo *users.Repository) *Repository {
	return &Repository{db: db, users: userRepo}
}

// persists a completed generation: always one assistant message, and iff
// charge is set, a credit decrement in the same transaction. A crash
// between the two leaves neither visible. Returns whether a credit was
// actually spent (the decrement floors at zero).
func (r *Repository) SaveGeneration(ctx context.Context, frameID, email, content string, charge bool) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, queryInsertMessage,
		uuid.New().String(),
		frameID,
		email,
		RoleAssistant,
		content,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert message: %w", err)
	}

	charged := false

	if charge {
		charged, err = r.users.DecrementCreditsTx(ctx, tx, email)
		if err != nil {
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return charged, nil
}

// overwrites the stored history for a frame (client-side edits and undo)
func (r *Repository) ReplaceForFrame(ctx context.Context, frameID, email string, msgs []Message) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, queryDeleteForFrame, frameID, email); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}

	batch := &pgx.Batch{}

	for _, msg := range msgs {
		id := msg.ID
		if id == "" {
			id = uuid.New().String()
		}

		batch.Queue(queryInsertMessage, id, frameID, email, msg.Role, msg.Content)
	}

	br := tx.SendBatch(ctx, batch)

	for range msgs {
		if _, err := br.Exec(); err != nil {
			br.Close() //nolint:errcheck,gosec
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}

	// must close batch results before committing, otherwise connection is still "busy"
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// lists a frame's history in chronological order
func (r *Repository) ListForFrame(ctx context.Context, frameID, email string) ([]Message, error) {
	rows, err := r.db.Query(ctx, queryListForFrame, frameID, email)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	defer rows.Close()

	var messages []Message

	for rows.Next() {
		var m Message

		err := rows.Scan(&m.ID, &m.FrameID, &m.CreatedBy, &m.Role, &m.Content, &m.CreatedAt)
		if err != nil {
			return nil, err
		}

		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}
