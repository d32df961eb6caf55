package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// registers a new user with a full credit balance for their tier
func (r *Repository) Create(ctx context.Context, email string, tier Tier) (*User, error) {
	row := r.db.QueryRow(ctx, queryCreateUser,
		uuid.New().String(),
		email,
		tier,
		tier.DailyCreditsLimit(),
	)

	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// retrieves a user by email
func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, queryFindByEmail, email))
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// refills the user's credits if the reset window has elapsed and returns
// the current state either way. Must run before every credit check so a
// request arriving just past the boundary sees refreshed credits.
func (r *Repository) ResetIfDue(ctx context.Context, email string) (*User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, queryResetCreditsIfDue, email))

	if errors.Is(err, pgx.ErrNoRows) {
		// reset not due, balance unchanged
		return r.FindByEmail(ctx, email)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to reset credits: %w", err)
	}

	return user, nil
}

// spends one credit inside the caller's transaction. The decrement is
// conditional on a positive balance, so concurrent generations racing a
// stale credit check can never push the balance below zero. Returns
// whether a credit was actually spent.
func (r *Repository) DecrementCreditsTx(ctx context.Context, tx pgx.Tx, email string) (bool, error) {
	tag, err := tx.Exec(ctx, queryDecrementCredits, email)
	if err != nil {
		return false, fmt.Errorf("failed to decrement credits: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// moves a user to a new tier, raising the cap and refilling the balance
func (r *Repository) UpdateTier(ctx context.Context, email string, tier Tier) (*User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, queryUpdateTier, tier, tier.DailyCreditsLimit(), email))
	if err != nil {
		return nil, fmt.Errorf("failed to update tier: %w", err)
	}

	return user, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var user User

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Credits,
		&user.DailyCreditsLimit,
		&user.LastCreditReset,
		&user.Tier,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}

	return &user, nil
}
