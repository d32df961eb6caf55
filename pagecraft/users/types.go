package users

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// handles user database operations, including the generation credit ledger
type Repository struct {
	db *pgxpool.Pool
}

// subscription level determining the daily credit cap
type Tier string

const (
	TierFree    Tier = "free"
	TierPro     Tier = "pro"
	TierPremium Tier = "premium"
)

// rolling window after which credits refill to the daily cap
const ResetInterval = 24 * time.Hour

// daily generation allowance per tier
func (t Tier) DailyCreditsLimit() int {
	switch t {
	case TierPro:
		return 50
	case TierPremium:
		return 200
	default:
		return 10
	}
}

// represents a registered user with metering state
type User struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	Credits           int       `json:"credits"`
	DailyCreditsLimit int       `json:"daily_credits_limit"`
	LastCreditReset   time.Time `json:"last_credit_reset"`
	Tier              Tier      `json:"tier"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// reports whether the user can start a generation right now
func (u *User) HasCredits() bool {
	return u.Credits > 0
}

// returns when the user's credits refill next
func (u *User) NextReset() time.Time {
	return u.LastCreditReset.Add(ResetInterval)
}
