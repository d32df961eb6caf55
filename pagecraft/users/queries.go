package users

const (
	queryCreateUser = `
		INSERT INTO users (id, email, tier, credits, daily_credits_limit, last_credit_reset)
		VALUES ($1, $2, $3, $4, $4, NOW())
		RETURNING id, email, credits, daily_credits_limit, last_credit_reset, tier, created_at, updated_at
	`

	queryFindByEmail = `
		SELECT id, email, credits, daily_credits_limit, last_credit_reset, tier, created_at, updated_at
		FROM users
		WHERE email = $1
	`

	// refills credits only when the rolling window has elapsed; the WHERE
	// clause makes the reset race-free under concurrent requests
	queryResetCreditsIfDue = `
		UPDATE users
		SET credits = daily_credits_limit, last_credit_reset = NOW(), updated_at = NOW()
		WHERE email = $1 AND last_credit_reset <= NOW() - INTERVAL '24 hours'
		RETURNING id, email, credits, daily_credits_limit, last_credit_reset, tier, created_at, updated_at
	`

	// conditional decrement: the credits > 0 guard is the atomic floor at
	// zero that concurrent generations rely on
	queryDecrementCredits = `
		UPDATE users
		SET credits = credits - 1, updated_at = NOW()
		WHERE email = $1 AND credits > 0
	`

	queryUpdateTier = `
		UPDATE users
		SET tier = $1, daily_credits_limit = $2, credits = $2, last_credit_reset = NOW(), updated_at = NOW()
		WHERE email = $3
		RETURNING id, email, credits, daily_credits_limit, last_credit_reset, tier, created_at, updated_at
	`
)
