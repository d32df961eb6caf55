package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// loads configuration from environment variables
func LoadEnvironmentVariables() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		_ = err // not an error - production environments may not have .env file
	}

	databaseURL := os.Getenv("DATABASE_URL")
	redisURL := os.Getenv("REDIS_URL")
	jwtSecret := os.Getenv("JWT_SECRET")
	environment := os.Getenv("ENVIRONMENT")
	promptPath := os.Getenv("PROMPT_TEMPLATE_PATH")

	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	// redis is optional: without it the dedup cache and rate limiter
	// fall back to in-process stores
	if environment == "" {
		environment = "development"
	}

	return &Config{
		DatabaseURL:        databaseURL,
		RedisURL:           redisURL,
		JWTSecret:          jwtSecret,
		Environment:        environment,
		PromptTemplatePath: promptPath,
	}, nil
}
