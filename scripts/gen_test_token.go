package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"codeberg.org/pagecraft/server/internal/auth"
	"codeberg.org/pagecraft/server/pagecraft/users"
)

// creates (or reuses) a local test user and prints a JWT for exercising
// the authenticated routes. Run with: go run scripts/gen_test_token.go
func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found")
	}

	dbConnString := os.Getenv("DATABASE_URL")
	if dbConnString == "" {
		log.Fatal("DATABASE_URL not set")
	}

	dbPool, err := pgxpool.New(context.Background(), dbConnString)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbPool.Close()

	ctx := context.Background()
	repo := users.NewRepository(dbPool)

	testEmail := "test@pagecraft.dev"

	user, err := repo.FindByEmail(ctx, testEmail)
	if err != nil {
		user, err = repo.Create(ctx, testEmail, users.TierFree)
		if err != nil {
			log.Fatalf("Failed to create test user: %v", err)
		}

		fmt.Printf("Created test user: %s (ID: %s)\n", testEmail, user.ID)
	} else {
		fmt.Printf("Using existing test user (ID: %s, credits: %d)\n", user.ID, user.Credits)
	}

	token, err := auth.GenerateJWT(user.ID, user.Email)
	if err != nil {
		log.Fatalf("Failed to generate JWT: %v", err)
	}

	fmt.Printf("\nTest JWT token:\n%s\n\n", token)
	fmt.Printf("Export it for testing:\nexport TEST_TOKEN=\"%s\"\n", token)
}
