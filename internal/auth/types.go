package auth

import "github.com/golang-jwt/jwt/v5"

// JWT claims carried by pagecraft access tokens
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}
