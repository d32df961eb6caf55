package main

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"codeberg.org/pagecraft/server/internal/config"
	"codeberg.org/pagecraft/server/internal/dedup"
	"codeberg.org/pagecraft/server/internal/llm"
	"codeberg.org/pagecraft/server/internal/prompt"
	"codeberg.org/pagecraft/server/internal/relay"
	"codeberg.org/pagecraft/server/pagecraft/chat"
	"codeberg.org/pagecraft/server/pagecraft/users"
)

// holds all dependencies and state for the API server
type Server struct {
	db       *pgxpool.Pool
	redis    *redis.Client // nil when REDIS_URL is unset
	config   *config.Config
	userRepo *users.Repository
	chatRepo *chat.Repository
	services *Services
	router   *gin.Engine

	// set only when the in-memory dedup fallback is active, so its
	// cleanup goroutine can be stopped on shutdown
	memoryDedup *dedup.MemoryStore
}

// holds the generation pipeline components
type Services struct {
	Generator llm.StreamGenerator
	Template  *prompt.Template
	Dedup     dedup.Store
	Relay     *relay.Relay
}
