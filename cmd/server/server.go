package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"codeberg.org/pagecraft/server/internal/config"
	"codeberg.org/pagecraft/server/internal/dedup"
	"codeberg.org/pagecraft/server/internal/logger"
	"codeberg.org/pagecraft/server/pagecraft/chat"
	"codeberg.org/pagecraft/server/pagecraft/users"
)

// creates and configures a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	ctx := context.Background()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// streaming requests hold a connection only around the final
	// transaction, so a small pool is enough
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	db, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	userRepo := users.NewRepository(db)
	chatRepo := chat.NewRepository(db, userRepo)

	server := &Server{
		db:       db,
		config:   cfg,
		userRepo: userRepo,
		chatRepo: chatRepo,
	}

	// dedup cache: Redis with native TTL when available, bounded
	// in-memory fallback otherwise
	var dedupStore dedup.Store

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}

		client := redis.NewClient(opts)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := client.Ping(pingCtx).Err(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		logger.Info("connected to redis")

		server.redis = client
		dedupStore = dedup.NewRedisStore(client)
	} else {
		logger.Warn("REDIS_URL not set, using in-process dedup and rate limiting")

		memStore := dedup.NewMemoryStore()
		server.memoryDedup = memStore
		dedupStore = memStore
	}

	services, err := InitializeServices(cfg, userRepo, chatRepo, dedupStore)
	if err != nil {
		server.Close()
		return nil, err
	}

	server.services = services

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	server.router = gin.Default()

	RegisterRoutes(server.router, server)

	return server, nil
}

// releases all server resources
func (s *Server) Close() {
	if s.memoryDedup != nil {
		s.memoryDedup.Stop()
	}

	if s.redis != nil {
		s.redis.Close() //nolint:errcheck,gosec // best-effort cleanup on shutdown
	}

	s.db.Close()
}
