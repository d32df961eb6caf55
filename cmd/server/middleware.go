package main

import (
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"

	"codeberg.org/pagecraft/server/internal/logger"
)

// per-client cap on generation starts; streams are expensive upstream
var completionRate = limiter.Rate{
	Period: 1 * time.Minute,
	Limit:  20,
}

// configures cross-origin access for the browser editor
func CORSMiddleware() gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()

	origins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if origins == "" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(origins, ",")
	}

	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")

	return cors.New(corsConfig)
}

// rate limits the completions route, shared across instances when Redis
// is configured
func RateLimitMiddleware(redisClient *redis.Client) gin.HandlerFunc {
	var store limiter.Store

	if redisClient != nil {
		s, err := redisstore.NewStoreWithOptions(redisClient, limiter.StoreOptions{
			Prefix: "ratelimit:completions",
		})
		if err != nil {
			logger.ErrorErr(err, "failed to create redis rate limit store, falling back to memory")
			store = memorystore.NewStore()
		} else {
			store = s
		}
	} else {
		store = memorystore.NewStore()
	}

	return mgin.NewMiddleware(limiter.New(store, completionRate))
}
