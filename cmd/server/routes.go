package main

import (
	"github.com/gin-gonic/gin"

	"codeberg.org/pagecraft/server/api/rest/chat"
	"codeberg.org/pagecraft/server/api/rest/health"
)

// sets up all API routes and middleware
func RegisterRoutes(router *gin.Engine, server *Server) {
	router.Use(CORSMiddleware())
	router.GET("/health", health.Handler)

	v1 := router.Group("/api/v1")

	{
		v1.GET("/ping", health.PingHandler)

		chat.RegisterRoutes(v1, server.services.Relay, server.chatRepo, RateLimitMiddleware(server.redis))
	}
}
