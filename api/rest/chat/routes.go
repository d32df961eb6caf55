package chat

import (
	"github.com/gin-gonic/gin"

	"codeberg.org/pagecraft/server/internal/auth"
)

// registers chat completion and message persistence routes.
// extraCompletionMiddleware lets the server attach rate limiting to the
// expensive streaming route only.
func RegisterRoutes(router *gin.RouterGroup, relayClient Generator, store MessageStore, extraCompletionMiddleware ...gin.HandlerFunc) {
	group := router.Group("/chat", auth.AuthMiddleware())

	completionHandlers := append([]gin.HandlerFunc{}, extraCompletionMiddleware...)
	completionHandlers = append(completionHandlers, CompletionsHandler(relayClient))

	group.POST("/completions", completionHandlers...)
	group.PUT("/messages", ReplaceMessagesHandler(store))
	group.GET("/messages", ListMessagesHandler(store))
}
