package chat

import (
	"codeberg.org/pagecraft/server/internal/relay"
	chatstore "codeberg.org/pagecraft/server/pagecraft/chat"
)

// Request body for POST /chat/completions
type CompletionRequest struct {
	FrameID      string          `json:"frameId" binding:"required"`
	Messages     []relay.Message `json:"messages" binding:"required"`
	GenerationID string          `json:"generationId"`
}

// Request body for PUT /chat/messages
type ReplaceMessagesRequest struct {
	ChatMessage []chatstore.Message `json:"chatMessage" binding:"required"`
}

// Response for GET /chat/messages
type ListMessagesResponse struct {
	ChatMessage []chatstore.Message `json:"chatMessage"`
}
