package chat

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"codeberg.org/pagecraft/server/internal/auth"
	"codeberg.org/pagecraft/server/internal/errors"
	"codeberg.org/pagecraft/server/internal/llm"
	"codeberg.org/pagecraft/server/internal/logger"
	"codeberg.org/pagecraft/server/internal/relay"
	chatstore "codeberg.org/pagecraft/server/pagecraft/chat"
)

type Generator interface {
	Generate(ctx context.Context, req relay.Request, sink relay.Sink) (*relay.Outcome, error)
}

type MessageStore interface {
	ReplaceForFrame(ctx context.Context, frameID, email string, msgs []chatstore.Message) error
	ListForFrame(ctx context.Context, frameID, email string) ([]chatstore.Message, error)
}

// relay.Sink over a gin response: raw text fragments on a chunked
// text/plain body, flushed as they arrive
type streamSink struct {
	writer  gin.ResponseWriter
	started bool
}

func (s *streamSink) OnStart() error {
	s.writer.Header().Set("Content-Type", "text/plain; charset=utf-8")
	s.writer.Header().Set("Cache-Control", "no-cache")
	s.writer.Header().Set("X-Accel-Buffering", "no")
	s.writer.WriteHeader(http.StatusOK)
	s.writer.Flush()
	s.started = true

	return nil
}

func (s *streamSink) OnFragment(fragment string) error {
	if _, err := s.writer.WriteString(fragment); err != nil {
		return fmt.Errorf("client write failed: %w", err)
	}

	s.writer.Flush()

	return nil
}

// creates the handler for streaming markup generation
func CompletionsHandler(relayClient Generator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CompletionRequest

		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		email, ok := auth.GetUserEmail(c)
		if !ok {
			errors.Unauthorized(c, "authenticated user email required")
			return
		}

		userID, _ := auth.GetUserID(c)

		sink := &streamSink{writer: c.Writer}

		_, err := relayClient.Generate(c.Request.Context(), relay.Request{
			FrameID:      req.FrameID,
			UserID:       userID,
			UserEmail:    email,
			GenerationID: req.GenerationID,
			Messages:     req.Messages,
		}, sink)

		if err != nil {
			// once streaming has begun the response is committed; all we
			// can do is stop writing and let the connection close
			if sink.started {
				logger.ErrorErr(err, "generation failed mid-stream",
					"frame_id", req.FrameID,
					"user_id", userID,
				)

				return
			}

			var validationErr *relay.ValidationError
			if stderrors.As(err, &validationErr) {
				errors.BadRequest(c, validationErr.Reason, nil)
				return
			}

			var creditsErr *relay.InsufficientCreditsError
			if stderrors.As(err, &creditsErr) {
				errors.InsufficientCredits(c, creditsErr.Credits, creditsErr.NextReset)
				return
			}

			if stderrors.Is(err, llm.ErrUpstreamUnavailable) {
				errors.UpstreamUnavailable(c, err)
				return
			}

			errors.InternalError(c, "failed to generate", err)

			return
		}

		// an empty completion never starts the sink; commit an empty body
		// so the client sees a normal stream close
		if !sink.started {
			c.Data(http.StatusOK, "text/plain; charset=utf-8", nil)
		}
	}
}

// creates the handler that overwrites a frame's stored history
// (used by the client to persist edited/undone conversations)
func ReplaceMessagesHandler(store MessageStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		frameID := c.Query("frameId")
		if frameID == "" {
			errors.BadRequest(c, "frameId query parameter is required", nil)
			return
		}

		email, ok := auth.GetUserEmail(c)
		if !ok {
			errors.Unauthorized(c, "authenticated user email required")
			return
		}

		var req ReplaceMessagesRequest

		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		for _, msg := range req.ChatMessage {
			switch msg.Role {
			case chatstore.RoleUser, chatstore.RoleAssistant, chatstore.RoleSystem:
			default:
				errors.BadRequest(c, "unrecognized message role: "+msg.Role, nil)
				return
			}
		}

		if err := store.ReplaceForFrame(c.Request.Context(), frameID, email, req.ChatMessage); err != nil {
			errors.InternalError(c, "failed to save messages", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"saved": len(req.ChatMessage)})
	}
}

// creates the handler that returns a frame's stored history
func ListMessagesHandler(store MessageStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		frameID := c.Query("frameId")
		if frameID == "" {
			errors.BadRequest(c, "frameId query parameter is required", nil)
			return
		}

		email, ok := auth.GetUserEmail(c)
		if !ok {
			errors.Unauthorized(c, "authenticated user email required")
			return
		}

		messages, err := store.ListForFrame(c.Request.Context(), frameID, email)
		if err != nil {
			errors.InternalError(c, "failed to load messages", err)
			return
		}

		if messages == nil {
			messages = []chatstore.Message{}
		}

		c.JSON(http.StatusOK, ListMessagesResponse{ChatMessage: messages})
	}
}
