package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"

	"codeberg.org/pagecraft/server/internal/logger"
)

type OpenAIConfig struct {
	APIKey string
	Model  string // e.g., "gpt-4o"
}

// alternative provider behind the same streaming interface
type OpenAIClient struct {
	config OpenAIConfig
	client *openai.Client
}

func NewOpenAIClient(config OpenAIConfig) *OpenAIClient {
	return &OpenAIClient{
		config: config,
		client: openai.NewClient(config.APIKey),
	}
}

func (o *OpenAIClient) Model() string {
	return o.config.Model
}

// streams a completion from the OpenAI chat completions endpoint
func (o *OpenAIClient) StreamGenerate(ctx context.Context, req StreamRequest, onFragment func(string) error) (*StreamResult, error) {
	stream, err := o.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model: o.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: generationTemperature,
		TopP:        generationTopP,
		MaxTokens:   generationMaxOutputTokens,
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	defer stream.Close() //nolint:errcheck

	result := &StreamResult{Model: o.config.Model}

	var accumulated strings.Builder

	for {
		resp, err := stream.Recv()

		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			// mid-stream drop is an early end, partial output survives
			logger.Warn("upstream stream interrupted", "error", err, "accumulated", accumulated.Len())
			result.Interrupted = true

			break
		}

		if len(resp.Choices) == 0 {
			continue
		}

		fragment := resp.Choices[0].Delta.Content
		if fragment == "" {
			continue
		}

		accumulated.WriteString(fragment)

		if err := onFragment(fragment); err != nil {
			logger.Warn("fragment sink closed mid-stream", "error", err)
			result.Interrupted = true

			break
		}
	}

	result.Text = accumulated.String()

	return result, nil
}
