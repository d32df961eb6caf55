package llm

import (
	"context"
	"errors"
)

// represents different upstream model providers
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
)

// returned when the upstream endpoint rejects the request before any
// fragment is streamed. Callers can surface this as a clean error since
// the client response has not been committed yet.
var ErrUpstreamUnavailable = errors.New("upstream model unavailable")

// contains a fully formed prompt for one generation
type StreamRequest struct {
	Prompt string
}

// describes how a completed (or interrupted) stream ended
type StreamResult struct {
	Text        string // full accumulated output
	Interrupted bool   // stream ended early, Text holds partial output
	Model       string
}

// streams a completion as a sequence of text fragments.
// onFragment is invoked once per fragment, in arrival order; returning an
// error from it stops the stream (e.g. the downstream client disconnected).
type StreamGenerator interface {
	StreamGenerate(ctx context.Context, req StreamRequest, onFragment func(string) error) (*StreamResult, error)
	Model() string
}

// fixed generation parameters for markup generation
const (
	generationTemperature     = 0.9
	generationTopK            = 40
	generationTopP            = 0.95
	generationMaxOutputTokens = 8192
)

// holds configuration for upstream client initialization
type Config struct {
	Provider Provider
	APIKey   string
	Model    string
}
