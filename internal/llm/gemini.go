package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"codeberg.org/pagecraft/server/internal/logger"
)

const (
	geminiBaseURL     = "https://generativelanguage.googleapis.com/v1beta/models"
	geminiDoneMarker  = "[DONE]"
	geminiLinePrefix  = "data:"
	maxStreamLineSize = 1024 * 1024 // single SSE line cap
)

// shared HTTP client for Gemini API calls.
// no total request timeout: streams are long-lived and bounded by the
// caller's context deadline instead.
var geminiHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
}

// rate limiter for Gemini API calls (50 requests/second with burst capacity of 10)
var geminiRateLimiter = rate.NewLimiter(50, 10)

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// vendor envelope carried on each `data:` line of the event stream
type geminiStreamEnvelope struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// outcome of parsing one stream line. Skipping a malformed line is a
// distinct, non-fatal outcome; only transport errors abort the stream.
type lineOutcome int

const (
	lineFragment lineOutcome = iota
	lineSkip
	lineDone
)

type GeminiConfig struct {
	APIKey  string
	Model   string // e.g., "gemini-2.0-flash"
	BaseURL string // overridable for tests
}

type GeminiClient struct {
	config     GeminiConfig
	httpClient *http.Client
}

func NewGeminiClient(config GeminiConfig) *GeminiClient {
	if config.BaseURL == "" {
		config.BaseURL = geminiBaseURL
	}

	return &GeminiClient{
		config:     config,
		httpClient: geminiHTTPClient,
	}
}

func (g *GeminiClient) Model() string {
	return g.config.Model
}

// streams a completion from the Gemini streaming endpoint, invoking
// onFragment for each text delta in arrival order
func (g *GeminiClient) StreamGenerate(ctx context.Context, req StreamRequest, onFragment func(string) error) (*StreamResult, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: req.Prompt}}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     generationTemperature,
			TopK:            generationTopK,
			TopP:            generationTopP,
			MaxOutputTokens: generationMaxOutputTokens,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:streamGenerateContent?alt=sse&key=%s",
		g.config.BaseURL, g.config.Model, g.config.APIKey)

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	// rate limiting
	if err := geminiRateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	defer resp.Body.Close() //nolint:errcheck

	// non-200 before any fragment: the whole generation fails cleanly
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096)) //nolint:errcheck
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstreamUnavailable, resp.StatusCode, string(body))
	}

	result := &StreamResult{Model: g.config.Model}

	var accumulated strings.Builder

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), maxStreamLineSize)

	for scanner.Scan() {
		fragment, outcome := parseStreamLine(scanner.Text())

		switch outcome {
		case lineSkip:
			continue
		case lineDone:
			result.Text = accumulated.String()
			return result, nil
		case lineFragment:
			accumulated.WriteString(fragment)

			if err := onFragment(fragment); err != nil {
				// downstream stopped consuming; keep what we have
				logger.Warn("fragment sink closed mid-stream", "error", err)
				result.Text = accumulated.String()
				result.Interrupted = true

				return result, nil
			}
		}
	}

	result.Text = accumulated.String()

	// a transport error after fragments were relayed is an early end,
	// not a failure: the caller persists the partial output
	if err := scanner.Err(); err != nil {
		logger.Warn("upstream stream interrupted", "error", err, "accumulated", accumulated.Len())
		result.Interrupted = true
	}

	return result, nil
}

// parses one event-stream line into a text fragment.
// empty lines, non-data lines, and malformed JSON payloads are skipped;
// the sentinel close marker ends the stream.
func parseStreamLine(line string) (string, lineOutcome) {
	line = strings.TrimSpace(line)

	if line == "" || !strings.HasPrefix(line, geminiLinePrefix) {
		return "", lineSkip
	}

	payload := strings.TrimSpace(strings.TrimPrefix(line, geminiLinePrefix))

	if payload == "" {
		return "", lineSkip
	}

	if payload == geminiDoneMarker {
		return "", lineDone
	}

	var envelope geminiStreamEnvelope
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		// a single bad line never aborts the stream
		logger.Warn("skipping malformed stream line", "error", err)
		return "", lineSkip
	}

	var fragment strings.Builder

	for _, candidate := range envelope.Candidates {
		for _, part := range candidate.Content.Parts {
			fragment.WriteString(part.Text)
		}
	}

	if fragment.Len() == 0 {
		return "", lineSkip
	}

	return fragment.String(), lineFragment
}
