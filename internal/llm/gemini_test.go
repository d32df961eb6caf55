package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStreamLine(t *testing.T) {
	tests := []struct {
		name        string
		line        string
		wantText    string
		wantOutcome lineOutcome
	}{
		{
			name:        "text fragment",
			line:        `data: {"candidates":[{"content":{"parts":[{"text":"<div>"}]}}]}`,
			wantText:    "<div>",
			wantOutcome: lineFragment,
		},
		{
			name:        "multiple parts concatenated",
			line:        `data: {"candidates":[{"content":{"parts":[{"text":"a"},{"text":"b"}]}}]}`,
			wantText:    "ab",
			wantOutcome: lineFragment,
		},
		{
			name:        "empty line",
			line:        "",
			wantOutcome: lineSkip,
		},
		{
			name:        "non-data line",
			line:        "event: ping",
			wantOutcome: lineSkip,
		},
		{
			name:        "malformed json is skipped, not fatal",
			line:        `data: {"candidates":[{`,
			wantOutcome: lineSkip,
		},
		{
			name:        "envelope without text",
			line:        `data: {"candidates":[{"content":{"parts":[]}}]}`,
			wantOutcome: lineSkip,
		},
		{
			name:        "close marker",
			line:        "data: [DONE]",
			wantOutcome: lineDone,
		},
		{
			name:        "data prefix with no payload",
			line:        "data:",
			wantOutcome: lineSkip,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, outcome := parseStreamLine(tt.line)

			assert.Equal(t, tt.wantOutcome, outcome)
			assert.Equal(t, tt.wantText, text)
		})
	}
}

func streamServer(t *testing.T, lines []string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")

		flusher, ok := w.(http.Flusher)
		require.True(t, ok)

		for _, line := range lines {
			_, err := w.Write([]byte(line + "\n"))
			require.NoError(t, err)
			flusher.Flush()
		}
	}))
}

func TestGeminiClient_StreamGenerate(t *testing.T) {
	server := streamServer(t, []string{
		`data: {"candidates":[{"content":{"parts":[{"text":"A"}]}}]}`,
		"",
		`data: {"candidates":[{"content":{"parts":[{"text":"B"}]}}]}`,
		`data: not-valid-json`,
		`data: {"candidates":[{"content":{"parts":[{"text":"C"}]}}]}`,
		"data: [DONE]",
	})
	defer server.Close()

	client := NewGeminiClient(GeminiConfig{
		APIKey:  "test-key",
		Model:   "gemini-2.0-flash",
		BaseURL: server.URL,
	})

	var fragments []string

	result, err := client.StreamGenerate(context.Background(), StreamRequest{Prompt: "hero section"}, func(f string) error {
		fragments = append(fragments, f)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, fragments)
	assert.Equal(t, "ABC", result.Text)
	assert.False(t, result.Interrupted)
	assert.Equal(t, "gemini-2.0-flash", result.Model)
}

func TestGeminiClient_UpstreamRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"quota exceeded"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewGeminiClient(GeminiConfig{
		APIKey:  "test-key",
		Model:   "gemini-2.0-flash",
		BaseURL: server.URL,
	})

	called := false

	_, err := client.StreamGenerate(context.Background(), StreamRequest{Prompt: "x"}, func(string) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.False(t, called, "no fragments should be delivered on rejection")
}

func TestGeminiClient_SinkErrorStopsStream(t *testing.T) {
	server := streamServer(t, []string{
		`data: {"candidates":[{"content":{"parts":[{"text":"A"}]}}]}`,
		`data: {"candidates":[{"content":{"parts":[{"text":"B"}]}}]}`,
		"data: [DONE]",
	})
	defer server.Close()

	client := NewGeminiClient(GeminiConfig{
		APIKey:  "test-key",
		Model:   "gemini-2.0-flash",
		BaseURL: server.URL,
	})

	result, err := client.StreamGenerate(context.Background(), StreamRequest{Prompt: "x"}, func(string) error {
		return context.Canceled
	})

	require.NoError(t, err)
	assert.True(t, result.Interrupted)
	assert.Equal(t, "A", result.Text, "accumulated text includes the fragment the sink rejected")
}

func TestGeminiClient_StreamEndWithoutDoneMarker(t *testing.T) {
	server := streamServer(t, []string{
		`data: {"candidates":[{"content":{"parts":[{"text":"partial"}]}}]}`,
	})
	defer server.Close()

	client := NewGeminiClient(GeminiConfig{
		APIKey:  "test-key",
		Model:   "gemini-2.0-flash",
		BaseURL: server.URL,
	})

	result, err := client.StreamGenerate(context.Background(), StreamRequest{Prompt: "x"}, func(string) error {
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "partial", result.Text)
	assert.False(t, result.Interrupted)
}
