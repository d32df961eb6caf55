package relay

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/pagecraft/server/internal/dedup"
	"codeberg.org/pagecraft/server/internal/llm"
	"codeberg.org/pagecraft/server/internal/prompt"
	"codeberg.org/pagecraft/server/pagecraft/users"
)

// implements CreditStore for testing
type fakeCredits struct {
	user  *users.User
	err   error
	calls int
}

func (f *fakeCredits) ResetIfDue(_ context.Context, _ string) (*users.User, error) {
	f.calls++

	if f.err != nil {
		return nil, f.err
	}

	return f.user, nil
}

type saveCall struct {
	frameID string
	email   string
	content string
	charge  bool
}

// implements GenerationStore for testing
type fakeStore struct {
	mu    sync.Mutex
	saves []saveCall
	err   error
}

func (f *fakeStore) SaveGeneration(_ context.Context, frameID, email, content string, charge bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return false, f.err
	}

	f.saves = append(f.saves, saveCall{frameID: frameID, email: email, content: content, charge: charge})

	return charge, nil
}

func (f *fakeStore) calls() []saveCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]saveCall{}, f.saves...)
}

// implements llm.StreamGenerator for testing
type fakeGenerator struct {
	fragments   []string
	interrupted bool
	err         error
	called      bool
}

func (f *fakeGenerator) StreamGenerate(_ context.Context, _ llm.StreamRequest, onFragment func(string) error) (*llm.StreamResult, error) {
	f.called = true

	if f.err != nil {
		return nil, f.err
	}

	var accumulated strings.Builder

	for _, fragment := range f.fragments {
		accumulated.WriteString(fragment)

		if err := onFragment(fragment); err != nil {
			return &llm.StreamResult{Text: accumulated.String(), Interrupted: true, Model: "fake-model"}, nil
		}
	}

	return &llm.StreamResult{Text: accumulated.String(), Interrupted: f.interrupted, Model: "fake-model"}, nil
}

func (f *fakeGenerator) Model() string {
	return "fake-model"
}

// implements Sink, recording everything it receives
type recordSink struct {
	started   bool
	fragments []string
	failAfter int // fail OnFragment after this many fragments (0 = never)
}

func (s *recordSink) OnStart() error {
	s.started = true
	return nil
}

func (s *recordSink) OnFragment(fragment string) error {
	if s.failAfter > 0 && len(s.fragments) >= s.failAfter {
		return fmt.Errorf("client disconnected")
	}

	s.fragments = append(s.fragments, fragment)

	return nil
}

func testUser(credits int) *users.User {
	return &users.User{
		ID:                "user-123",
		Email:             "designer@example.com",
		Credits:           credits,
		DailyCreditsLimit: 10,
		LastCreditReset:   time.Now().Add(-1 * time.Hour),
		Tier:              users.TierFree,
	}
}

func testRelay(t *testing.T, credits *fakeCredits, store *fakeStore, generator *fakeGenerator) *Relay {
	t.Helper()

	dedupStore := dedup.NewMemoryStore()
	t.Cleanup(dedupStore.Stop)

	template, err := prompt.Load("")
	require.NoError(t, err)

	return New(credits, store, generator, dedupStore, template)
}

func testRequest(generationID string) Request {
	return Request{
		FrameID:      "frame-1",
		UserID:       "user-123",
		UserEmail:    "designer@example.com",
		GenerationID: generationID,
		Messages:     []Message{{Role: "user", Content: "Create a hero section"}},
	}
}

func TestGenerate_FragmentOrder(t *testing.T) {
	generator := &fakeGenerator{fragments: []string{"A", "B", "C"}}
	store := &fakeStore{}
	sink := &recordSink{}

	r := testRelay(t, &fakeCredits{user: testUser(5)}, store, generator)

	outcome, err := r.Generate(context.Background(), testRequest(""), sink)

	require.NoError(t, err)
	assert.True(t, sink.started)
	assert.Equal(t, []string{"A", "B", "C"}, sink.fragments)
	assert.Equal(t, "ABC", outcome.Text)
}

func TestGenerate_BillableEndToEnd(t *testing.T) {
	// fragments concatenate to substantial hero markup
	markup := `<section class="hero">` + strings.Repeat("content ", 40) + "</section>"
	half := len(markup) / 2
	generator := &fakeGenerator{fragments: []string{markup[:half], markup[half:]}}
	store := &fakeStore{}
	sink := &recordSink{}

	r := testRelay(t, &fakeCredits{user: testUser(1)}, store, generator)

	outcome, err := r.Generate(context.Background(), testRequest(""), sink)

	require.NoError(t, err)
	assert.Equal(t, markup, strings.Join(sink.fragments, ""))
	assert.True(t, outcome.Substantial)
	assert.True(t, outcome.Charged)
	assert.True(t, outcome.Persisted)

	calls := store.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "frame-1", calls[0].frameID)
	assert.Equal(t, "designer@example.com", calls[0].email)
	assert.Equal(t, markup, calls[0].content)
	assert.True(t, calls[0].charge)
}

func TestGenerate_InsufficientCredits(t *testing.T) {
	user := testUser(0)
	generator := &fakeGenerator{fragments: []string{"never"}}
	store := &fakeStore{}
	sink := &recordSink{}

	r := testRelay(t, &fakeCredits{user: user}, store, generator)

	_, err := r.Generate(context.Background(), testRequest(""), sink)

	var creditsErr *InsufficientCreditsError
	require.ErrorAs(t, err, &creditsErr)
	assert.Equal(t, 0, creditsErr.Credits)

	// reset was 1h ago, so the next refill is ~23h out
	untilReset := time.Until(creditsErr.NextReset)
	assert.InDelta(t, (23 * time.Hour).Seconds(), untilReset.Seconds(), (5 * time.Minute).Seconds())

	// no upstream call, no streaming, no persistence
	assert.False(t, generator.called)
	assert.False(t, sink.started)
	assert.Empty(t, store.calls())
}

func TestGenerate_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"missing frame", func(r *Request) { r.FrameID = "" }},
		{"missing email", func(r *Request) { r.UserEmail = "" }},
		{"no messages", func(r *Request) { r.Messages = nil }},
		{"bad role", func(r *Request) { r.Messages = []Message{{Role: "robot", Content: "hi"}} }},
		{"no user message", func(r *Request) { r.Messages = []Message{{Role: "assistant", Content: "hi"}} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generator := &fakeGenerator{fragments: []string{"x"}}
			store := &fakeStore{}

			r := testRelay(t, &fakeCredits{user: testUser(5)}, store, generator)

			req := testRequest("")
			tt.mutate(&req)

			_, err := r.Generate(context.Background(), req, &recordSink{})

			var validationErr *ValidationError
			assert.ErrorAs(t, err, &validationErr)
			assert.False(t, generator.called)
			assert.Empty(t, store.calls())
		})
	}
}

func TestGenerate_DuplicateSuppressesChargeOnly(t *testing.T) {
	markup := `<div class="page">` + strings.Repeat("block ", 50) + "</div>"
	store := &fakeStore{}

	dedupStore := dedup.NewMemoryStore()
	t.Cleanup(dedupStore.Stop)

	template, err := prompt.Load("")
	require.NoError(t, err)

	r := New(&fakeCredits{user: testUser(5)}, store, &fakeGenerator{fragments: []string{markup}}, dedupStore, template)

	first, err := r.Generate(context.Background(), testRequest("g1"), &recordSink{})
	require.NoError(t, err)

	second, err := r.Generate(context.Background(), testRequest("g1"), &recordSink{})
	require.NoError(t, err)

	assert.True(t, first.Charged)
	assert.False(t, first.Duplicate)
	assert.True(t, second.Duplicate)
	assert.False(t, second.Charged)

	// both messages are persisted; only billing is suppressed
	calls := store.calls()
	require.Len(t, calls, 2)
	assert.True(t, calls[0].charge)
	assert.False(t, calls[1].charge)
}

func TestGenerate_NoGenerationIDSkipsDedup(t *testing.T) {
	markup := `<div class="page">` + strings.Repeat("block ", 50) + "</div>"
	store := &fakeStore{}
	generator := &fakeGenerator{fragments: []string{markup}}

	r := testRelay(t, &fakeCredits{user: testUser(5)}, store, generator)

	first, err := r.Generate(context.Background(), testRequest(""), &recordSink{})
	require.NoError(t, err)

	second, err := r.Generate(context.Background(), testRequest(""), &recordSink{})
	require.NoError(t, err)

	assert.True(t, first.Charged)
	assert.True(t, second.Charged)
}

func TestGenerate_ConversationalOutputNotCharged(t *testing.T) {
	generator := &fakeGenerator{fragments: []string{"Could you clarify what kind of section you want?"}}
	store := &fakeStore{}

	r := testRelay(t, &fakeCredits{user: testUser(5)}, store, generator)

	outcome, err := r.Generate(context.Background(), testRequest(""), &recordSink{})

	require.NoError(t, err)
	assert.False(t, outcome.Substantial)
	assert.False(t, outcome.Charged)

	// message still persisted, without a charge
	calls := store.calls()
	require.Len(t, calls, 1)
	assert.False(t, calls[0].charge)
}

func TestGenerate_InterruptedStreamStillPersists(t *testing.T) {
	markup := `<section class="hero">` + strings.Repeat("partial ", 40)
	generator := &fakeGenerator{fragments: []string{markup}, interrupted: true}
	store := &fakeStore{}

	r := testRelay(t, &fakeCredits{user: testUser(5)}, store, generator)

	outcome, err := r.Generate(context.Background(), testRequest(""), &recordSink{})

	require.NoError(t, err)
	assert.True(t, outcome.Interrupted)
	assert.True(t, outcome.Persisted)

	calls := store.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, markup, calls[0].content)
}

func TestGenerate_ClientDisconnectStopsStreamButPersists(t *testing.T) {
	generator := &fakeGenerator{fragments: []string{"A", "B", "C"}}
	store := &fakeStore{}
	sink := &recordSink{failAfter: 1}

	r := testRelay(t, &fakeCredits{user: testUser(5)}, store, generator)

	outcome, err := r.Generate(context.Background(), testRequest(""), sink)

	require.NoError(t, err)
	assert.True(t, outcome.Interrupted)
	assert.Equal(t, []string{"A"}, sink.fragments)

	// whatever accumulated before the disconnect is persisted
	calls := store.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "AB", calls[0].content)
}

func TestGenerate_UpstreamUnavailable(t *testing.T) {
	generator := &fakeGenerator{err: fmt.Errorf("%w: status 503", llm.ErrUpstreamUnavailable)}
	store := &fakeStore{}
	sink := &recordSink{}

	r := testRelay(t, &fakeCredits{user: testUser(5)}, store, generator)

	_, err := r.Generate(context.Background(), testRequest(""), sink)

	assert.ErrorIs(t, err, llm.ErrUpstreamUnavailable)
	assert.False(t, sink.started)
	assert.Empty(t, store.calls())
}

func TestGenerate_PersistenceFailureNotSurfaced(t *testing.T) {
	markup := `<div class="page">` + strings.Repeat("block ", 50) + "</div>"
	generator := &fakeGenerator{fragments: []string{markup}}
	store := &fakeStore{err: fmt.Errorf("database connection lost")}
	sink := &recordSink{}

	r := testRelay(t, &fakeCredits{user: testUser(5)}, store, generator)

	outcome, err := r.Generate(context.Background(), testRequest(""), sink)

	// the client already received the stream; bookkeeping failure stays internal
	require.NoError(t, err)
	assert.False(t, outcome.Persisted)
	assert.False(t, outcome.Charged)
	assert.Equal(t, []string{markup}, sink.fragments)
}
