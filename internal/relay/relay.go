// Package relay orchestrates one end-to-end generation: credit check,
// prompt assembly, live fragment relay from the upstream model, post-hoc
// billing classification, and atomic persistence of message plus charge.
package relay

import (
	"context"
	"fmt"
	"time"

	"codeberg.org/pagecraft/server/internal/dedup"
	"codeberg.org/pagecraft/server/internal/llm"
	"codeberg.org/pagecraft/server/internal/logger"
	"codeberg.org/pagecraft/server/internal/prompt"
)

const (
	// safety bound on one upstream stream; the upstream transport has no
	// duration guard of its own
	DefaultMaxStreamDuration = 2 * time.Minute

	// budget for the final persistence step, detached from the request
	// context so a client disconnect cannot cancel bookkeeping
	persistTimeout = 10 * time.Second
)

// creates a relay with the default stream duration bound
func New(credits CreditStore, store GenerationStore, generator llm.StreamGenerator, dedupStore dedup.Store, template *prompt.Template) *Relay {
	return &Relay{
		credits:           credits,
		store:             store,
		generator:         generator,
		dedup:             dedupStore,
		template:          template,
		maxStreamDuration: DefaultMaxStreamDuration,
	}
}

// overrides the stream duration bound (tests)
func (r *Relay) SetMaxStreamDuration(d time.Duration) {
	r.maxStreamDuration = d
}

// runs one generation through its phases:
//
//	validate -> credit check -> stream -> classify -> persist
//
// Failures before the sink is started are returned as typed errors with
// no side effects. Once the first fragment has been relayed the stream
// can only end early, never fail: partial output is persisted and nil is
// returned, because the client already consumed the fragments.
func (r *Relay) Generate(ctx context.Context, req Request, sink Sink) (*Outcome, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	// reset-check must precede the credit check so a request arriving
	// just past the refill boundary sees fresh credits
	user, err := r.credits.ResetIfDue(ctx, req.UserEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user credits: %w", err)
	}

	if !user.HasCredits() {
		return nil, &InsufficientCreditsError{
			Credits:   user.Credits,
			NextReset: user.NextReset(),
		}
	}

	promptText := r.template.Build(latestUserMessage(req.Messages))

	// the sink is committed lazily on the first fragment, so an upstream
	// rejection before any output still yields a clean structured error
	started := false
	onFragment := func(fragment string) error {
		if !started {
			if err := sink.OnStart(); err != nil {
				return err
			}

			started = true
		}

		return sink.OnFragment(fragment)
	}

	streamCtx, cancel := context.WithTimeout(ctx, r.maxStreamDuration)
	defer cancel()

	result, err := r.generator.StreamGenerate(streamCtx, llm.StreamRequest{Prompt: promptText}, onFragment)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{
		Text:        result.Text,
		Model:       result.Model,
		Interrupted: result.Interrupted,
	}

	outcome.Substantial = Substantial(result.Text)

	// persistence must survive a client disconnect; the request context
	// may already be canceled by now
	persistCtx, cancelPersist := context.WithTimeout(context.Background(), persistTimeout)
	defer cancelPersist()

	// dedup verdict and record happen only now, after accumulation, so
	// requests that never produced output cannot suppress future retries
	if req.GenerationID != "" {
		key := dedup.Key(req.UserID, req.GenerationID)

		seen, err := r.dedup.Seen(persistCtx, key)
		if err != nil {
			// soft guard: on store failure treat the request as unique
			logger.ErrorErr(err, "dedup lookup failed, treating generation as unique", "key", key)
		} else {
			outcome.Duplicate = seen
		}

		if err := r.dedup.Record(persistCtx, key); err != nil {
			logger.ErrorErr(err, "failed to record dedup key", "key", key)
		}
	}

	shouldCharge := outcome.Substantial && !outcome.Duplicate

	charged, err := r.store.SaveGeneration(persistCtx, req.FrameID, req.UserEmail, result.Text, shouldCharge)
	if err != nil {
		// the client already received the streamed text; bookkeeping
		// failures are logged, never surfaced
		logger.ErrorErr(err, "failed to persist generation",
			"frame_id", req.FrameID,
			"user_email", req.UserEmail,
			"should_charge", shouldCharge,
		)
	} else {
		outcome.Persisted = true
		outcome.Charged = charged
	}

	logger.Info("generation completed",
		"frame_id", req.FrameID,
		"model", outcome.Model,
		"length", len(outcome.Text),
		"substantial", outcome.Substantial,
		"duplicate", outcome.Duplicate,
		"charged", outcome.Charged,
		"interrupted", outcome.Interrupted,
	)

	return outcome, nil
}

// checks request shape before any upstream call
func validate(req Request) error {
	if req.FrameID == "" {
		return &ValidationError{Reason: "frameId is required"}
	}

	if req.UserEmail == "" {
		return &ValidationError{Reason: "authenticated user email is required"}
	}

	if len(req.Messages) == 0 {
		return &ValidationError{Reason: "messages must not be empty"}
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case "user", "assistant", "system":
		default:
			return &ValidationError{Reason: "unrecognized message role: " + msg.Role}
		}
	}

	if latestUserMessage(req.Messages) == "" {
		return &ValidationError{Reason: "a non-empty user message is required"}
	}

	return nil
}

// returns the content of the most recent user-role message
func latestUserMessage(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}

	return ""
}
