package main

import (
	"fmt"

	"codeberg.org/pagecraft/server/internal/config"
	"codeberg.org/pagecraft/server/internal/dedup"
	"codeberg.org/pagecraft/server/internal/llm"
	"codeberg.org/pagecraft/server/internal/prompt"
	"codeberg.org/pagecraft/server/internal/relay"
	"codeberg.org/pagecraft/server/pagecraft/chat"
	"codeberg.org/pagecraft/server/pagecraft/users"
)

// creates the generation pipeline: upstream client, prompt template,
// dedup store, and the relay that ties them together
func InitializeServices(cfg *config.Config, userRepo *users.Repository, chatRepo *chat.Repository, dedupStore dedup.Store) (*Services, error) {
	generator, err := llm.NewStreamGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream client: %w", err)
	}

	template, err := prompt.Load(cfg.PromptTemplatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt template: %w", err)
	}

	relayClient := relay.New(userRepo, chatRepo, generator, dedupStore, template)

	return &Services{
		Generator: generator,
		Template:  template,
		Dedup:     dedupStore,
		Relay:     relayClient,
	}, nil
}
