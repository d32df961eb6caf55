package llm

import (
	"fmt"
	"os"
)

// loadConfig loads upstream client configuration from environment variables
func loadConfig() (*Config, error) {
	provider := Provider(os.Getenv("LLM_PROVIDER"))
	if provider == "" {
		provider = ProviderGemini // default
	}

	model := os.Getenv("GENERATOR_MODEL")

	switch provider {
	case ProviderGemini:
		apiKey := os.Getenv("GEMINI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
		}

		if model == "" {
			model = "gemini-2.0-flash"
		}

		return &Config{Provider: provider, APIKey: apiKey, Model: model}, nil

	case ProviderOpenAI:
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required")
		}

		if model == "" {
			model = "gpt-4o"
		}

		return &Config{Provider: provider, APIKey: apiKey, Model: model}, nil

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}
