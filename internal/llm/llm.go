package llm

import "fmt"

// creates a streaming generator with auto-configuration from environment variables
func NewStreamGenerator() (StreamGenerator, error) {
	config, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load LLM config: %w", err)
	}

	return NewStreamGeneratorWithConfig(config)
}

// creates a streaming generator with explicit configuration
func NewStreamGeneratorWithConfig(config *Config) (StreamGenerator, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	switch config.Provider {
	case ProviderGemini:
		return NewGeminiClient(GeminiConfig{
			APIKey: config.APIKey,
			Model:  config.Model,
		}), nil
	case ProviderOpenAI:
		return NewOpenAIClient(OpenAIConfig{
			APIKey: config.APIKey,
			Model:  config.Model,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", config.Provider)
	}
}
