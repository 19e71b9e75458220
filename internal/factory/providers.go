// Package factory provides factory functions for creating provider invokers.
//
// The factory package centralizes invoker creation logic, eliminating
// duplication and providing a single source of truth for turning a
// provider configuration into a working Invoker.
package factory

import (
	"fmt"
	"os"

	"github.com/hirepath/llmops/internal/provider"
	"github.com/rs/zerolog"
)

// NewInvoker creates a provider invoker for the configured family.
// API keys fall back to the conventional environment variable for the
// family when not present in the configuration.
func NewInvoker(cfg provider.Config, logger zerolog.Logger) (provider.Invoker, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = keyFromEnv(cfg.Family)
	}

	switch cfg.Family {
	case provider.FamilyOpenAI, provider.FamilyGroq:
		return provider.NewOpenAIInvoker(cfg, logger)

	case provider.FamilyAnthropic:
		return provider.NewAnthropicInvoker(cfg, logger)

	case provider.FamilyOllama:
		return provider.NewOllamaInvoker(cfg, logger)

	default:
		return nil, fmt.Errorf("unsupported provider family: %s (supported: openai, groq, anthropic, ollama)", cfg.Family)
	}
}

func keyFromEnv(family provider.Family) string {
	switch family {
	case provider.FamilyOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	case provider.FamilyGroq:
		return os.Getenv("GROQ_API_KEY")
	case provider.FamilyAnthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	default:
		return ""
	}
}
