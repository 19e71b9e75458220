// Package provider defines the text-generation provider boundary.
//
// The provider package holds the Invoker interface that every provider
// family (OpenAI, Groq, Anthropic, Ollama) implements, the immutable
// per-provider configuration, and the Registry that resolves a task
// type into an ordered list of candidate providers.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Family identifies a provider family. Each family maps to one Invoker
// implementation.
type Family string

const (
	FamilyOpenAI    Family = "openai"
	FamilyGroq      Family = "groq"
	FamilyAnthropic Family = "anthropic"
	FamilyOllama    Family = "ollama"
)

// Message is one entry of an ordered chat transcript.
type Message struct {
	Role    string `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// Params are the sampling parameters for a single invocation.
type Params struct {
	Model       string
	Temperature float64
	MaxTokens   int
	TopP        float64
}

// Result contains the generated text along with token usage.
type Result struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
}

// Invoker is the single capability the operations core needs from a
// provider: given a transcript and parameters, return generated text
// or fail. Implementations must honor context cancellation.
type Invoker interface {
	Invoke(ctx context.Context, messages []Message, params Params) (*Result, error)
}

// ErrNoProviderAvailable is returned when no registered provider can
// serve the requested task type. Callers should surface it, not retry.
var ErrNoProviderAvailable = errors.New("no provider available for task")

// InvocationError wraps a failure from one provider so the fallback
// chain can report which candidate failed.
type InvocationError struct {
	Provider string
	Err      error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// Config holds the immutable configuration for one provider. It is
// loaded once at startup and replaced wholesale on reload; the
// Registry never mutates individual fields.
type Config struct {
	Name              string        `yaml:"name"`
	Family            Family        `yaml:"family"`
	Model             string        `yaml:"model"`
	Temperature       float64       `yaml:"temperature"`
	MaxTokens         int           `yaml:"max_tokens"`
	CostPerToken      float64       `yaml:"cost_per_token"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	TokensPerMinute   int           `yaml:"tokens_per_minute"`
	Timeout           time.Duration `yaml:"timeout"`
	Priority          int           `yaml:"priority"` // lower = preferred
	Capabilities      []string      `yaml:"capabilities"`
	Enabled           bool          `yaml:"enabled"`

	// Transport settings consumed by the per-family adapters.
	APIKey  string `yaml:"api_key,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// Validate checks that a provider configuration is usable. A failing
// provider is skipped at startup; other providers remain usable.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("provider name is required")
	}

	switch c.Family {
	case FamilyOpenAI, FamilyGroq, FamilyAnthropic, FamilyOllama:
	case "":
		return fmt.Errorf("provider %s: family is required", c.Name)
	default:
		return fmt.Errorf("provider %s: unsupported family %q", c.Name, c.Family)
	}

	if c.Model == "" {
		return fmt.Errorf("provider %s: model is required", c.Name)
	}

	if c.CostPerToken < 0 {
		return fmt.Errorf("provider %s: cost_per_token must be >= 0", c.Name)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("provider %s: timeout must be > 0", c.Name)
	}

	return nil
}

// HasCapability reports whether the provider declares the given
// capability tag.
func (c *Config) HasCapability(tag string) bool {
	for _, cap := range c.Capabilities {
		if cap == tag {
			return true
		}
	}
	return false
}
