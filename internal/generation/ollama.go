package generation

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"golang.org/x/time/rate"
)

const (
	defaultOllamaModel = "llama3.1:8b"
	defaultOllamaURL   = "http://localhost:11434"

	// One request in flight on average; local models serialize anyway.
	defaultRateLimit = 1
	defaultBurst     = 2
)

// OllamaConfig holds configuration for the Ollama generator.
type OllamaConfig struct {
	// Model is the Ollama model tag. Default: "llama3.1:8b"
	Model string

	// ServerURL is the Ollama server base URL.
	// Default: "http://localhost:11434"
	ServerURL string

	// RequestsPerSecond caps the call rate. Default: 1
	RequestsPerSecond float64
}

// ApplyDefaults sets default values for unset fields.
func (c *OllamaConfig) ApplyDefaults() {
	if c.Model == "" {
		c.Model = defaultOllamaModel
	}
	if c.ServerURL == "" {
		c.ServerURL = defaultOllamaURL
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = defaultRateLimit
	}
}

// OllamaGenerator generates answers with a local Ollama model via
// langchaingo. No retries are performed here; the single-shot call keeps
// the orchestrator's latency predictable.
type OllamaGenerator struct {
	llm     *ollama.LLM
	model   string
	limiter *rate.Limiter
}

// NewOllamaGenerator creates a generator backed by an Ollama server.
func NewOllamaGenerator(cfg OllamaConfig) (*OllamaGenerator, error) {
	cfg.ApplyDefaults()

	llm, err := ollama.New(
		ollama.WithModel(cfg.Model),
		ollama.WithServerURL(cfg.ServerURL),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: creating ollama client: %v", ErrInvalidConfig, err)
	}

	return &OllamaGenerator{
		llm:     llm,
		model:   cfg.Model,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), defaultBurst),
	}, nil
}

// Generate returns the model's completion for the prompt.
func (g *OllamaGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	answer, err := llms.GenerateFromSinglePrompt(ctx, g.llm, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: model %s: %v", ErrGenerationFailed, g.model, err)
	}
	return answer, nil
}

var _ Generator = (*OllamaGenerator)(nil)
