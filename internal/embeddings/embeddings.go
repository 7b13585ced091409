// Package embeddings provides text embedding generation via multiple providers.
//
// Providers encode text into fixed-dimension vectors with two distinct
// modes: passage encoding for stored content and query encoding for
// incoming questions. The split matters because E5/BGE model families are
// trained asymmetrically; a question and a passage with the same wording
// must not share an embedding.
package embeddings

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingFailed indicates embedding generation failure.
	// Callers must treat this as a reported error; no default vector is
	// ever substituted.
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// Provider generates vector embeddings from text.
//
// Implementations must be deterministic: identical (text, mode) input
// yields identical vectors, and Dimension is fixed for the lifetime of a
// provider instance. Providers are safe for concurrent use.
type Provider interface {
	// EmbedPassages encodes stored passages, one vector per input text.
	EmbedPassages(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery encodes an incoming question.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the embedding dimension for the current model.
	Dimension() int

	// Close releases resources held by the provider.
	Close() error
}

// Config holds configuration for creating an embedding provider.
type Config struct {
	// Provider is the provider type: "fastembed" (default) or "tei".
	Provider string

	// Model is the embedding model name.
	Model string

	// BaseURL is the TEI server URL (TEI provider only).
	BaseURL string

	// CacheDir is the model cache directory (FastEmbed provider only).
	CacheDir string
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = "fastembed"
	}
	if c.Model == "" {
		c.Model = "BAAI/bge-small-en-v1.5"
	}
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:8080"
	}
}

// NewProvider creates an embedding provider based on the configuration.
func NewProvider(cfg Config) (Provider, error) {
	cfg.ApplyDefaults()

	switch cfg.Provider {
	case "fastembed":
		return NewFastEmbedProvider(FastEmbedConfig{
			Model:    cfg.Model,
			CacheDir: cfg.CacheDir,
		})
	case "tei":
		return NewTEIProvider(TEIConfig{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		})
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}

// detectDimension returns the embedding dimension for a model name when the
// provider cannot report it directly. Falls back to 384.
func detectDimension(model string) int {
	switch {
	case strings.Contains(model, "large"):
		return 1024
	case strings.Contains(model, "base"):
		return 768
	case strings.Contains(model, "small"), strings.Contains(model, "mini"), strings.Contains(model, "Mini"):
		return 384
	default:
		return 384
	}
}
