package vectorstore

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Config selects and configures a store backend.
type Config struct {
	// Backend is "chromem" (embedded, default) or "qdrant" (external).
	Backend string

	// Path is the persistence directory (chromem only).
	Path string

	// Collection is the collection name for either backend.
	Collection string

	// VectorSize is the embedding dimension; must match the provider.
	VectorSize int

	// Host and Port locate the Qdrant gRPC endpoint (qdrant only).
	Host string
	Port int

	// UseTLS enables TLS for Qdrant (qdrant only).
	UseTLS bool

	// RetryBackoff is the initial retry backoff for Qdrant operations.
	RetryBackoff time.Duration
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = "chromem"
	}
}

// New creates a Store for the configured backend.
func New(cfg Config, logger *zap.Logger) (Store, error) {
	cfg.ApplyDefaults()

	switch cfg.Backend {
	case "chromem":
		return NewChromemStore(ChromemConfig{
			Path:       cfg.Path,
			Collection: cfg.Collection,
			VectorSize: cfg.VectorSize,
		}, logger)
	case "qdrant":
		return NewQdrantStore(QdrantConfig{
			Host:         cfg.Host,
			Port:         cfg.Port,
			Collection:   cfg.Collection,
			VectorSize:   cfg.VectorSize,
			UseTLS:       cfg.UseTLS,
			RetryBackoff: cfg.RetryBackoff,
		}, logger)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, cfg.Backend)
	}
}
