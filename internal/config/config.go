// Package config provides layered configuration loading for filingrag.
//
// Precedence, highest to lowest: environment variables (FILINGRAG_*), the
// YAML config file, hardcoded defaults.
package config

import (
	"fmt"
)

// Config is the root configuration.
type Config struct {
	Logging    LoggingConfig    `koanf:"logging"`
	Chunking   ChunkingConfig   `koanf:"chunking"`
	Embedding  EmbeddingConfig  `koanf:"embedding"`
	Index      IndexConfig      `koanf:"index"`
	Generation GenerationConfig `koanf:"generation"`
	Ingest     IngestConfig     `koanf:"ingest"`
	Retrieval  RetrievalConfig  `koanf:"retrieval"`

	// Catalog is the static list of tracked entity tickers. It is consumed
	// by the presentation layer only; the pipeline never validates query
	// tickers against it.
	Catalog []string `koanf:"catalog"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// ChunkingConfig configures the document chunker.
type ChunkingConfig struct {
	// Size is the window length in words.
	Size int `koanf:"size"`

	// Overlap is the number of words shared by consecutive windows.
	// Must be strictly less than Size.
	Overlap int `koanf:"overlap"`

	// MinLength is the minimum trimmed character length of an emitted
	// chunk; shorter windows are dropped as boilerplate.
	MinLength int `koanf:"min_length"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	// Provider is "fastembed" or "tei".
	Provider string `koanf:"provider"`
	Model    string `koanf:"model"`
	BaseURL  string `koanf:"base_url"`
	CacheDir string `koanf:"cache_dir"`
}

// IndexConfig configures the vector index backend.
type IndexConfig struct {
	// Backend is "chromem" or "qdrant".
	Backend    string `koanf:"backend"`
	Path       string `koanf:"path"`
	Collection string `koanf:"collection"`
	VectorSize int    `koanf:"vector_size"`
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	UseTLS     bool   `koanf:"use_tls"`
}

// GenerationConfig configures the answer generator.
type GenerationConfig struct {
	Model             string  `koanf:"model"`
	ServerURL         string  `koanf:"server_url"`
	RequestsPerSecond float64 `koanf:"requests_per_second"`
}

// IngestConfig configures the ingestion pipeline.
type IngestConfig struct {
	// RawDir is the corpus root of raw filings.
	RawDir string `koanf:"raw_dir"`

	// ProcessedDir receives the processed-chunks snapshot.
	ProcessedDir string `koanf:"processed_dir"`

	// Manifest is an optional JSON file mapping corpus-relative paths to
	// explicit provenance; documents without an entry fall back to
	// path-derived metadata.
	Manifest string `koanf:"manifest"`

	// BatchSize is the number of chunks embedded and written together.
	BatchSize int `koanf:"batch_size"`

	// Workers bounds the ingestion worker pool.
	Workers int `koanf:"workers"`
}

// RetrievalConfig configures query-time retrieval.
type RetrievalConfig struct {
	// TopK is the default number of chunks retrieved per query.
	TopK int `koanf:"top_k"`
}

// Default returns the configuration defaults.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Chunking: ChunkingConfig{
			Size:      1000,
			Overlap:   200,
			MinLength: 100,
		},
		Embedding: EmbeddingConfig{
			Provider: "fastembed",
			Model:    "BAAI/bge-small-en-v1.5",
			BaseURL:  "http://localhost:8080",
		},
		Index: IndexConfig{
			Backend:    "chromem",
			Path:       "data/vector_db",
			Collection: "sec_filings",
			VectorSize: 384,
			Host:       "localhost",
			Port:       6334,
		},
		Generation: GenerationConfig{
			Model:             "llama3.1:8b",
			ServerURL:         "http://localhost:11434",
			RequestsPerSecond: 1,
		},
		Ingest: IngestConfig{
			RawDir:       "data/raw_filings",
			ProcessedDir: "data/processed",
			BatchSize:    10,
			Workers:      4,
		},
		Retrieval: RetrievalConfig{TopK: 5},
		Catalog: []string{
			"AAPL", "MSFT", "NVDA", "GOOGL", "AMZN", "META", "TSLA", "AVGO",
			"ORCL", "ADBE", "CRM", "CSCO", "ACN", "AMD", "IBM", "INTU",
			"NOW", "TXN", "QCOM", "AMAT", "PANW", "MU", "INTC", "ADI",
			"LRCX", "KLAC", "SNPS", "CDNS", "MCHP", "NXPI", "MRVL", "FTNT",
			"WDAY", "TEAM", "SNOW",
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("chunking.size must be positive, got %d", c.Chunking.Size)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("chunking.overlap must be in [0, size), got %d with size %d",
			c.Chunking.Overlap, c.Chunking.Size)
	}
	if c.Chunking.MinLength < 0 {
		return fmt.Errorf("chunking.min_length cannot be negative, got %d", c.Chunking.MinLength)
	}
	if c.Index.VectorSize <= 0 {
		return fmt.Errorf("index.vector_size must be positive, got %d", c.Index.VectorSize)
	}
	if c.Ingest.BatchSize <= 0 {
		return fmt.Errorf("ingest.batch_size must be positive, got %d", c.Ingest.BatchSize)
	}
	if c.Ingest.Workers <= 0 {
		return fmt.Errorf("ingest.workers must be positive, got %d", c.Ingest.Workers)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	}
	return nil
}
