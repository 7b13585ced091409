package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.Chunking.Size)
	assert.Equal(t, 200, cfg.Chunking.Overlap)
	assert.Equal(t, 100, cfg.Chunking.MinLength)
	assert.Equal(t, "fastembed", cfg.Embedding.Provider)
	assert.Equal(t, "chromem", cfg.Index.Backend)
	assert.Equal(t, "sec_filings", cfg.Index.Collection)
	assert.Equal(t, 384, cfg.Index.VectorSize)
	assert.Equal(t, "llama3.1:8b", cfg.Generation.Model)
	assert.Equal(t, 10, cfg.Ingest.BatchSize)
	assert.Equal(t, 4, cfg.Ingest.Workers)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Contains(t, cfg.Catalog, "AAPL")
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
chunking:
  size: 500
  overlap: 50
index:
  backend: qdrant
  host: qdrant.internal
  port: 7000
retrieval:
  top_k: 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Chunking.Size)
	assert.Equal(t, 50, cfg.Chunking.Overlap)
	assert.Equal(t, "qdrant", cfg.Index.Backend)
	assert.Equal(t, "qdrant.internal", cfg.Index.Host)
	assert.Equal(t, 7000, cfg.Index.Port)
	assert.Equal(t, 3, cfg.Retrieval.TopK)

	// Untouched sections keep defaults.
	assert.Equal(t, 100, cfg.Chunking.MinLength)
	assert.Equal(t, "llama3.1:8b", cfg.Generation.Model)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunking:\n  size: 500\n"), 0o600))

	t.Setenv("FILINGRAG_CHUNKING_SIZE", "300")
	t.Setenv("FILINGRAG_CHUNKING_MIN_LENGTH", "10")
	t.Setenv("FILINGRAG_INDEX_VECTOR_SIZE", "768")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 300, cfg.Chunking.Size)
	assert.Equal(t, 10, cfg.Chunking.MinLength)
	assert.Equal(t, 768, cfg.Index.VectorSize)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.Chunking.Size)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunking: [unterminated"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "zero chunk size",
			mutate:  func(c *Config) { c.Chunking.Size = 0 },
			wantErr: "chunking.size",
		},
		{
			name:    "overlap equal to size",
			mutate:  func(c *Config) { c.Chunking.Overlap = c.Chunking.Size },
			wantErr: "chunking.overlap",
		},
		{
			name:    "negative min length",
			mutate:  func(c *Config) { c.Chunking.MinLength = -1 },
			wantErr: "chunking.min_length",
		},
		{
			name:    "zero vector size",
			mutate:  func(c *Config) { c.Index.VectorSize = 0 },
			wantErr: "index.vector_size",
		},
		{
			name:    "zero batch size",
			mutate:  func(c *Config) { c.Ingest.BatchSize = 0 },
			wantErr: "ingest.batch_size",
		},
		{
			name:    "zero workers",
			mutate:  func(c *Config) { c.Ingest.Workers = 0 },
			wantErr: "ingest.workers",
		},
		{
			name:    "zero top_k",
			mutate:  func(c *Config) { c.Retrieval.TopK = 0 },
			wantErr: "retrieval.top_k",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
