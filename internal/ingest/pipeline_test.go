package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/filingsight/filingrag/internal/document"
	"github.com/filingsight/filingrag/internal/vectorstore"
)

// unitEmbedder returns the same unit vector for every passage.
type unitEmbedder struct{}

func (unitEmbedder) EmbedPassages(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

// failingEmbedder fails every call.
type failingEmbedder struct{}

func (failingEmbedder) EmbedPassages(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("model unavailable")
}

func writeCorpusFile(t *testing.T, root string, parts []string, content string) {
	t.Helper()
	path := filepath.Join(append([]string{root}, parts...)...)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestStore(t *testing.T) vectorstore.Store {
	t.Helper()
	store, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{
		Path:       filepath.Join(t.TempDir(), "vector_db"),
		Collection: "test_filings",
		VectorSize: 3,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestPipeline(t *testing.T, rawDir, processedDir string, store vectorstore.Store) *Pipeline {
	t.Helper()
	chunker, err := document.NewChunker(5, 2, 0)
	require.NoError(t, err)

	p, err := NewPipeline(Config{
		RawDir:       rawDir,
		ProcessedDir: processedDir,
		BatchSize:    2,
		Workers:      2,
	}, chunker, unitEmbedder{}, store, zap.NewNop())
	require.NoError(t, err)
	return p
}

func TestRunIngestsCorpus(t *testing.T) {
	rawDir := t.TempDir()
	processedDir := filepath.Join(t.TempDir(), "processed")

	// Seven words chunked with size 5 overlap 2 yields two chunks.
	writeCorpusFile(t, rawDir,
		[]string{"AAPL", "10-K", "0000320193-24-000123", "filing.txt"},
		"revenue grew across all product categories worldwide")
	writeCorpusFile(t, rawDir,
		[]string{"MSFT", "10-Q", "0000789019-24-000045", "filing.html"},
		"<html><body><p>cloud segment margins expanded</p><script>ignored()</script></body></html>")
	// Unsupported extension is not walked into the pipeline.
	writeCorpusFile(t, rawDir,
		[]string{"AAPL", "10-K", "0000320193-24-000123", "filing.pdf"},
		"binary payload")

	store := newTestStore(t)
	p := newTestPipeline(t, rawDir, processedDir, store)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Documents)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 3, summary.Chunks)
	assert.Equal(t, 2, summary.Batches)

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestRunWritesSnapshot(t *testing.T) {
	rawDir := t.TempDir()
	processedDir := filepath.Join(t.TempDir(), "processed")

	writeCorpusFile(t, rawDir,
		[]string{"NVDA", "10-K", "0001045810-24-000029", "filing.txt"},
		"data center revenue reached record levels")

	store := newTestStore(t)
	p := newTestPipeline(t, rawDir, processedDir, store)

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(processedDir, SnapshotFilename))
	require.NoError(t, err)

	var chunks []document.Chunk
	require.NoError(t, json.Unmarshal(data, &chunks))
	require.Len(t, chunks, 2)
	for _, c := range chunks {
		assert.Equal(t, "NVDA", c.Metadata.Ticker)
		assert.Equal(t, "10-K", c.Metadata.FilingType)
		assert.Equal(t, "0001045810-24-000029", c.Metadata.AccessionNumber)
		assert.Equal(t, "filing.txt", c.Metadata.Filename)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	rawDir := t.TempDir()
	processedDir := filepath.Join(t.TempDir(), "processed")

	writeCorpusFile(t, rawDir,
		[]string{"AAPL", "10-K", "0000320193-24-000123", "filing.txt"},
		"services revenue grew while hardware sales held steady overall")

	store := newTestStore(t)
	p := newTestPipeline(t, rawDir, processedDir, store)

	first, err := p.Run(context.Background())
	require.NoError(t, err)

	second, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.Chunks, second.Chunks)

	// Snapshot offsets are stable, so the rerun overwrites records in
	// place instead of duplicating them.
	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.Chunks, count)
}

func TestRunManifestOverridesPathMetadata(t *testing.T) {
	rawDir := t.TempDir()
	processedDir := filepath.Join(t.TempDir(), "processed")

	writeCorpusFile(t, rawDir, []string{"dump", "oddly_named.txt"},
		"operating income increased on strong subscription renewals")

	manifestPath := filepath.Join(t.TempDir(), "manifest.json")
	manifest := `{"dump/oddly_named.txt": {"ticker": "ORCL", "filing_type": "10-K", "accession_number": "0001341439-24-000111"}}`
	require.NoError(t, os.WriteFile(manifestPath, []byte(manifest), 0o644))

	chunker, err := document.NewChunker(5, 2, 0)
	require.NoError(t, err)
	store := newTestStore(t)
	p, err := NewPipeline(Config{
		RawDir:       rawDir,
		ProcessedDir: processedDir,
		ManifestPath: manifestPath,
	}, chunker, unitEmbedder{}, store, zap.NewNop())
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(processedDir, SnapshotFilename))
	require.NoError(t, err)
	var chunks []document.Chunk
	require.NoError(t, json.Unmarshal(data, &chunks))
	require.NotEmpty(t, chunks)
	assert.Equal(t, "ORCL", chunks[0].Metadata.Ticker)
	assert.Equal(t, "10-K", chunks[0].Metadata.FilingType)
	assert.Equal(t, "oddly_named.txt", chunks[0].Metadata.Filename)
}

func TestRunEmptyCorpus(t *testing.T) {
	rawDir := t.TempDir()
	processedDir := filepath.Join(t.TempDir(), "processed")

	store := newTestStore(t)
	p := newTestPipeline(t, rawDir, processedDir, store)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Documents)
	assert.Equal(t, 0, summary.Chunks)

	// The snapshot is still rewritten, as an empty corpus.
	_, err = os.Stat(filepath.Join(processedDir, SnapshotFilename))
	assert.NoError(t, err)
}

func TestRunMissingCorpusDir(t *testing.T) {
	store := newTestStore(t)
	p := newTestPipeline(t, filepath.Join(t.TempDir(), "nope"), t.TempDir(), store)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorpusUnreadable)
}

func TestRunEmbeddingFailureAbortsRun(t *testing.T) {
	rawDir := t.TempDir()
	writeCorpusFile(t, rawDir,
		[]string{"AAPL", "10-K", "0000320193-24-000123", "filing.txt"},
		"gross margin expanded on favorable product mix")

	chunker, err := document.NewChunker(5, 2, 0)
	require.NoError(t, err)
	store := newTestStore(t)
	p, err := NewPipeline(Config{
		RawDir:       rawDir,
		ProcessedDir: filepath.Join(t.TempDir(), "processed"),
	}, chunker, failingEmbedder{}, store, zap.NewNop())
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed")
}

func TestNewPipelineValidation(t *testing.T) {
	chunker, err := document.NewChunker(5, 2, 0)
	require.NoError(t, err)
	store := newTestStore(t)

	_, err = NewPipeline(Config{ProcessedDir: "p"}, chunker, unitEmbedder{}, store, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewPipeline(Config{RawDir: "r"}, chunker, unitEmbedder{}, store, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewPipeline(Config{RawDir: "r", ProcessedDir: "p"}, nil, unitEmbedder{}, store, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewPipeline(Config{RawDir: "r", ProcessedDir: "p"}, chunker, nil, store, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewPipeline(Config{RawDir: "r", ProcessedDir: "p"}, chunker, unitEmbedder{}, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestEligible(t *testing.T) {
	assert.True(t, eligible("a/b/filing.txt"))
	assert.True(t, eligible("a/b/filing.HTML"))
	assert.True(t, eligible("a/b/filing.htm"))
	assert.False(t, eligible("a/b/filing.pdf"))
	assert.False(t, eligible("a/b/manifest.json"))
}
