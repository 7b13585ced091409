// Package ingest implements the filing ingestion pipeline: it walks a raw
// corpus, cleans and chunks each document, snapshots the processed chunks to
// disk, and loads them into the vector index in embedded batches.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/filingsight/filingrag/internal/document"
	"github.com/filingsight/filingrag/internal/vectorstore"
)

const (
	// DefaultBatchSize is the number of chunks embedded and indexed together.
	DefaultBatchSize = 10

	// DefaultWorkers bounds the number of concurrent batch workers.
	DefaultWorkers = 4

	// SnapshotFilename is the processed-chunks snapshot written under the
	// processed directory on every run.
	SnapshotFilename = "processed_chunks.json"
)

var (
	// ErrInvalidConfig indicates an invalid pipeline configuration.
	ErrInvalidConfig = errors.New("invalid ingest config")

	// ErrCorpusUnreadable indicates the raw corpus root cannot be walked.
	ErrCorpusUnreadable = errors.New("corpus unreadable")
)

// Embedder is the slice of the embedding provider the pipeline needs.
type Embedder interface {
	EmbedPassages(ctx context.Context, texts []string) ([][]float32, error)
}

// Config configures the ingestion pipeline.
type Config struct {
	// RawDir is the corpus root containing raw filings.
	RawDir string

	// ProcessedDir receives the processed-chunks snapshot.
	ProcessedDir string

	// ManifestPath optionally points at a JSON manifest of explicit
	// document provenance. Empty means path-derived metadata only.
	ManifestPath string

	// BatchSize is the number of chunks per embed-and-index batch.
	BatchSize int

	// Workers bounds the concurrent batch workers.
	Workers int
}

// ApplyDefaults fills in default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.RawDir == "" {
		return fmt.Errorf("%w: raw dir is required", ErrInvalidConfig)
	}
	if c.ProcessedDir == "" {
		return fmt.Errorf("%w: processed dir is required", ErrInvalidConfig)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size must be positive, got %d", ErrInvalidConfig, c.BatchSize)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, c.Workers)
	}
	return nil
}

// Summary reports what one pipeline run did.
type Summary struct {
	// Documents is the number of documents successfully processed.
	Documents int `json:"documents"`

	// Skipped is the number of documents skipped due to read or parse
	// failures.
	Skipped int `json:"skipped"`

	// Chunks is the total number of chunks produced and indexed.
	Chunks int `json:"chunks"`

	// Batches is the number of embed-and-index batches executed.
	Batches int `json:"batches"`
}

// Pipeline ingests a raw filing corpus into the vector index.
//
// Record IDs are derived from the chunk's position in the corpus snapshot,
// so re-running ingestion over the same corpus overwrites records in place
// instead of duplicating them.
type Pipeline struct {
	cfg      Config
	chunker  *document.Chunker
	manifest document.Manifest
	embedder Embedder
	store    vectorstore.Store
	logger   *zap.Logger
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(cfg Config, chunker *document.Chunker, embedder Embedder, store vectorstore.Store, logger *zap.Logger) (*Pipeline, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if chunker == nil {
		return nil, fmt.Errorf("%w: chunker is required", ErrInvalidConfig)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	manifest, err := document.LoadManifest(cfg.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}

	return &Pipeline{
		cfg:      cfg,
		chunker:  chunker,
		manifest: manifest,
		embedder: embedder,
		store:    store,
		logger:   logger,
	}, nil
}

// Run processes the whole corpus and loads it into the index. It returns a
// summary of the run. Unreadable or unparseable documents are logged and
// skipped; a failed batch aborts the run.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	tracer := otel.Tracer("filingrag.ingest")
	ctx, span := tracer.Start(ctx, "ingest.run")
	defer span.End()

	summary := &Summary{}

	chunks, err := p.processCorpus(ctx, summary)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "corpus processing failed")
		return nil, err
	}

	if err := p.writeSnapshot(chunks); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "snapshot write failed")
		return nil, err
	}

	if err := p.indexChunks(ctx, chunks, summary); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "indexing failed")
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("ingest.documents", summary.Documents),
		attribute.Int("ingest.skipped", summary.Skipped),
		attribute.Int("ingest.chunks", summary.Chunks),
		attribute.Int("ingest.batches", summary.Batches),
	)
	p.logger.Info("ingestion complete",
		zap.Int("documents", summary.Documents),
		zap.Int("skipped", summary.Skipped),
		zap.Int("chunks", summary.Chunks),
		zap.Int("batches", summary.Batches),
	)
	return summary, nil
}

// processCorpus walks the raw corpus and returns all chunks in walk order.
// Walk order is lexical, so the snapshot offsets are stable across runs over
// the same corpus.
func (p *Pipeline) processCorpus(ctx context.Context, summary *Summary) ([]document.Chunk, error) {
	var chunks []document.Chunk

	err := filepath.WalkDir(p.cfg.RawDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !eligible(path) {
			return nil
		}

		docChunks, err := p.processDocument(path)
		if err != nil {
			p.logger.Warn("skipping document",
				zap.String("path", path),
				zap.Error(err),
			)
			summary.Skipped++
			DocumentsTotal.WithLabelValues("skipped").Inc()
			return nil
		}

		chunks = append(chunks, docChunks...)
		summary.Documents++
		DocumentsTotal.WithLabelValues("processed").Inc()
		ChunksTotal.Add(float64(len(docChunks)))
		p.logger.Debug("document processed",
			zap.String("path", path),
			zap.Int("chunks", len(docChunks)),
		)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorpusUnreadable, err)
	}

	summary.Chunks = len(chunks)
	return chunks, nil
}

// processDocument reads, cleans and chunks a single raw filing, stamping
// every chunk with the document's provenance.
func (p *Pipeline) processDocument(path string) ([]document.Chunk, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	rel, err := filepath.Rel(p.cfg.RawDir, path)
	if err != nil {
		rel = path
	}
	source := p.manifest.Resolve(rel)

	text := document.Clean(string(raw))
	chunks := p.chunker.Chunk(text)
	for i := range chunks {
		source.Apply(&chunks[i].Metadata)
	}
	return chunks, nil
}

// writeSnapshot rewrites the processed-chunks snapshot for the whole corpus.
func (p *Pipeline) writeSnapshot(chunks []document.Chunk) error {
	if err := os.MkdirAll(p.cfg.ProcessedDir, 0o755); err != nil {
		return fmt.Errorf("create processed dir: %w", err)
	}

	data, err := json.MarshalIndent(chunks, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	path := filepath.Join(p.cfg.ProcessedDir, SnapshotFilename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	p.logger.Debug("snapshot written",
		zap.String("path", path),
		zap.Int("chunks", len(chunks)),
	)
	return nil
}

// indexChunks embeds and upserts all chunks in batches using a bounded
// worker pool.
func (p *Pipeline) indexChunks(ctx context.Context, chunks []document.Chunk, summary *Summary) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	var mu sync.Mutex
	for start := 0; start < len(chunks); start += p.cfg.BatchSize {
		end := start + p.cfg.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		offset := start

		g.Go(func() error {
			began := time.Now()
			err := p.indexBatch(ctx, batch, offset)
			BatchDuration.Observe(time.Since(began).Seconds())
			if err != nil {
				BatchesTotal.WithLabelValues("error").Inc()
				return fmt.Errorf("batch at offset %d: %w", offset, err)
			}
			BatchesTotal.WithLabelValues("success").Inc()
			mu.Lock()
			summary.Batches++
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

// indexBatch embeds one batch of chunks and upserts them. The record ID
// encodes the chunk's absolute offset in the corpus snapshot, which keeps
// re-ingestion idempotent through upsert-by-ID.
func (p *Pipeline) indexBatch(ctx context.Context, batch []document.Chunk, offset int) error {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}

	vectors, err := p.embedder.EmbedPassages(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	if len(vectors) != len(batch) {
		return fmt.Errorf("embed: got %d vectors for %d texts", len(vectors), len(batch))
	}

	records := make([]vectorstore.Record, len(batch))
	for i, c := range batch {
		records[i] = vectorstore.Record{
			ID:     recordID(c.Metadata, offset+i),
			Vector: vectors[i],
			Text:   c.Text,
			Metadata: map[string]string{
				"ticker":           c.Metadata.Ticker,
				"filing_type":      c.Metadata.FilingType,
				"accession_number": c.Metadata.AccessionNumber,
				"filename":         c.Metadata.Filename,
				"chunk_id":         strconv.Itoa(c.Metadata.ChunkID),
			},
		}
	}

	if err := p.store.Upsert(ctx, records); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

// recordID builds the wire ID for a chunk: {ticker}_{filing_type}_{offset}.
func recordID(m document.Metadata, offset int) string {
	return fmt.Sprintf("%s_%s_%d", m.Ticker, m.FilingType, offset)
}

// eligible reports whether a corpus file should be ingested.
func eligible(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm", ".txt":
		return true
	default:
		return false
	}
}
