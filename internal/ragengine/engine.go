// Package ragengine orchestrates retrieval-augmented question answering.
//
// A query runs the full pipeline: encode the question, search the vector
// index (optionally ticker-filtered), assemble a grounded prompt from the
// retrieved chunks, and invoke the answer generator. Retrieval and
// generation fail independently: an empty retrieval still generates, and a
// failed generation still returns the retrieved sources.
package ragengine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/filingsight/filingrag/internal/generation"
	"github.com/filingsight/filingrag/internal/vectorstore"
)

var engineTracer = otel.Tracer("filingrag.ragengine")

// DefaultTopK is the number of chunks retrieved when a query does not
// specify one.
const DefaultTopK = 5

var (
	// ErrInvalidConfig indicates a missing engine dependency.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyQuestion indicates a blank question.
	ErrEmptyQuestion = errors.New("question cannot be empty")

	// ErrEmbeddingFailed indicates the question could not be encoded.
	ErrEmbeddingFailed = errors.New("failed to embed question")
)

// Embedder encodes an incoming question into a query-mode vector.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Query is one question against the index.
type Query struct {
	// Question is the natural-language question.
	Question string

	// Ticker optionally scopes retrieval to one entity. The engine does
	// not validate it; an unknown ticker simply matches nothing.
	Ticker string

	// K is the number of chunks to retrieve. Defaults to DefaultTopK.
	K int
}

// Source is one retrieved chunk attributed in an answer.
type Source struct {
	Ticker     string `json:"ticker"`
	FilingType string `json:"filing_type"`
	Text       string `json:"text"`
}

// AnswerRecord is the structured result of one query.
type AnswerRecord struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Sources  []Source `json:"sources"`
}

// Engine composes the embedding provider, vector index and answer
// generator at query time. Construct once and share; the engine itself
// holds no per-request state.
type Engine struct {
	embedder  Embedder
	store     vectorstore.Store
	generator generation.Generator
	logger    *zap.Logger
}

// NewEngine creates an Engine. All dependencies are required.
func NewEngine(embedder Embedder, store vectorstore.Store, generator generation.Generator, logger *zap.Logger) (*Engine, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidConfig)
	}
	if generator == nil {
		return nil, fmt.Errorf("%w: generator is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		embedder:  embedder,
		store:     store,
		generator: generator,
		logger:    logger,
	}, nil
}

// Query answers a question from indexed filings.
//
// Embedding and index failures propagate as errors; there is no safe
// continuation without retrieval. Generation failures do not: the failure
// is folded into the answer text and the retrieved sources are returned,
// so the caller can always inspect what was (or was not) retrieved.
func (e *Engine) Query(ctx context.Context, q Query) (*AnswerRecord, error) {
	ctx, span := engineTracer.Start(ctx, "Engine.Query")
	defer span.End()

	question := strings.TrimSpace(q.Question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	k := q.K
	if k <= 0 {
		k = DefaultTopK
	}
	span.SetAttributes(
		attribute.Int("k", k),
		attribute.Bool("ticker_filtered", q.Ticker != ""),
	)

	vector, err := e.embedder.EmbedQuery(ctx, question)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	var filter map[string]string
	if q.Ticker != "" {
		filter = map[string]string{"ticker": q.Ticker}
	}

	results, err := e.store.Query(ctx, vector, k, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying index: %w", err)
	}

	sources := make([]Source, len(results))
	for i, r := range results {
		sources[i] = Source{
			Ticker:     r.Metadata["ticker"],
			FilingType: r.Metadata["filing_type"],
			Text:       r.Text,
		}
	}

	e.logger.Debug("retrieved context",
		zap.String("ticker", q.Ticker),
		zap.Int("k", k),
		zap.Int("results", len(sources)),
	)

	// An empty retrieval is not an error: the generator is still invoked
	// and typically answers that the context is insufficient.
	prompt := BuildPrompt(question, sources)

	genStart := time.Now()
	answer, err := e.generator.Generate(ctx, prompt)
	genLatency := time.Since(genStart)

	if err != nil {
		span.RecordError(err)
		answer = fmt.Sprintf("Answer generation failed: %v. The retrieved sources are listed so the context remains inspectable.", err)
		e.logger.Warn("generation failed, returning sources without answer",
			zap.Error(err),
			zap.Int("sources", len(sources)),
		)
	}

	span.SetAttributes(
		attribute.Int("sources", len(sources)),
		attribute.Int64("generation_ms", genLatency.Milliseconds()),
	)
	span.SetStatus(codes.Ok, "success")

	e.logger.Info("query answered",
		zap.Int("sources", len(sources)),
		zap.Duration("generation_latency", genLatency),
		zap.Bool("generation_failed", err != nil),
	)

	return &AnswerRecord{
		Question: question,
		Answer:   answer,
		Sources:  sources,
	}, nil
}
