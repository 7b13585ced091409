// Package vectorstore defines the vector index capability and its backends.
//
// A Store persists (vector, text, metadata) records durably and answers
// nearest-neighbor queries with optional exact-match metadata filtering.
// Two backends are provided: an embedded chromem-go database (default) and
// an external Qdrant server over gRPC.
package vectorstore

import (
	"context"
	"errors"
)

// Sentinel errors for vector store operations.
var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyRecords indicates an empty or nil record batch.
	ErrEmptyRecords = errors.New("empty or nil records")

	// ErrInvalidQuery indicates an unusable query (empty vector, k <= 0).
	ErrInvalidQuery = errors.New("invalid query")

	// ErrConnectionFailed indicates the store backend is unreachable.
	// This is fatal for the current session; no safe continuation exists.
	ErrConnectionFailed = errors.New("failed to connect to vector store")
)

// Record is one indexed passage: an embedding plus its text and metadata.
type Record struct {
	// ID uniquely identifies the record within the index.
	// Re-upserting an existing ID silently replaces the prior record.
	ID string

	// Vector is the passage embedding. Its dimension is constant for the
	// lifetime of one index.
	Vector []float32

	// Text is the passage text.
	Text string

	// Metadata holds the filterable provenance fields (ticker,
	// filing_type, accession_number, filename, chunk positions).
	Metadata map[string]string
}

// SearchResult is one query match.
type SearchResult struct {
	ID       string
	Text     string
	Score    float32
	Metadata map[string]string
}

// Store is the vector index capability.
//
// Implementations persist records across process restarts and are safe for
// concurrent reads. Writes for records sharing an id are the caller's
// responsibility to serialize; across distinct ids concurrent writes are
// safe.
type Store interface {
	// Upsert writes records to the index, replacing any records that share
	// an id with an incoming one.
	Upsert(ctx context.Context, records []Record) error

	// Query returns up to k records ordered by descending similarity.
	// filter is an exact-match predicate over metadata fields; a filter
	// matching zero records yields an empty result, not an error.
	Query(ctx context.Context, vector []float32, k int, filter map[string]string) ([]SearchResult, error)

	// Count reports the number of durably stored records.
	Count(ctx context.Context) (int, error)

	// Close releases the store's resources.
	Close() error
}
