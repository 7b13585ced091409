package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DocumentsTotal counts documents seen by the pipeline.
	// Labels: result (processed, skipped)
	DocumentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "filingrag",
			Subsystem: "ingest",
			Name:      "documents_total",
			Help:      "Total number of documents processed by the ingestion pipeline",
		},
		[]string{"result"},
	)

	// ChunksTotal counts chunks emitted across all ingested documents.
	ChunksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "filingrag",
			Subsystem: "ingest",
			Name:      "chunks_total",
			Help:      "Total number of chunks emitted by the chunker",
		},
	)

	// BatchesTotal counts embed-and-index batches.
	// Labels: result (success, error)
	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "filingrag",
			Subsystem: "ingest",
			Name:      "batches_total",
			Help:      "Total number of embed-and-index batches",
		},
		[]string{"result"},
	)

	// BatchDuration tracks how long one batch takes to embed and index.
	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "filingrag",
			Subsystem: "ingest",
			Name:      "batch_duration_seconds",
			Help:      "Duration of embed-and-index batch operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)
)
