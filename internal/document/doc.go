// Package document turns raw filing documents into retrievable chunks.
//
// A filing moves through three steps: markup cleaning, overlapping
// word-window chunking, and provenance metadata attachment. Chunks are the
// unit of retrieval; each carries the ticker, filing type, accession number
// and positional information needed for filtering and attribution.
package document
