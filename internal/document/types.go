package document

// Unknown is the sentinel for metadata fields that cannot be derived.
//
// Documents with missing provenance are still ingested; filtering on an
// unknown ticker is well-defined and simply matches nothing.
const Unknown = "UNKNOWN"

// RawDocument is a source filing as acquired, before any processing.
type RawDocument struct {
	// Path is the document's location relative to the corpus root.
	Path string

	// Content is the raw text or markup blob.
	Content []byte
}

// Metadata is the provenance attached to every chunk of a document.
type Metadata struct {
	Ticker          string `json:"ticker"`
	FilingType      string `json:"filing_type"`
	AccessionNumber string `json:"accession_number"`
	Filename        string `json:"filename"`

	// ChunkID is the chunk's sequential position within its document.
	ChunkID int `json:"chunk_id"`

	// StartWord and EndWord are the chunk's half-open word span [start, end)
	// within the cleaned document.
	StartWord int `json:"start_word"`
	EndWord   int `json:"end_word"`
}

// Chunk is a bounded, overlapping window of a document's cleaned text.
type Chunk struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}
