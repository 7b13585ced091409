package document

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Chunking defaults, tuned for long-form SEC filings.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
	DefaultMinLength    = 100
)

// ErrInvalidWindow indicates a chunk window that would not terminate.
var ErrInvalidWindow = errors.New("invalid chunk window")

var whitespaceRE = regexp.MustCompile(`\s+`)

// Chunker splits cleaned text into overlapping fixed-size word windows.
type Chunker struct {
	size      int
	overlap   int
	minLength int
}

// NewChunker creates a Chunker. size is the window length in words, overlap
// the number of words shared by consecutive windows, and minLength the
// minimum trimmed character length below which a window is discarded.
//
// overlap must be strictly less than size: the window start advances by
// size-overlap words per step, so an overlap >= size would never terminate.
func NewChunker(size, overlap, minLength int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size must be positive, got %d", ErrInvalidWindow, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap cannot be negative, got %d", ErrInvalidWindow, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: overlap %d must be less than size %d", ErrInvalidWindow, overlap, size)
	}
	if minLength < 0 {
		return nil, fmt.Errorf("%w: min length cannot be negative, got %d", ErrInvalidWindow, minLength)
	}
	return &Chunker{size: size, overlap: overlap, minLength: minLength}, nil
}

// Clean strips markup and structural noise from a raw document, collapsing
// all whitespace runs to single spaces. Script and style contents are
// dropped entirely. Plain text input passes through unchanged apart from
// whitespace normalization.
func Clean(raw string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(raw))

	var b strings.Builder
	skipDepth := 0
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or malformed markup; keep whatever text was collected.
			text := whitespaceRE.ReplaceAllString(b.String(), " ")
			return strings.TrimSpace(text)
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if isNoiseTag(string(name)) {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if isNoiseTag(string(name)) && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(tokenizer.Text())
				b.WriteByte(' ')
			}
		}
	}
}

func isNoiseTag(name string) bool {
	return name == "script" || name == "style"
}

// Chunk splits cleaned text into overlapping word windows. Provenance
// metadata is attached separately by the caller; emitted chunks carry only
// their positional fields (ChunkID, StartWord, EndWord).
//
// The window start advances by size-overlap words per step; the final window
// may hold fewer than size words. Windows whose trimmed text is not longer
// than the minimum length are discarded, which silently drops near-empty
// boilerplate.
func (c *Chunker) Chunk(text string) []Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	step := c.size - c.overlap
	var chunks []Chunk
	for start := 0; start < len(words); start += step {
		end := start + c.size
		if end > len(words) {
			end = len(words)
		}

		chunkText := strings.Join(words[start:end], " ")
		if len(strings.TrimSpace(chunkText)) > c.minLength {
			chunks = append(chunks, Chunk{
				Text: chunkText,
				Metadata: Metadata{
					ChunkID:   len(chunks),
					StartWord: start,
					EndWord:   end,
				},
			})
		}

		if end == len(words) {
			break
		}
	}
	return chunks
}
