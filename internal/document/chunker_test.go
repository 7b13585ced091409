package document_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/filingsight/filingrag/internal/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("word%04d", i)
	}
	return strings.Join(parts, " ")
}

func TestNewChunkerRejectsInvalidWindow(t *testing.T) {
	tests := []struct {
		name                    string
		size, overlap, minLength int
	}{
		{"overlap equals size", 5, 5, 0},
		{"overlap exceeds size", 5, 8, 0},
		{"zero size", 0, 0, 0},
		{"negative overlap", 5, -1, 0},
		{"negative min length", 5, 2, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := document.NewChunker(tt.size, tt.overlap, tt.minLength)
			require.Error(t, err)
			assert.ErrorIs(t, err, document.ErrInvalidWindow)
		})
	}
}

func TestChunkSevenWordsTwoWindows(t *testing.T) {
	c, err := document.NewChunker(5, 2, 0)
	require.NoError(t, err)

	chunks := c.Chunk("a b c d e f g")
	require.Len(t, chunks, 2)

	assert.Equal(t, "a b c d e", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Metadata.StartWord)
	assert.Equal(t, 5, chunks[0].Metadata.EndWord)

	assert.Equal(t, "d e f g", chunks[1].Text)
	assert.Equal(t, 3, chunks[1].Metadata.StartWord)
	assert.Equal(t, 7, chunks[1].Metadata.EndWord)
}

func TestChunkWindowCountFormula(t *testing.T) {
	// ceil((W-O)/(S-O)) windows before the minimum-length filter.
	tests := []struct {
		w, s, o int
	}{
		{7, 5, 2},
		{100, 10, 3},
		{1000, 100, 20},
		{5, 5, 2},
		{3, 5, 2},
		{6, 5, 2},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("w%d_s%d_o%d", tt.w, tt.s, tt.o), func(t *testing.T) {
			c, err := document.NewChunker(tt.s, tt.o, 0)
			require.NoError(t, err)

			chunks := c.Chunk(words(tt.w))

			want := (tt.w - tt.o + tt.s - tt.o - 1) / (tt.s - tt.o)
			assert.Len(t, chunks, want)

			for i, chunk := range chunks {
				span := chunk.Metadata.EndWord - chunk.Metadata.StartWord
				assert.LessOrEqual(t, span, tt.s, "chunk %d span exceeds size", i)
				assert.Equal(t, i, chunk.Metadata.ChunkID)
			}
		})
	}
}

func TestChunkConsecutiveOverlap(t *testing.T) {
	const size, overlap = 10, 4
	c, err := document.NewChunker(size, overlap, 0)
	require.NoError(t, err)

	chunks := c.Chunk(words(57))
	require.Greater(t, len(chunks), 2)

	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1], chunks[i]
		shared := prev.Metadata.EndWord - cur.Metadata.StartWord
		if i < len(chunks)-1 {
			assert.Equal(t, overlap, shared, "chunks %d and %d", i-1, i)
		}

		prevWords := strings.Fields(prev.Text)
		curWords := strings.Fields(cur.Text)
		assert.Equal(t, prevWords[len(prevWords)-shared:], curWords[:shared])
	}
}

func TestChunkDropsShortWindows(t *testing.T) {
	c, err := document.NewChunker(5, 2, 100)
	require.NoError(t, err)

	// Seven short words: every window trims to well under 100 characters.
	chunks := c.Chunk("a b c d e f g")
	assert.Empty(t, chunks)
}

func TestChunkIDSequentialAfterFilter(t *testing.T) {
	c, err := document.NewChunker(5, 0, 20)
	require.NoError(t, err)

	// First window is long words, second window short ones, third long again.
	text := "alpha beta gamma delta epsilon a b c d e zeta theta lambda omicron upsilon"
	chunks := c.Chunk(text)
	require.Len(t, chunks, 2)
	assert.Equal(t, 0, chunks[0].Metadata.ChunkID)
	assert.Equal(t, 1, chunks[1].Metadata.ChunkID)
	assert.Equal(t, 10, chunks[1].Metadata.StartWord)
}

func TestChunkEmptyText(t *testing.T) {
	c, err := document.NewChunker(5, 2, 0)
	require.NoError(t, err)

	assert.Empty(t, c.Chunk(""))
	assert.Empty(t, c.Chunk("   \n\t "))
}

func TestCleanStripsMarkup(t *testing.T) {
	raw := `<html><head><style>body { color: red; }</style>
<script>var tracking = true;</script></head>
<body><h1>Annual  Report</h1><p>Revenue	grew
substantially.</p></body></html>`

	got := document.Clean(raw)
	assert.Equal(t, "Annual Report Revenue grew substantially.", got)
}

func TestCleanPlainTextPassthrough(t *testing.T) {
	got := document.Clean("Total   revenue was\n\n100 million.")
	assert.Equal(t, "Total revenue was 100 million.", got)
}
