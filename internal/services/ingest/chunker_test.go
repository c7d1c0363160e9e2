package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkerRespectsTokenBudget(t *testing.T) {
	chunker, err := NewChunker(50)
	require.NoError(t, err)

	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 100)
	chunks := chunker.Chunk(text)
	require.NotEmpty(t, chunks)

	for i, chunk := range chunks {
		assert.LessOrEqual(t, chunker.CountTokens(chunk), 50, "chunk %d over budget", i)
	}
}

func TestChunkerPrefersParagraphBoundaries(t *testing.T) {
	chunker, err := NewChunker(100)
	require.NoError(t, err)

	chunks := chunker.Chunk("First paragraph.\n\nSecond paragraph.")
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0], "First paragraph.")
	assert.Contains(t, chunks[0], "Second paragraph.")
}

func TestChunkerSplitsParagraphsWhenOverBudget(t *testing.T) {
	chunker, err := NewChunker(10)
	require.NoError(t, err)

	chunks := chunker.Chunk("First paragraph with several words in it.\n\nSecond paragraph with several words in it.")
	assert.GreaterOrEqual(t, len(chunks), 2)
}

func TestChunkerEmptyInput(t *testing.T) {
	chunker, err := NewChunker(100)
	require.NoError(t, err)

	assert.Empty(t, chunker.Chunk(""))
	assert.Empty(t, chunker.Chunk("   \n\n  "))
}

func TestNewChunkerRejectsZeroBudget(t *testing.T) {
	_, err := NewChunker(0)
	assert.Error(t, err)
}
