package ingest

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Chunker splits document text into token-bounded chunks. Chunks never
// span documents; each document is chunked independently.
type Chunker struct {
	encoder   *tiktoken.Tiktoken
	maxTokens int
}

// NewChunker creates a chunker with the given token budget per chunk.
// Uses the cl100k_base encoding, compatible with text-embedding-3-small.
func NewChunker(maxTokens int) (*Chunker, error) {
	if maxTokens <= 0 {
		return nil, fmt.Errorf("chunk token budget must be positive")
	}

	encoder, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoder: %w", err)
	}

	return &Chunker{
		encoder:   encoder,
		maxTokens: maxTokens,
	}, nil
}

// CountTokens returns the token count of text
func (c *Chunker) CountTokens(text string) int {
	return len(c.encoder.Encode(text, nil, nil))
}

// Chunk splits text into chunks of at most the configured token budget.
// Paragraph boundaries are preferred; paragraphs larger than the budget
// are split on token windows.
func (c *Chunker) Chunk(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var chunks []string
	var current strings.Builder
	currentTokens := 0

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
			currentTokens = 0
		}
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		paraTokens := c.CountTokens(para)

		if paraTokens > c.maxTokens {
			flush()
			chunks = append(chunks, c.splitByTokens(para)...)
			continue
		}

		if currentTokens+paraTokens > c.maxTokens {
			flush()
		}

		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
		currentTokens += paraTokens
	}

	flush()
	return chunks
}

// splitByTokens hard-splits oversized text on token windows
func (c *Chunker) splitByTokens(text string) []string {
	tokens := c.encoder.Encode(text, nil, nil)

	var chunks []string
	for start := 0; start < len(tokens); start += c.maxTokens {
		end := start + c.maxTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		piece := strings.TrimSpace(c.encoder.Decode(tokens[start:end]))
		if piece != "" {
			chunks = append(chunks, piece)
		}
	}
	return chunks
}
