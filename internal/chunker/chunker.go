package chunker

import (
	"fmt"
	"strings"
)

// Chunker splits text into overlapping fixed-size word windows.
type Chunker struct {
	size    int
	overlap int
}

// New validates the window parameters up front. An overlap that reaches the
// chunk size would make the step non-positive and never terminate, so it is
// an error rather than a clamped value.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunk overlap must not be negative, got %d", overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap (%d) must be smaller than chunk size (%d)", overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split cuts the text into word windows of at most the configured size,
// each window starting size-overlap words after the previous one. Words are
// whatever strings.Fields yields; windows are re-joined with single spaces.
// Text with no more than size words comes back as a single chunk.
func (c *Chunker) Split(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	step := c.size - c.overlap
	var chunks []string
	for start := 0; start < len(words); start += step {
		end := start + c.size
		if end > len(words) {
			end = len(words)
		}
		chunk := strings.Join(words[start:end], " ")
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(words) {
			break
		}
	}
	return chunks
}
