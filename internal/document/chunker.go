package document

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	DefaultMaxChunkSize = 300
	DefaultOverlap      = 50
)

var sentenceBoundaryRe = regexp.MustCompile(`[.!?]+`)

// Chunk is a bounded passage of an uploaded document. Field names mirror the
// browser payload so chunks round-trip through the chat request unchanged.
type Chunk struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding,omitempty"`
	Metadata  Metadata  `json:"metadata"`
}

type Metadata struct {
	Filename    string `json:"filename"`
	ChunkIndex  int    `json:"chunkIndex"`
	TotalChunks int    `json:"totalChunks"`
}

// Split breaks text into overlapping, size-bounded chunks built from whole
// sentences. maxChunkSize is a soft target: a single sentence longer than the
// limit is kept intact rather than split mid-sentence. The same input always
// produces the same chunk sequence.
func Split(text, filename string, maxChunkSize, overlap int) []Chunk {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultMaxChunkSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}

	var chunks []Chunk
	var current string
	chunkIndex := 0

	push := func() {
		chunks = append(chunks, Chunk{
			ID:      fmt.Sprintf("%s-chunk-%d", filename, chunkIndex),
			Content: strings.TrimSpace(current),
			Metadata: Metadata{
				Filename:   filename,
				ChunkIndex: chunkIndex,
			},
		})
		chunkIndex++
	}

	for _, sentence := range sentenceBoundaryRe.Split(text, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		if current != "" && len(current)+len(sentence) > maxChunkSize {
			push()

			// Seed the next chunk with trailing words from the one just
			// closed so context carries across the boundary.
			words := strings.Split(current, " ")
			carry := overlap / 5
			if carry > len(words) {
				carry = len(words)
			}
			current = strings.Join(words[len(words)-carry:], " ") + " " + sentence
		} else if current == "" {
			current = sentence
		} else {
			current += " " + sentence
		}
	}

	if strings.TrimSpace(current) != "" {
		push()
	}

	for i := range chunks {
		chunks[i].Metadata.TotalChunks = len(chunks)
	}

	return chunks
}
