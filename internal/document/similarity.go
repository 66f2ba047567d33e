package document

import (
	"fmt"
	"math"
	"sort"
	"strings"

	apperrors "github.com/mickekring/berget-gpt/internal/errors"
)

const DefaultTopK = 5

// NoContextSentinel is returned instead of an empty context block when no
// chunk qualifies for the query.
const NoContextSentinel = "No relevant context found in the uploaded documents."

const contextPreamble = "Based on the uploaded documents, here is the relevant context:\n\n"

// CosineSimilarity computes dot(a,b) / (|a| * |b|). It is 0 when either
// vector has zero norm and rejects vectors of different lengths outright
// rather than truncating to the shorter one.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", apperrors.ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	normA = math.Sqrt(normA)
	normB = math.Sqrt(normB)
	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / (normA * normB), nil
}

// Rank returns the topK chunks most similar to the query vector, in
// descending similarity order with ties kept in original chunk order.
// Chunks without an embedding are skipped, not errored.
func Rank(query []float32, chunks []Chunk, topK int) ([]Chunk, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	type scored struct {
		chunk Chunk
		score float64
	}

	ranked := make([]scored, 0, len(chunks))
	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			continue
		}
		score, err := CosineSimilarity(query, chunk.Embedding)
		if err != nil {
			return nil, err
		}
		ranked = append(ranked, scored{chunk: chunk, score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	out := make([]Chunk, 0, len(ranked))
	for _, s := range ranked {
		out = append(out, s.chunk)
	}
	return out, nil
}

// Context renders ranked chunks into a single text block for the model, each
// chunk labelled with its source file and position.
func Context(chunks []Chunk) string {
	if len(chunks) == 0 {
		return NoContextSentinel
	}

	parts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		parts = append(parts, fmt.Sprintf("**Document: %s (Chunk %d/%d)**\n%s",
			chunk.Metadata.Filename,
			chunk.Metadata.ChunkIndex+1,
			chunk.Metadata.TotalChunks,
			chunk.Content,
		))
	}

	return contextPreamble + strings.Join(parts, "\n\n---\n\n")
}
