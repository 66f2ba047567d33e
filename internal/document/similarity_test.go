package document

import (
	"errors"
	"testing"

	apperrors "github.com/mickekring/berget-gpt/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embedded(id string, vec []float32) Chunk {
	return Chunk{
		ID:        id,
		Content:   "content of " + id,
		Embedding: vec,
		Metadata:  Metadata{Filename: "doc.txt", ChunkIndex: 0, TotalChunks: 1},
	}
}

func TestCosineSimilarity_Identity(t *testing.T) {
	v := []float32{0.5, -1.25, 3.0, 0.75}
	score, err := CosineSimilarity(v, v)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestCosineSimilarity_ZeroVector(t *testing.T) {
	score, err := CosineSimilarity([]float32{1, 2, 3}, []float32{0, 0, 0})
	require.NoError(t, err)
	assert.Zero(t, score)
}

func TestCosineSimilarity_Orthogonal(t *testing.T) {
	score, err := CosineSimilarity([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, score, 1e-9)
}

func TestCosineSimilarity_DimensionMismatch(t *testing.T) {
	_, err := CosineSimilarity([]float32{1, 2, 3}, []float32{1, 2})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrDimensionMismatch))
}

func TestRank_OrdersByDescendingScore(t *testing.T) {
	query := []float32{1, 0}
	chunks := []Chunk{
		embedded("far", []float32{0, 1}),
		embedded("near", []float32{1, 0.01}),
		embedded("mid", []float32{1, 1}),
	}

	ranked, err := Rank(query, chunks, 5)
	require.NoError(t, err)
	require.Len(t, ranked, 3)
	assert.Equal(t, "near", ranked[0].ID)
	assert.Equal(t, "mid", ranked[1].ID)
	assert.Equal(t, "far", ranked[2].ID)
}

func TestRank_TopKBound(t *testing.T) {
	query := []float32{1, 0}
	chunks := []Chunk{
		embedded("a", []float32{1, 0}),
		embedded("b", []float32{1, 1}),
		embedded("c", []float32{0, 1}),
	}

	ranked, err := Rank(query, chunks, 2)
	require.NoError(t, err)
	assert.Len(t, ranked, 2)
}

func TestRank_SkipsChunksWithoutEmbedding(t *testing.T) {
	query := []float32{1, 0}
	chunks := []Chunk{
		embedded("with", []float32{1, 0}),
		{ID: "without", Content: "text only"},
	}

	ranked, err := Rank(query, chunks, 5)
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, "with", ranked[0].ID)
}

func TestRank_TiesKeepOriginalOrder(t *testing.T) {
	query := []float32{1, 0}
	chunks := []Chunk{
		embedded("first", []float32{2, 0}),
		embedded("second", []float32{5, 0}),
	}

	ranked, err := Rank(query, chunks, 5)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	// Both score exactly 1.0 against the query.
	assert.Equal(t, "first", ranked[0].ID)
	assert.Equal(t, "second", ranked[1].ID)
}

func TestRank_DimensionMismatchRejected(t *testing.T) {
	query := []float32{1, 0, 0}
	chunks := []Chunk{embedded("bad", []float32{1, 0})}

	_, err := Rank(query, chunks, 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrDimensionMismatch))
}

func TestContext_EmptySentinel(t *testing.T) {
	assert.Equal(t, NoContextSentinel, Context(nil))
}

func TestContext_RendersChunkPositions(t *testing.T) {
	chunks := []Chunk{
		{
			Content:  "Alpha content",
			Metadata: Metadata{Filename: "a.txt", ChunkIndex: 0, TotalChunks: 2},
		},
		{
			Content:  "Beta content",
			Metadata: Metadata{Filename: "a.txt", ChunkIndex: 1, TotalChunks: 2},
		},
	}

	block := Context(chunks)
	assert.Contains(t, block, "Based on the uploaded documents, here is the relevant context:")
	assert.Contains(t, block, "**Document: a.txt (Chunk 1/2)**\nAlpha content")
	assert.Contains(t, block, "**Document: a.txt (Chunk 2/2)**\nBeta content")
	assert.Contains(t, block, "\n\n---\n\n")
}
