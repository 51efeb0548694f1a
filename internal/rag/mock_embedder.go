package rag

import (
	"context"
	"hash/fnv"
	"math"
)

// MockEmbedder is a deterministic Embedder implementation for testing.
// Texts listed in Vectors get their fixed vector; anything else gets a
// hash-seeded unit vector, so repeated calls always agree.
type MockEmbedder struct {
	// Vectors maps exact texts to fixed embedding vectors.
	Vectors map[string][]float32

	// Err, if set, is returned by Embed instead of vectors.
	Err error

	// Dim is the dimension of generated vectors (default 8).
	Dim int

	// Calls counts Embed invocations.
	Calls int
}

// NewMockEmbedder creates a mock embedder with the given fixed vectors.
func NewMockEmbedder(vectors map[string][]float32) *MockEmbedder {
	return &MockEmbedder{Vectors: vectors, Dim: 8}
}

// Embed returns the configured or hash-derived vector for each text.
func (m *MockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.Calls++

	if m.Err != nil {
		return nil, m.Err
	}
	if len(texts) == 0 {
		return nil, ErrEmptyTexts
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		if vec, ok := m.Vectors[text]; ok {
			out[i] = vec
			continue
		}
		out[i] = hashVector(text, m.Dimension())
	}
	return out, nil
}

// Model returns the mock model identifier
func (m *MockEmbedder) Model() string {
	return "mock"
}

// Dimension returns the embedding vector dimension
func (m *MockEmbedder) Dimension() int {
	if m.Dim <= 0 {
		return 8
	}
	return m.Dim
}

// hashVector derives a unit vector from the text hash so unknown texts still
// embed deterministically.
func hashVector(text string, dim int) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, dim)
	var norm float64
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(seed)) / float32(math.MaxInt64)
		norm += float64(vec[i]) * float64(vec[i])
	}

	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}
