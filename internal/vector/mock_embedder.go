package vector

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
)

// MockEmbedder is a simple implementation of the Embedder interface.
// It creates deterministic but simplistic embeddings for tests and for
// building spaces without network access.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder creates a new MockEmbedder with the specified dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	return &MockEmbedder{
		dimensions: dimensions,
	}
}

// Dimensions returns the length of the vectors this embedder produces.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Name identifies the embedder for build metadata.
func (e *MockEmbedder) Name() string {
	return "mock"
}

// EmbedBatch generates a deterministic embedding per text: the same text
// always produces the same unit-length vector.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors[i] = e.embed(text)
	}
	return vectors, nil
}

func (e *MockEmbedder) embed(text string) []float32 {
	embedding := make([]float32, e.dimensions)

	// Seed each dimension from a rolling hash of the text so nearby texts do
	// not collapse onto the same vector.
	hash := sha256.Sum256([]byte(text))
	for i := 0; i < e.dimensions; i++ {
		hashIdx := (i * 4) % (len(hash) - 4)
		seed := binary.LittleEndian.Uint32(hash[hashIdx : hashIdx+4])
		seed += uint32(i)

		// Value between -1 and 1 derived from the seed.
		embedding[i] = float32(seed%1000)/500.0 - 1.0
	}

	Normalize(embedding)
	return embedding
}
