// Package vector provides interfaces and utilities for vector operations
// and text embedding within the counterfactual latent-space service.
package vector

import "context"

const (
	// DefaultEmbeddingDimensions defines the standard size of full embedding
	// vectors, matching the sentence-embedding models the build targets.
	DefaultEmbeddingDimensions = 384

	// DefaultBatchSize defines how many descriptions are sent to the
	// embedding function per call.
	DefaultBatchSize = 32
)

// Embedder defines the interface for creating vector embeddings from text.
// EmbedBatch must produce exactly one fixed-length vector per input text, in
// input order.
type Embedder interface {
	// EmbedBatch converts a batch of texts into vector representations.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the length of the vectors this embedder produces.
	Dimensions() int

	// Name identifies the embedder for build metadata.
	Name() string
}
