package embedder

import (
	"context"

	"github.com/sweetpotato0/ragguard/vector"
)

// Embedder turns text into dense vectors for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// VectorAdapter exposes a vector.Embedder as a rag Embedder. The two
// interfaces are method-compatible; the adapter exists so retrieval code can
// depend on this package without importing the store layer.
type VectorAdapter struct {
	inner vector.Embedder
}

// NewVectorAdapter wraps a store-layer embedder.
func NewVectorAdapter(inner vector.Embedder) *VectorAdapter {
	return &VectorAdapter{inner: inner}
}

func (a *VectorAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	return a.inner.Embed(ctx, text)
}

func (a *VectorAdapter) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return a.inner.EmbedBatch(ctx, texts)
}

func (a *VectorAdapter) Dimension() int {
	return a.inner.Dimension()
}
