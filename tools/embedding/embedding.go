package embedding

import (
	"context"

	"github.com/hiresight-ai/hiresight/provider"
)

// Embedder converts text into fixed-length dense vectors. Identical text must
// yield stable vectors within a session so retrieval stays deterministic.
type Embedder interface {
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
}

type Embedding struct {
	provider provider.Provider
}

type EmbedVec struct {
	DocID string
	Vec   []float32
}

func NewEmbedding(provider provider.Provider) *Embedding {
	return &Embedding{
		provider: provider,
	}
}

func (e Embedding) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vecs, err := e.provider.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, err
	}

	return vecs, nil
}
