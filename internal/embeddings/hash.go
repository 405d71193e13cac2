package embeddings

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
)

// HashProvider is a deterministic feature-hashing embedder for tests and
// offline development. It hashes lowercased tokens into a fixed number of
// buckets and L2-normalizes the result, so identical text always maps to
// the identical vector and token overlap translates into vector proximity.
//
// It is not a semantic model; production deployments use the tei or
// fastembed providers.
type HashProvider struct {
	dim int
}

// NewHashProvider creates a hash provider with the given dimension.
func NewHashProvider(dimension int) (*HashProvider, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", ErrInvalidConfig, dimension)
	}
	return &HashProvider{dim: dimension}, nil
}

// EmbedDocuments generates embeddings for multiple texts.
func (p *HashProvider) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = p.hashEmbed(text)
	}
	return embeddings, nil
}

// EmbedQuery generates an embedding for a single query.
func (p *HashProvider) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}
	return p.hashEmbed(text), nil
}

// hashEmbed buckets token counts by FNV-1a and L2-normalizes.
func (p *HashProvider) hashEmbed(text string) []float32 {
	vec := make([]float32, p.dim)

	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[h.Sum32()%uint32(p.dim)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec
}

// Dimension returns the configured embedding dimension.
func (p *HashProvider) Dimension() int {
	return p.dim
}

// Close is a no-op.
func (p *HashProvider) Close() error {
	return nil
}

var _ Provider = (*HashProvider)(nil)
