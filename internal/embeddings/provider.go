// Package embeddings provides embedding generation via multiple providers.
//
// The embedding dimension is fixed per deployment: every provider reports
// its dimension up front and the daemon refuses to start when it does not
// match the index configuration. A mismatch is a configuration error, never
// a per-request condition.
package embeddings

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// Provider is the interface for embedding providers.
//
// Embeddings are deterministic for identical text: embedding the same text
// twice yields the same vector.
type Provider interface {
	// EmbedDocuments generates embeddings for multiple texts, one per input.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query. Some models
	// optimize differently for queries vs documents.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the embedding dimension for the current model.
	Dimension() int

	// Close releases resources held by the provider.
	Close() error
}

// ProviderConfig holds configuration for creating an embedding provider.
type ProviderConfig struct {
	// Provider is the provider type: "tei", "fastembed" or "hash".
	Provider string `koanf:"provider"`

	// Model is the embedding model name.
	Model string `koanf:"model"`

	// BaseURL is the TEI endpoint (only used for the tei provider).
	BaseURL string `koanf:"base_url"`

	// CacheDir is the model cache directory (only used for fastembed).
	CacheDir string `koanf:"cache_dir"`

	// Dimension is the embedding dimension (used by tei and hash; the
	// fastembed provider derives it from the model).
	Dimension int `koanf:"dimension"`

	// Timeout bounds every embedding call. Mandatory for remote
	// providers; defaults to 10s when unset.
	Timeout time.Duration `koanf:"timeout"`
}

// NewProvider creates an embedding provider based on the configuration.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	switch cfg.Provider {
	case "tei", "":
		return NewTEIProvider(TEIConfig{
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
			Timeout:   cfg.Timeout,
		})
	case "fastembed":
		return NewFastEmbedProvider(FastEmbedConfig{
			Model:    cfg.Model,
			CacheDir: cfg.CacheDir,
		})
	case "hash":
		return NewHashProvider(cfg.Dimension)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q (supported: tei, fastembed, hash)", ErrInvalidConfig, cfg.Provider)
	}
}
