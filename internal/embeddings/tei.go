package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// defaultTimeout bounds TEI calls when no timeout is configured. The
// pipeline must never block indefinitely on the embedding provider.
const defaultTimeout = 10 * time.Second

// TEIConfig holds configuration for the TEI embedding provider.
type TEIConfig struct {
	// BaseURL is the base URL of the text-embeddings-inference server.
	BaseURL string

	// Model is the embedding model name, informational only (the TEI
	// server is started with a fixed model).
	Model string

	// Dimension is the model's output dimension.
	Dimension int

	// Timeout bounds every embed call. Defaults to defaultTimeout.
	Timeout time.Duration
}

// Validate validates the configuration.
func (c TEIConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", ErrInvalidConfig)
	}
	return nil
}

// TEIProvider generates embeddings via a text-embeddings-inference HTTP
// server. Every call carries a hard timeout; a timed-out call fails the
// query rather than being silently skipped.
type TEIProvider struct {
	config TEIConfig
	client *http.Client
}

// NewTEIProvider creates a TEI provider with the given configuration.
func NewTEIProvider(config TEIConfig) (*TEIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}

	return &TEIProvider{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}, nil
}

// teiRequest is the request body for the TEI embed endpoint.
type teiRequest struct {
	Inputs   interface{} `json:"inputs"`
	Truncate bool        `json:"truncate"`
}

// EmbedDocuments generates embeddings for multiple texts.
func (p *TEIProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}

	embeddings, err := p.embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrEmbeddingFailed, len(embeddings), len(texts))
	}
	return embeddings, nil
}

// EmbedQuery generates an embedding for a single query.
func (p *TEIProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}

	embeddings, err := p.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("%w: got %d embeddings for one text", ErrEmbeddingFailed, len(embeddings))
	}
	return embeddings[0], nil
}

// embed posts texts to the TEI /embed endpoint under the configured timeout.
func (p *TEIProvider) embed(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	body, err := json.Marshal(teiRequest{Inputs: texts, Truncate: true})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return nil, fmt.Errorf("%w: timed out after %s: %v", ErrEmbeddingFailed, p.config.Timeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", ErrEmbeddingFailed, resp.StatusCode, string(respBody))
	}

	var embeddings [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&embeddings); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrEmbeddingFailed, err)
	}

	for i, emb := range embeddings {
		if len(emb) != p.config.Dimension {
			return nil, fmt.Errorf("%w: embedding %d has dimension %d, expected %d", ErrEmbeddingFailed, i, len(emb), p.config.Dimension)
		}
	}
	return embeddings, nil
}

// Dimension returns the configured embedding dimension.
func (p *TEIProvider) Dimension() int {
	return p.config.Dimension
}

// Close is a no-op for the HTTP provider.
func (p *TEIProvider) Close() error {
	return nil
}

var _ Provider = (*TEIProvider)(nil)
