// Package config provides configuration loading for sentryd.
package config

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/sentryd/internal/embeddings"
	"github.com/fyrsmithlabs/sentryd/internal/index"
	"github.com/fyrsmithlabs/sentryd/internal/logging"
	"github.com/fyrsmithlabs/sentryd/internal/store"
)

// Config is the complete sentryd configuration.
type Config struct {
	Server     ServerConfig              `koanf:"server"`
	Logging    logging.Config            `koanf:"logging"`
	Embeddings embeddings.ProviderConfig `koanf:"embeddings"`
	Index      index.Config              `koanf:"index"`
	Store      store.Config              `koanf:"store"`
	Audit      AuditConfig               `koanf:"audit"`
	Retrieval  RetrievalConfig           `koanf:"retrieval"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	// Host is the bind address.
	Host string `koanf:"host"`

	// Port is the HTTP listen port.
	Port int `koanf:"port"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// AuditConfig holds audit log configuration.
type AuditConfig struct {
	// Path is the SQLite file for the audit log.
	Path string `koanf:"path"`
}

// RetrievalConfig holds retrieval pipeline configuration.
type RetrievalConfig struct {
	// MaxChunks is the default maximum number of chunks returned per
	// query when the request does not specify k.
	MaxChunks int `koanf:"max_chunks"`

	// ScoreThreshold drops candidates whose distance exceeds it. Zero
	// disables the threshold.
	ScoreThreshold float64 `koanf:"score_threshold"`
}

// Validate checks the whole configuration, including cross-section
// consistency. The embedding dimension and index dimension must agree; a
// mismatch is fatal at startup, never a per-request condition.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive")
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if c.Audit.Path == "" {
		return fmt.Errorf("audit.path is required")
	}
	if c.Retrieval.MaxChunks < 1 {
		return fmt.Errorf("retrieval.max_chunks must be at least 1, got %d", c.Retrieval.MaxChunks)
	}
	if c.Retrieval.ScoreThreshold < 0 {
		return fmt.Errorf("retrieval.score_threshold must not be negative")
	}
	if c.Index.Dimension < 1 {
		return fmt.Errorf("index.dimension must be at least 1, got %d", c.Index.Dimension)
	}
	// The fastembed provider derives its dimension from the model, so the
	// cross-check happens at wiring time against Provider.Dimension().
	if c.Embeddings.Provider != "fastembed" && c.Embeddings.Dimension != c.Index.Dimension {
		return fmt.Errorf("embeddings.dimension (%d) must match index.dimension (%d)",
			c.Embeddings.Dimension, c.Index.Dimension)
	}
	return nil
}
