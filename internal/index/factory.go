package index

import (
	"fmt"

	"go.uber.org/zap"
)

// Config selects and configures an index backend.
type Config struct {
	// Provider is the backend: "flat" (default, in-memory) or "chromem"
	// (embedded, persistent).
	Provider string `koanf:"provider"`

	// Dimension is the embedding dimension, fixed per deployment.
	Dimension int `koanf:"dimension"`

	// Path is the storage directory for the chromem backend.
	Path string `koanf:"path"`

	// Collection is the collection name for the chromem backend.
	Collection string `koanf:"collection"`

	// Compress enables compression for the chromem backend.
	Compress bool `koanf:"compress"`
}

// New creates an Index based on the configuration.
//
// The index is constructed once at process start and passed by reference
// into the orchestrator; there is no package-level index state.
func New(cfg Config, logger *zap.Logger) (Index, error) {
	switch cfg.Provider {
	case "flat", "":
		return NewFlat(cfg.Dimension)
	case "chromem":
		return NewChromem(ChromemConfig{
			Path:       cfg.Path,
			Collection: cfg.Collection,
			Compress:   cfg.Compress,
			Dimension:  cfg.Dimension,
		}, logger)
	default:
		return nil, fmt.Errorf("%w: unsupported provider %q (supported: flat, chromem)", ErrInvalidConfig, cfg.Provider)
	}
}
