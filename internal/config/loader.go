package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024 // 1MB

// Load loads configuration from a YAML file, then overrides with
// environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables prefixed SENTRYD_ (SENTRYD_SERVER_PORT,
//     SENTRYD_EMBEDDINGS_BASE_URL, ...)
//  2. YAML config file (the configPath argument; skipped when empty or
//     the file does not exist)
//  3. Hardcoded defaults
//
// The environment transformer splits on the first underscore after the
// prefix: SENTRYD_SERVER_PORT -> server.port, SENTRYD_INDEX_PROVIDER ->
// index.provider, SENTRYD_RETRIEVAL_MAX_CHUNKS -> retrieval.max_chunks.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			f, err := os.Open(configPath)
			if err != nil {
				return nil, fmt.Errorf("failed to open config file: %w", err)
			}
			defer f.Close()

			info, err := f.Stat()
			if err != nil {
				return nil, fmt.Errorf("failed to stat config file: %w", err)
			}
			if info.Size() > maxConfigFileSize {
				return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
			}

			content, err := io.ReadAll(f)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
			}
		}
	}

	if err := k.Load(env.Provider("SENTRYD_", ".", func(s string) string {
		// SENTRYD_SERVER_PORT -> server.port
		// SENTRYD_RETRIEVAL_MAX_CHUNKS -> retrieval.max_chunks
		lower := strings.ToLower(strings.TrimPrefix(s, "SENTRYD_"))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// LoadBytes loads configuration from raw YAML. For tests.
func LoadBytes(content []byte) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Embeddings.Provider == "" {
		cfg.Embeddings.Provider = "tei"
	}
	if cfg.Embeddings.BaseURL == "" {
		cfg.Embeddings.BaseURL = "http://localhost:8081"
	}
	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = "BAAI/bge-small-en-v1.5"
	}
	if cfg.Embeddings.Dimension == 0 {
		cfg.Embeddings.Dimension = 384
	}
	if cfg.Embeddings.Timeout == 0 {
		cfg.Embeddings.Timeout = 10 * time.Second
	}

	if cfg.Index.Provider == "" {
		cfg.Index.Provider = "flat"
	}
	if cfg.Index.Dimension == 0 {
		cfg.Index.Dimension = 384
	}
	if cfg.Index.Collection == "" {
		cfg.Index.Collection = "sentryd_chunks"
	}

	if cfg.Store.Path == "" {
		cfg.Store.Path = "sentryd.db"
	}
	if cfg.Audit.Path == "" {
		cfg.Audit.Path = "sentryd_audit.db"
	}

	if cfg.Retrieval.MaxChunks == 0 {
		cfg.Retrieval.MaxChunks = 5
	}
}
