// Sentryd is a secure multi-tenant document-retrieval gateway.
//
// It serves a policy-gated retrieval pipeline over HTTP: queries are
// guard-checked, embedded, matched against a vector index, filtered
// per-chunk by the policy engine, and audited before any response leaves
// the process.
//
// Usage:
//
//	# Start with defaults
//	sentryd
//
//	# Load a config file, override via environment
//	SENTRYD_SERVER_PORT=9090 sentryd -config /etc/sentryd/config.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sentryd/internal/audit"
	"github.com/fyrsmithlabs/sentryd/internal/config"
	"github.com/fyrsmithlabs/sentryd/internal/embeddings"
	"github.com/fyrsmithlabs/sentryd/internal/guard"
	"github.com/fyrsmithlabs/sentryd/internal/httpapi"
	"github.com/fyrsmithlabs/sentryd/internal/index"
	"github.com/fyrsmithlabs/sentryd/internal/logging"
	"github.com/fyrsmithlabs/sentryd/internal/policy"
	"github.com/fyrsmithlabs/sentryd/internal/retrieval"
	"github.com/fyrsmithlabs/sentryd/internal/store"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("sentryd %s (commit %s, built %s)\n", version, gitCommit, buildDate)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, shutting down", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("sentryd: %v", err)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.NewLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	embedder, err := embeddings.NewProvider(cfg.Embeddings)
	if err != nil {
		return fmt.Errorf("creating embedding provider: %w", err)
	}
	defer embedder.Close()

	// Fastembed derives its dimension from the model, so the final
	// dimension check has to happen here rather than in config.
	if embedder.Dimension() != cfg.Index.Dimension {
		return fmt.Errorf("embedding dimension %d does not match index dimension %d",
			embedder.Dimension(), cfg.Index.Dimension)
	}

	idx, err := index.New(cfg.Index, logger.Underlying())
	if err != nil {
		return fmt.Errorf("creating vector index: %w", err)
	}
	defer idx.Close()

	chunkStore, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("opening chunk store: %w", err)
	}
	defer chunkStore.Close()

	auditLog, err := audit.NewSQLiteLog(cfg.Audit.Path)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer auditLog.Close()

	registry := prometheus.NewRegistry()
	metrics := retrieval.NewMetrics(registry)

	service, err := retrieval.NewService(
		guard.NewPatternGuard(),
		embedder,
		idx,
		chunkStore,
		policy.NewEngine(),
		auditLog,
		logger.Named("retrieval"),
		metrics,
		retrieval.Options{
			MaxChunks:      cfg.Retrieval.MaxChunks,
			ScoreThreshold: cfg.Retrieval.ScoreThreshold,
		},
	)
	if err != nil {
		return fmt.Errorf("wiring retrieval service: %w", err)
	}

	server, err := httpapi.NewServer(service, logger.Named("http"), registry, &httpapi.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	logger.Info(ctx, "sentryd started",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("index_provider", cfg.Index.Provider),
		zap.String("embeddings_provider", cfg.Embeddings.Provider))

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
