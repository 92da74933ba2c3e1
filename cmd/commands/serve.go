package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/nibernar/project-service/cache"
	"github.com/nibernar/project-service/clients"
	"github.com/nibernar/project-service/concurrency"
	"github.com/nibernar/project-service/config"
	"github.com/nibernar/project-service/export"
	"github.com/nibernar/project-service/handler"
	"github.com/nibernar/project-service/lock"
	"github.com/nibernar/project-service/logging/logger"
	"github.com/nibernar/project-service/markdown"
	"github.com/nibernar/project-service/oss"
	"github.com/nibernar/project-service/version"
)

const shutdownTimeout = 10 * time.Second

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the export service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return serve(cfg)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "config file path")
	return cmd
}

func serve(cfg *config.Config) error {
	cleanup, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer cleanup()
	logger.SetVersion(version.Version)

	ctx := context.Background()

	store := newStore(ctx, cfg)
	collector := cache.NewOpsCollector()

	artifactCache := cache.New(store,
		cache.Keyspace(cfg.AppName, cfg.Environment, "artifact"),
		cache.WithCollector(collector),
		cache.WithCompressionThreshold(cfg.Export.CompressionThreshold),
	)
	inflightCache := cache.New(store,
		cache.Keyspace(cfg.AppName, cfg.Environment, "inflight"),
		cache.WithCollector(collector),
	)
	statusCache := cache.New(store,
		cache.Keyspace(cfg.AppName, cfg.Environment, "status"),
		cache.WithCollector(collector),
	)
	locks := lock.New(store, cache.Keyspace(cfg.AppName, cfg.Environment, "lock"))

	tracker := export.NewStatusTracker(statusCache, cfg.Export.StatusTTL)

	gate, err := concurrency.NewGate(int32(cfg.Export.MaxConcurrency))
	if err != nil {
		return fmt.Errorf("failed to create concurrency gate: %w", err)
	}

	storage, err := oss.NewStorage(&oss.Config{
		Provider: cfg.Storage.Provider,
		ID:       cfg.Storage.ID,
		Secret:   cfg.Storage.Secret,
		Region:   cfg.Storage.Region,
		Bucket:   cfg.Storage.Bucket,
		Endpoint: cfg.Storage.Endpoint,
		UseSSL:   cfg.Storage.UseSSL,
	})
	if err != nil {
		return fmt.Errorf("failed to create artifact storage: %w", err)
	}

	orchestrator := export.NewOrchestrator(
		cfg.Export,
		artifactCache,
		inflightCache,
		locks,
		tracker,
		gate,
		export.Collaborators{
			Files:    clients.NewFileRetrievalClient(cfg.Export.FileServiceURL),
			Markdown: markdown.NewGenerator(),
			Pdf:      clients.NewPdfConverterClient(cfg.Export.PdfServiceURL),
			Store:    clients.NewOSSArtifactStore(storage, cfg.Export.ArtifactTTL),
		},
	)

	cfg.Watch(func(fresh *config.Config) {
		logger.SetLevel(fresh.Logger.Level)
		logger.Infof(ctx, "configuration reloaded, log level %d", fresh.Logger.Level)
	})

	gin.SetMode(ginMode(cfg.RunMode))
	engine := gin.New()
	engine.Use(handler.Recovery(), handler.Trace(), handler.Logger())
	handler.NewExportHandler(orchestrator).Register(engine)

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: engine,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof(ctx, "listening on %s", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		logger.Infof(ctx, "received %s, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	logger.Info(ctx, "server stopped")
	return nil
}

// newStore connects to Redis, falling back to the in-process store so the
// service still serves uncached exports when Redis is unreachable.
func newStore(ctx context.Context, cfg *config.Config) cache.Store {
	client, err := cache.NewRedisClient(cfg.Data.Redis)
	if err != nil {
		logger.Warnf(ctx, "redis unavailable, using in-process store: %v", err)
		return cache.NewMemoryStore()
	}
	return cache.NewRedisStore(client)
}

func ginMode(runMode string) string {
	switch runMode {
	case gin.DebugMode, gin.TestMode:
		return runMode
	default:
		return gin.ReleaseMode
	}
}
