package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/couponlens/backend/config"
	httpDelivery "github.com/couponlens/backend/internal/delivery/http"
	"github.com/couponlens/backend/internal/infrastructure/dedup"
	"github.com/couponlens/backend/internal/infrastructure/logging"
	"github.com/couponlens/backend/internal/infrastructure/refdata"
	"github.com/couponlens/backend/internal/usecase"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// The history log doubles as a dedup artifact, so accepted records are appended to it
	var outputs []string
	if cfg.Dedup.HistoryLog != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Dedup.HistoryLog), 0o755); err != nil {
			log.Fatalf("Failed to create log directory: %v", err)
		}
		outputs = append(outputs, cfg.Dedup.HistoryLog)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format, outputs...)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting CouponLens Backend v1.0.0",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port))

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ref, err := refdata.Load(cfg.Reference.Path)
	if err != nil {
		return fmt.Errorf("loading reference data: %w", err)
	}
	logger.Info("reference data loaded",
		zap.Int("brands", ref.BrandCount()),
		zap.Int("categories", len(ref.Categories)))

	store, err := dedup.OpenWithHistory(ctx, dedup.Options{
		DBPath:       cfg.Dedup.DBPath,
		ArtifactsDir: cfg.Dedup.ArtifactsDir,
		HistoryLog:   cfg.Dedup.HistoryLog,
		LogMarker:    cfg.Dedup.LogMarker,
	}, logger)
	if err != nil {
		return fmt.Errorf("opening dedup store: %w", err)
	}
	defer store.Close()

	stats := store.Stats()
	logger.Info("dedup store ready",
		zap.Int("keys", stats.Keys),
		zap.Bool("persistent", stats.PersistentBackend),
		zap.Int("artifact_parse_errors", stats.ArtifactParseErrors))

	e := cfg.Extraction
	service := usecase.NewExtractionService(ref, store, usecase.ExtractionConfig{
		MinConfidence:        e.MinConfidence,
		ContextRadius:        e.ContextRadius,
		MaxBrandDistance:     e.MaxBrandDistance,
		MaxCandidates:        e.MaxCandidates,
		DescriptionMaxLength: e.DescriptionMaxLength,
		MaxRedFlagDensity:    e.MaxRedFlagDensity,
		MinGreenFlags:        e.MinGreenFlags,
		RequireMixed:         e.RequireMixed,
		TopCategories:        e.TopCategories,
		EnableDebugLogging:   e.EnableDebugLogging,
	}, logger)

	logger.Info("extraction configured",
		zap.Float64("min_confidence", e.MinConfidence),
		zap.Bool("require_mixed", e.RequireMixed),
		zap.Bool("debug", e.EnableDebugLogging))

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(service, store, logger)
	router := httpDelivery.SetupRouter(cfg, handler, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Info("server listening", zap.String("addr", srv.Addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
