package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/buoy-ingest-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/buoy-ingest-service/internal/adapter/kafka"
	"github.com/couchcryptid/buoy-ingest-service/internal/adapter/mapbox"
	"github.com/couchcryptid/buoy-ingest-service/internal/adapter/netcdf"
	"github.com/couchcryptid/buoy-ingest-service/internal/catalog"
	"github.com/couchcryptid/buoy-ingest-service/internal/config"
	"github.com/couchcryptid/buoy-ingest-service/internal/domain"
	"github.com/couchcryptid/buoy-ingest-service/internal/ingest"
	"github.com/couchcryptid/buoy-ingest-service/internal/observability"
	"github.com/couchcryptid/buoy-ingest-service/internal/pipeline"
	"github.com/couchcryptid/buoy-ingest-service/internal/vocab"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	v, err := vocab.Default()
	if err != nil {
		logger.Error("failed to load vocabulary", "error", err)
		os.Exit(1)
	}

	store, err := catalog.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("failed to open catalog", "driver", cfg.DatabaseDriver, "error", err)
		os.Exit(1)
	}
	if cfg.CatalogSeed {
		if err := store.Seed(ctx, v); err != nil {
			logger.Error("failed to seed catalog", "error", err)
			_ = store.Close()
			os.Exit(1)
		}
	}

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	opener := netcdf.NewOpener(cfg.NetCDFFetchTimeout, cfg.NetCDFCacheDir, logger)
	ingester := ingest.New(store, v, opener, geocoder, logger, metrics)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	processor := pipeline.NewProcessor(ingester, logger)

	p := pipeline.New(reader, processor, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, observability.AllReady(p, store), ingester, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ingest pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
	if err := store.Close(); err != nil {
		logger.Error("catalog close error", "error", err)
	}

	logger.Info("shutdown complete")
}
