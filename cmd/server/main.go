package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/horecawatch/engine/config"
	httpDelivery "github.com/horecawatch/engine/internal/delivery/http"
	"github.com/horecawatch/engine/internal/domain"
	"github.com/horecawatch/engine/internal/infrastructure/cache"
	"github.com/horecawatch/engine/internal/infrastructure/mappings"
	"github.com/horecawatch/engine/internal/infrastructure/store"
	"github.com/horecawatch/engine/internal/logging"
	"github.com/horecawatch/engine/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logging.Setup(logging.Config{
		Level: cfg.Logging.Level,
		File:  cfg.Logging.File,
	})

	log.Info().
		Str("environment", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Str("cache", cfg.Cache.Type).
		Msg("starting horecawatch engine")

	// Initialize infrastructure dependencies
	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.EnsureSchema(ctx); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("failed to ensure database schema")
	}
	cancel()

	var matchCache domain.MatchCache
	switch cfg.Cache.Type {
	case "redis":
		redisCache, err := cache.NewRedisCache(cfg.Cache.RedisAddr, cfg.Cache.RedisPass, cfg.Cache.RedisDB, cfg.Cache.TTL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisCache.Close()
		matchCache = redisCache
	default:
		matchCache = cache.NewMemoryCache(cfg.Cache.MaxEntries, cfg.Cache.TTL)
	}

	mappingTable := mappings.NewTable(log)
	if cfg.Matching.MappingsFile != "" {
		loaded, err := mappingTable.LoadFile(cfg.Matching.MappingsFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.Matching.MappingsFile).Msg("failed to load manual mappings")
		}
		log.Info().Int("count", loaded).Str("file", cfg.Matching.MappingsFile).Msg("loaded manual mappings")
	}

	// Initialize usecase layer
	resolver := usecase.NewResolver(mappingTable, matchCache, cfg.Matching.Workers, log)
	detector := usecase.NewDetector(db, db, db, cache.NewMemo(5*time.Minute), usecase.DetectorConfig{
		PriceChangeThreshold: cfg.Detector.PriceChangeThreshold,
		LookbackDays:         cfg.Detector.LookbackDays,
	}, log)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(resolver, detector, db, mappingTable, log)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal to gracefully shut down
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	log.Info().Msg("server stopped")
}
