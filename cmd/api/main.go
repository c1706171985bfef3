package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"purchase-prediction-api/artifacts"
	"purchase-prediction-api/config"
	"purchase-prediction-api/handlers"
	"purchase-prediction-api/services"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func setupLogging(cfg config.LogConfig) {
	if cfg.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		log.WithField("level", cfg.Level).Warn("unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if level < log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
}

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	setupLogging(cfg.Log)

	store, err := artifacts.NewStore(cfg.Artifacts)
	if err != nil {
		log.Fatalf("Failed to open artifact store: %v", err)
	}
	defer store.Close()

	values := services.NewValueCache("datasets", cfg.Cache.TTL, cfg.Cache.MaxEntries)
	models, err := services.NewResourceCache[services.Predictor]("models", cfg.Cache.ModelSlots)
	if err != nil {
		log.Fatalf("Failed to create model cache: %v", err)
	}
	catalog := services.NewCatalog(services.NewStoreSource(store), values, models, cfg.Pseudonym.Seed)

	// Redis is optional; without it responses are simply not shared.
	cache, err := services.NewCacheService(cfg.Redis)
	if err != nil {
		log.WithError(err).Warn("response cache disabled")
	}
	defer cache.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go services.NewWarmer(catalog, cfg.Cache.WarmInterval).Run(ctx)

	router := handlers.SetupRouter(handlers.Deps{
		Config:      cfg,
		Catalog:     catalog,
		Predictions: services.NewPredictionService(catalog, time.Now),
		History:     services.NewHistoryService(catalog, cfg.Dashboard.HistoryPageSize),
		Explain:     services.NewExplainService(catalog),
		Auth:        services.NewAuthService(cfg.JWT, cfg.Auth),
		Cache:       cache,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(log.Fields{
			"addr":      srv.Addr,
			"artifacts": cfg.Artifacts.Dir,
			"engine":    cfg.Artifacts.Engine,
		}).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown failed")
	}
	log.Info("server stopped")
}
