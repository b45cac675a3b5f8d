package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"guardian-backend/internal/bot"
	"guardian-backend/internal/config"
	"guardian-backend/internal/debounce"
	"guardian-backend/internal/handlers"
	"guardian-backend/internal/logger"
	"guardian-backend/internal/router"
	"guardian-backend/internal/rowstore"
	"guardian-backend/internal/services"
	"guardian-backend/internal/worker"
)

func main() {
	cfg := config.Load()

	if err := logger.Initialize(cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Log.Sync()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Log.Fatal("invalid timezone", zap.String("timezone", cfg.Timezone), zap.Error(err))
	}

	ctx := context.Background()

	// Row store: Postgres when configured, in-memory otherwise.
	var store rowstore.Store
	if cfg.DatabaseURL != "" {
		pool, err := rowstore.NewPostgresPool(cfg.DatabaseURL)
		if err != nil {
			logger.Log.Fatal("postgres connection failed", zap.Error(err))
		}
		defer pool.Close()

		pg := rowstore.NewPostgres(pool)
		if err := pg.Init(ctx); err != nil {
			logger.Log.Fatal("postgres init failed", zap.Error(err))
		}
		store = pg
		logger.Log.Info("postgres row store ready")
	} else {
		store = rowstore.NewMemory()
		logger.Log.Warn("DATABASE_URL not set, using in-memory row store")
	}

	if err := services.EnsureSheets(ctx, store); err != nil {
		logger.Log.Fatal("sheet schema validation failed", zap.Error(err))
	}

	catalog, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		logger.Log.Fatal("shop catalog load failed", zap.Error(err))
	}
	logger.Log.Info("shop catalog loaded", zap.Int("items", len(catalog)))

	// Debounce guard: shared Redis markers when configured, else in-process.
	var guard debounce.Guard
	if cfg.RedisURL != "" {
		client, err := debounce.NewRedisClient(cfg.RedisURL)
		if err != nil {
			logger.Log.Fatal("redis connection failed", zap.Error(err))
		}
		defer client.Close()
		guard = debounce.NewRedis(client)
		logger.Log.Info("redis debounce guard ready")
	} else {
		guard = debounce.NewMemory()
	}

	economy := services.NewEconomyService(store, cfg.AdminUserIDs)
	study := services.NewStudyService(store, economy, loc)
	jobs := services.NewJobService(store, economy)
	shop := services.NewShopService(store, economy, catalog)
	approval := services.NewApprovalService(study, jobs, shop)

	dispatcher := bot.NewDispatcher(economy, study, jobs, shop, approval, loc)

	webhookHandler := handlers.NewWebhookHandler(cfg.ChannelSecret, economy, dispatcher, guard)
	statusHandler := handlers.NewStatusHandler(economy, approval, shop, jobs)

	sweeper := worker.NewSweeper(study, cfg.SessionLimitMinutes, cfg.SweepIntervalMin)
	if err := sweeper.Start(); err != nil {
		logger.Log.Fatal("sweeper start failed", zap.Error(err))
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.New(webhookHandler, statusHandler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Log.Info("shutting down")
		sweeper.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Log.Info("server listening", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logger.Log.Fatal("server error", zap.Error(err))
	}
}
