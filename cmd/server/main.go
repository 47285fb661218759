package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"busara/config"
	"busara/internal/database"
	"busara/internal/router"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	var logger *zap.Logger
	var err error
	if cfg.Server.Env == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	engine, watcher, notifier, rec := router.Setup(cfg, db, logger)
	router.RearmPoller(db, watcher, logger)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go func() {
		mailTick := time.NewTicker(5 * time.Minute)
		staleTick := time.NewTicker(time.Minute)
		defer mailTick.Stop()
		defer staleTick.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-mailTick.C:
				notifier.RetryUnsent(sweepCtx)
			case <-staleTick.C:
				rec.ExpireStale(sweepCtx, cfg.Poller.StaleAfter)
			}
		}
	}()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	stopSweep()
	watcher.Shutdown()
	logger.Info("server stopped")
}
