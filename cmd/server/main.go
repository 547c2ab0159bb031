package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"realestate/internal/app"
	"realestate/internal/handler"
	"realestate/internal/infrastructure/mq"
	"realestate/internal/job"
	"realestate/internal/logger"
	"realestate/internal/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the config file")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, *configPath, "api", 30*time.Second)
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()
	cfg := a.Cfg

	producer, err := mq.NewProducer(&cfg.Kafka)
	if err != nil {
		logger.Fatal("kafka producer", zap.Error(err))
	}
	defer producer.Close()

	outboxSender := job.NewOutboxSender(repository.NewOutboxRepository(a.DB), producer, cfg.Business.MaxRetryCount)
	go outboxSender.Start(ctx)

	if !cfg.Log.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handler.SetupRouter(handler.NewHandler(handler.Services{
		Auth:     a.Auth,
		Users:    a.Users,
		Points:   a.Points,
		Market:   a.Market,
		Wallets:  a.Wallets,
		Activity: a.Activity,
	}), a.Auth)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	// stop background jobs first
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(err)
	}

	logger.Info("server stopped")
}
