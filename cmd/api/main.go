package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"beebi/backend/internal/config"
	"beebi/backend/internal/notify"
	"beebi/backend/internal/server"
	"beebi/backend/internal/service"
)

func main() {
	cfg := config.Load()
	logger := cfg.NewLogger()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	engine, closeSource, err := service.NewEngine(ctx, cfg, logger)
	if err != nil {
		logger.Error("analytics engine setup failed", "error", err)
		os.Exit(1)
	}
	defer closeSource()

	alerts, closeAlerts := newAlertPublisher(cfg, logger)
	defer closeAlerts()

	app := server.New(cfg, engine, alerts, logger)
	httpServer := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("beebi analytics api listening", "addr", "http://localhost:"+cfg.AppPort, "auth", cfg.AuthEnabled())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

// newAlertPublisher returns a nil publisher when no brokers are configured.
func newAlertPublisher(cfg config.Config, logger *slog.Logger) (server.AlertPublisher, func()) {
	if len(cfg.KafkaBrokers) == 0 {
		return nil, func() {}
	}
	producer := notify.NewKafkaProducer(cfg.KafkaBrokers)
	logger.Info("diaper alert publishing enabled", "topic", cfg.AlertTopic, "brokers", cfg.KafkaBrokers)
	return notify.NewAlertPublisher(producer, cfg.AlertTopic, logger), func() {
		if err := producer.Close(); err != nil {
			logger.Warn("kafka producer close failed", "error", err)
		}
	}
}
