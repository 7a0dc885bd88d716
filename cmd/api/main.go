package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Ben-Nachmanson/Fill-Flow/internal/api"
	"github.com/Ben-Nachmanson/Fill-Flow/internal/infrastructure/postgres/order"
	"github.com/Ben-Nachmanson/Fill-Flow/internal/infrastructure/stream"
	"github.com/Ben-Nachmanson/Fill-Flow/internal/metrics"
	"github.com/Ben-Nachmanson/Fill-Flow/internal/usecase/ingest"
	"github.com/Ben-Nachmanson/Fill-Flow/pkg/config"
	"github.com/Ben-Nachmanson/Fill-Flow/pkg/logger"
	"github.com/Ben-Nachmanson/Fill-Flow/pkg/postgresql"
	"github.com/Ben-Nachmanson/Fill-Flow/pkg/redisstream"
)

var cfg *config.Config
var log *logger.Logger

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		panic(err)
	}

	log, err = logger.NewLogger(logger.WithLoggingLevel(logger.Level(cfg.App.LogLevel)))
	if err != nil {
		panic(err)
	}
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	pgClient, err := postgresql.NewClient(ctx, cfg.DB)
	if err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "connect_postgres"})
		return
	}
	defer pgClient.Close()

	redisClient, err := redisstream.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "connect_redis"})
		return
	}
	defer redisClient.Close()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	repository := order.NewRepository(pgClient)
	publisher := stream.NewPublisher(redisClient, cfg.Stream.Name)
	usecase := ingest.NewUsecase(repository, publisher, m, log)

	server := api.NewServer(usecase, log, registry, fmt.Sprintf(":%d", cfg.App.Port))

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	select {
	case <-sigChan:
		log.Info("shutting down api server")
	case err := <-errChan:
		if err != nil {
			log.Error(err, logger.Field{Key: "action", Value: "serve"})
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "shutdown"})
	}

	log.Info("api server stopped")
}
