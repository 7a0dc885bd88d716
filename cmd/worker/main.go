package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Ben-Nachmanson/Fill-Flow/internal/infrastructure/postgres/order"
	"github.com/Ben-Nachmanson/Fill-Flow/internal/infrastructure/stream"
	"github.com/Ben-Nachmanson/Fill-Flow/internal/metrics"
	"github.com/Ben-Nachmanson/Fill-Flow/internal/usecase/fillworker"
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

	m := metrics.New(prometheus.NewRegistry())
	repository := order.NewRepository(pgClient)
	consumer := stream.NewConsumer(redisClient, log, stream.ConsumerConfig{
		Stream:        cfg.Stream.Name,
		Group:         cfg.Stream.Group,
		Consumer:      cfg.Stream.Consumer,
		BatchSize:     cfg.Stream.BatchSize,
		BlockTimeout:  cfg.Stream.BlockTimeout,
		ClaimMinIdle:  cfg.Stream.ClaimMinIdle,
		MaxDeliveries: cfg.Stream.MaxDeliveries,
	})

	worker := fillworker.NewWorker(consumer, repository, m, log, fillworker.Config{
		SlippageBand:    cfg.Worker.SlippageBand,
		PendingInterval: cfg.Stream.PendingInterval,
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- worker.Run(ctx)
	}()

	select {
	case <-sigChan:
		log.Info("shutting down fill worker")
		cancel()
		<-errChan
	case err := <-errChan:
		if err != nil {
			log.Error(err, logger.Field{Key: "action", Value: "run_worker"})
		}
	}

	log.Info("fill worker stopped")
}
