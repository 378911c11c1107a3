// cmd/historian/main.go is the asynchronous historian service: it pops game
// action records from the Redis queue and persists them to PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/duelhall/internal/cache"
	"github.com/jason-s-yu/duelhall/internal/config"
	"github.com/jason-s-yu/duelhall/internal/database"
	"github.com/jason-s-yu/duelhall/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.LoadHistorian()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger := config.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatalf("migrate: %v", err)
	}

	if err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB); err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer cache.Rdb.Close()

	wait := cfg.FlushInterval
	if wait < time.Second {
		wait = time.Second
	}
	svc := &historian.Service{
		Source: &historian.RedisSource{Client: cache.Rdb, Queue: cfg.QueueName, Wait: wait},
		Sink: historian.SinkFunc(func(ctx context.Context, recs []cache.GameActionRecord) error {
			return database.InsertGameActions(ctx, pool, recs)
		}),
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
		Logger:        logger,
	}
	logger.WithFields(logrus.Fields{"queue": cfg.QueueName, "redis": cfg.RedisAddr}).Info("duelhall-historian starting")
	svc.Run(ctx)
	logger.Info("historian shutdown complete")
}
