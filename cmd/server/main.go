// cmd/server/main.go
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

	"github.com/jason-s-yu/duelhall/internal/auth"
	"github.com/jason-s-yu/duelhall/internal/cache"
	"github.com/jason-s-yu/duelhall/internal/cardduel"
	"github.com/jason-s-yu/duelhall/internal/config"
	"github.com/jason-s-yu/duelhall/internal/connect4"
	"github.com/jason-s-yu/duelhall/internal/database"
	"github.com/jason-s-yu/duelhall/internal/game"
	"github.com/jason-s-yu/duelhall/internal/handlers"
	"github.com/jason-s-yu/duelhall/internal/leaderboard"
	"github.com/jason-s-yu/duelhall/internal/leaderboard/sqlite"
	"github.com/jason-s-yu/duelhall/internal/memory"
	"github.com/jason-s-yu/duelhall/internal/picas"
	"github.com/jason-s-yu/duelhall/internal/users"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger := config.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		board     leaderboard.Store = leaderboard.NewMemory()
		userStore users.Store       = users.NewMemoryStore()
		revoker   users.Revoker     = cache.NewMemoryRevoker()
		recorder  game.Recorder     = game.NopRecorder{}
	)

	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("database: %v", err)
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			logger.Fatalf("migrate: %v", err)
		}
		userStore = &database.UserStore{Pool: pool}
		if cfg.LeaderboardBackend == config.BackendPostgres {
			board = &database.LeaderboardStore{Pool: pool}
		}
		logger.Info("connected to PostgreSQL")
	} else {
		logger.Warn("DATABASE_URL not set, accounts are kept in memory")
	}

	if cfg.LeaderboardBackend == config.BackendSQLite {
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			logger.Fatalf("sqlite leaderboard: %v", err)
		}
		defer store.Close()
		board = store
	}

	if cfg.RedisAddr != "" {
		if err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB); err != nil {
			logger.Fatalf("redis: %v", err)
		}
		defer cache.Rdb.Close()
		recorder = cache.NewActionPublisher(cache.Rdb, cfg.QueueName)
		revoker = &cache.RedisRevoker{Client: cache.Rdb}
		logger.WithFields(logrus.Fields{"addr": cfg.RedisAddr, "queue": cfg.QueueName}).Info("publishing game actions to Redis")
	}

	ttl, _ := cfg.TokenTTL()
	signer, err := auth.NewSigner(ttl)
	if err != nil {
		logger.Fatalf("auth: %v", err)
	}

	api := &handlers.API{
		Logger: logger,
		Board:  board,
		Games: map[string]handlers.GameServer{
			cardduel.GameName: cardduel.NewServer(logger, board, recorder, cfg.CardDuelRounds, nil),
			connect4.GameName: connect4.NewServer(logger, board, recorder),
			memory.GameName:   memory.NewServer(logger, board, recorder, cfg.MemoryRevealDelay, nil),
			picas.GameName:    picas.NewServer(logger, board, recorder),
		},
		Users: &users.Service{
			Store:   userStore,
			Signer:  signer,
			Revoker: revoker,
			Params:  auth.DefaultParams,
			Logger:  logger,
		},
		Origins: cfg.ClientOrigins,
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.WithFields(logrus.Fields{"addr": srv.Addr, "leaderboard": cfg.LeaderboardBackend}).Info("duelhall server running")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("server exited: %v", err)
	}
}
