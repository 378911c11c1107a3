// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
)

// Leaderboard backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Server is the configuration of cmd/server.
type Server struct {
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DatabaseURL        string `env:"DATABASE_URL"`
	LeaderboardBackend string `env:"LEADERBOARD_BACKEND" envDefault:"memory"`
	SQLitePath         string `env:"SQLITE_PATH" envDefault:"duelhall.db"`

	RedisAddr string `env:"REDIS_ADDR"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`
	QueueName string `env:"HISTORIAN_QUEUE_NAME" envDefault:"duelhall_actions"`

	// TokenExpireTime is a Go duration, or "never"/"0" for tokens without expiry.
	TokenExpireTime string   `env:"TOKEN_EXPIRE_TIME" envDefault:"72h"`
	ClientOrigins   []string `env:"CLIENT_ORIGIN" envDefault:"*" envSeparator:","`

	MemoryRevealDelay time.Duration `env:"MEMORY_REVEAL_DELAY" envDefault:"1s"`
	CardDuelRounds    int           `env:"CARD_DUEL_ROUNDS" envDefault:"3"`
}

// Historian is the configuration of cmd/historian.
type Historian struct {
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL   string        `env:"DATABASE_URL,required,notEmpty"`
	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	QueueName     string        `env:"HISTORIAN_QUEUE_NAME" envDefault:"duelhall_actions"`
	BatchSize     int           `env:"HISTORIAN_BATCH_SIZE" envDefault:"20"`
	FlushInterval time.Duration `env:"HISTORIAN_FLUSH_INTERVAL" envDefault:"500ms"`
}

// LoadServer reads Server from the environment and validates it.
func LoadServer() (Server, error) {
	var c Server
	if err := env.Parse(&c); err != nil {
		return c, fmt.Errorf("parse env: %w", err)
	}
	c.LeaderboardBackend = strings.ToLower(strings.TrimSpace(c.LeaderboardBackend))
	switch c.LeaderboardBackend {
	case BackendMemory, BackendSQLite:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return c, fmt.Errorf("LEADERBOARD_BACKEND=postgres requires DATABASE_URL")
		}
	default:
		return c, fmt.Errorf("unknown LEADERBOARD_BACKEND %q", c.LeaderboardBackend)
	}
	if c.CardDuelRounds < 1 {
		return c, fmt.Errorf("CARD_DUEL_ROUNDS must be at least 1")
	}
	if _, err := c.TokenTTL(); err != nil {
		return c, err
	}
	return c, nil
}

// LoadHistorian reads Historian from the environment.
func LoadHistorian() (Historian, error) {
	var c Historian
	if err := env.Parse(&c); err != nil {
		return c, fmt.Errorf("parse env: %w", err)
	}
	if c.BatchSize < 1 {
		c.BatchSize = 1
	}
	return c, nil
}

// TokenTTL parses TokenExpireTime. Zero means tokens never expire.
func (c Server) TokenTTL() (time.Duration, error) {
	switch strings.TrimSpace(c.TokenExpireTime) {
	case "", "0", "never":
		return 0, nil
	}
	d, err := time.ParseDuration(c.TokenExpireTime)
	if err != nil {
		return 0, fmt.Errorf("failed to parse TOKEN_EXPIRE_TIME: %w", err)
	}
	return d, nil
}

// NewLogger builds a logrus logger at the given level, falling back to info.
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logger.Warnf("unknown LOG_LEVEL %q, using info", level)
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}
