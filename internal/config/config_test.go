package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerDefaults(t *testing.T) {
	c, err := LoadServer()
	require.NoError(t, err)
	assert.Equal(t, 8080, c.Port)
	assert.Equal(t, BackendMemory, c.LeaderboardBackend)
	assert.Equal(t, []string{"*"}, c.ClientOrigins)
	assert.Equal(t, time.Second, c.MemoryRevealDelay)
	assert.Equal(t, 3, c.CardDuelRounds)

	ttl, err := c.TokenTTL()
	require.NoError(t, err)
	assert.Equal(t, 72*time.Hour, ttl)
}

func TestLoadServerFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("LEADERBOARD_BACKEND", "SQLite")
	t.Setenv("CLIENT_ORIGIN", "http://a.test,http://b.test")
	t.Setenv("MEMORY_REVEAL_DELAY", "250ms")
	t.Setenv("TOKEN_EXPIRE_TIME", "never")

	c, err := LoadServer()
	require.NoError(t, err)
	assert.Equal(t, 9000, c.Port)
	assert.Equal(t, BackendSQLite, c.LeaderboardBackend)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, c.ClientOrigins)
	assert.Equal(t, 250*time.Millisecond, c.MemoryRevealDelay)
	ttl, err := c.TokenTTL()
	require.NoError(t, err)
	assert.Zero(t, ttl)
}

func TestLoadServerRejectsBadValues(t *testing.T) {
	t.Run("postgres without url", func(t *testing.T) {
		t.Setenv("LEADERBOARD_BACKEND", "postgres")
		t.Setenv("DATABASE_URL", "")
		_, err := LoadServer()
		assert.Error(t, err)
	})
	t.Run("unknown backend", func(t *testing.T) {
		t.Setenv("LEADERBOARD_BACKEND", "mongo")
		_, err := LoadServer()
		assert.Error(t, err)
	})
	t.Run("bad ttl", func(t *testing.T) {
		t.Setenv("TOKEN_EXPIRE_TIME", "soon")
		_, err := LoadServer()
		assert.Error(t, err)
	})
	t.Run("zero rounds", func(t *testing.T) {
		t.Setenv("CARD_DUEL_ROUNDS", "0")
		_, err := LoadServer()
		assert.Error(t, err)
	})
}

func TestLoadHistorianRequiresDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := LoadHistorian()
	assert.Error(t, err)

	t.Setenv("DATABASE_URL", "postgres://localhost/duelhall")
	t.Setenv("HISTORIAN_BATCH_SIZE", "0")
	c, err := LoadHistorian()
	require.NoError(t, err)
	assert.Equal(t, 1, c.BatchSize)
	assert.Equal(t, 500*time.Millisecond, c.FlushInterval)
}

func TestNewLogger(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, NewLogger("debug").GetLevel())
	assert.Equal(t, logrus.InfoLevel, NewLogger("chatty").GetLevel())
}
