// Package historian moves game action records from the Redis queue into
// long-term storage in batches.
package historian

import (
	"context"
	"time"

	"github.com/jason-s-yu/duelhall/internal/cache"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Source yields up to max queued records, waiting a bounded time for the
// first one. skipped counts entries that could not be decoded.
type Source interface {
	Pop(ctx context.Context, max int) (records []cache.GameActionRecord, skipped int, err error)
}

// Sink persists one batch atomically.
type Sink interface {
	Insert(ctx context.Context, records []cache.GameActionRecord) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, records []cache.GameActionRecord) error

func (f SinkFunc) Insert(ctx context.Context, records []cache.GameActionRecord) error {
	return f(ctx, records)
}

// RedisSource pops from a Redis list with BLPOP.
type RedisSource struct {
	Client *redis.Client
	Queue  string
	Wait   time.Duration
}

func (r *RedisSource) Pop(ctx context.Context, max int) ([]cache.GameActionRecord, int, error) {
	return cache.PopActions(ctx, r.Client, r.Queue, max, r.Wait)
}

// Service accumulates records and flushes them when the batch is full or
// FlushInterval has passed since the last flush.
type Service struct {
	Source        Source
	Sink          Sink
	BatchSize     int
	FlushInterval time.Duration
	Logger        *logrus.Logger

	batch     []cache.GameActionRecord
	lastFlush time.Time
}

// maxPendingBatches bounds how much is kept in memory while the sink is failing.
const maxPendingBatches = 10

// Run loops until ctx is cancelled, then flushes what is left.
func (s *Service) Run(ctx context.Context) {
	if s.BatchSize < 1 {
		s.BatchSize = 1
	}
	s.lastFlush = time.Now()
	s.Logger.WithFields(logrus.Fields{"batch_size": s.BatchSize, "flush_interval": s.FlushInterval}).Info("historian started")

	for ctx.Err() == nil {
		s.step(ctx)
	}

	final, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.flush(final)
	s.Logger.Info("historian stopped")
}

func (s *Service) step(ctx context.Context) {
	want := s.BatchSize - len(s.batch)
	if want < 1 {
		want = 1
	}
	recs, skipped, err := s.Source.Pop(ctx, want)
	if err != nil && ctx.Err() == nil {
		s.Logger.Errorf("pop actions: %v", err)
		select {
		case <-ctx.Done():
		case <-time.After(s.FlushInterval):
		}
	}
	if skipped > 0 {
		s.Logger.Warnf("skipped %d malformed action records", skipped)
	}
	s.batch = append(s.batch, recs...)

	if len(s.batch) >= s.BatchSize || time.Since(s.lastFlush) >= s.FlushInterval {
		s.flush(ctx)
	}
}

func (s *Service) flush(ctx context.Context) {
	s.lastFlush = time.Now()
	if len(s.batch) == 0 {
		return
	}
	if err := s.Sink.Insert(ctx, s.batch); err != nil {
		s.Logger.Errorf("flush %d actions: %v", len(s.batch), err)
		if limit := maxPendingBatches * s.BatchSize; len(s.batch) > limit {
			dropped := len(s.batch) - limit
			s.batch = append(s.batch[:0], s.batch[dropped:]...)
			s.Logger.Warnf("dropped %d oldest actions while storage is unavailable", dropped)
		}
		return
	}
	s.Logger.Debugf("flushed %d actions", len(s.batch))
	s.batch = nil
}
