// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Rdb is the global Redis client. Connect it once at application startup.
// It stays nil when Redis is not configured.
var Rdb *redis.Client

// DefaultQueueName is the Redis list (queue) name for game action logs.
const DefaultQueueName = "duelhall_actions"

// GameActionRecord holds the minimal info needed by the historian.
type GameActionRecord struct {
	Game          string         `json:"game"`
	RoomID        uuid.UUID      `json:"room_id"`
	ActionIndex   int            `json:"action_index"`
	ActorID       uuid.UUID      `json:"actor_id"`
	ActorName     string         `json:"actor_name"`
	ActionType    string         `json:"action_type"`
	ActionPayload map[string]any `json:"action_payload"`
	Timestamp     int64          `json:"timestamp"`
}

// ConnectRedis initializes the global Redis client and pings it.
func ConnectRedis(ctx context.Context, addr string, db int) error {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	Rdb = client
	return nil
}

// ActionPublisher pushes action records onto a Redis list for the historian.
type ActionPublisher struct {
	Client *redis.Client
	Queue  string
}

func NewActionPublisher(client *redis.Client, queue string) *ActionPublisher {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &ActionPublisher{Client: client, Queue: queue}
}

// RecordAction serializes the record to JSON and pushes it to the queue.
func (p *ActionPublisher) RecordAction(ctx context.Context, record GameActionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal GameActionRecord: %w", err)
	}
	if err := p.Client.RPush(ctx, p.Queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", p.Queue, err)
	}
	return nil
}

// PopActions blocks up to timeout for the next record, then drains up to
// max-1 more without blocking. Malformed entries are skipped and counted.
func PopActions(ctx context.Context, client *redis.Client, queue string, max int, timeout time.Duration) ([]GameActionRecord, int, error) {
	res, err := client.BLPop(ctx, timeout, queue).Result()
	if err == redis.Nil {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}

	raw := []string{res[1]}
	for len(raw) < max {
		next, err := client.LPop(ctx, queue).Result()
		if err == redis.Nil {
			break
		}
		if err != nil {
			return nil, 0, err
		}
		raw = append(raw, next)
	}

	var records []GameActionRecord
	skipped := 0
	for _, r := range raw {
		var rec GameActionRecord
		if err := json.Unmarshal([]byte(r), &rec); err != nil {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}
