// internal/database/game.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/duelhall/internal/cache"
)

const insertGameAction = `
	INSERT INTO game_actions (
		game, room_id, action_index, actor_id, actor_name, action_type, action_payload, recorded_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (room_id, action_index) DO NOTHING
`

// InsertGameActions writes a batch of action records in one transaction.
// Records already stored (same room and index) are skipped.
func InsertGameActions(ctx context.Context, pool *pgxpool.Pool, records []cache.GameActionRecord) error {
	if len(records) == 0 {
		return nil
	}
	return pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, rec := range records {
			payload, err := json.Marshal(rec.ActionPayload)
			if err != nil {
				return fmt.Errorf("marshal payload of action %d in room %s: %w", rec.ActionIndex, rec.RoomID, err)
			}
			var actor *uuid.UUID
			if rec.ActorID != uuid.Nil {
				id := rec.ActorID
				actor = &id
			}
			batch.Queue(insertGameAction,
				rec.Game, rec.RoomID, rec.ActionIndex, actor, rec.ActorName, rec.ActionType, payload,
				time.UnixMilli(rec.Timestamp).UTC(),
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert game actions: %w", err)
		}
		return nil
	})
}

// RoomActions returns the persisted actions of roomID in order.
func RoomActions(ctx context.Context, pool *pgxpool.Pool, roomID uuid.UUID) ([]cache.GameActionRecord, error) {
	rows, err := pool.Query(ctx, `
		SELECT game, action_index, actor_id, actor_name, action_type, action_payload, recorded_at
		FROM game_actions WHERE room_id=$1 ORDER BY action_index`, roomID)
	if err != nil {
		return nil, fmt.Errorf("query room actions: %w", err)
	}
	defer rows.Close()

	var out []cache.GameActionRecord
	for rows.Next() {
		rec := cache.GameActionRecord{RoomID: roomID}
		var (
			actor   *uuid.UUID
			payload []byte
			at      time.Time
		)
		if err := rows.Scan(&rec.Game, &rec.ActionIndex, &actor, &rec.ActorName, &rec.ActionType, &payload, &at); err != nil {
			return nil, err
		}
		if actor != nil {
			rec.ActorID = *actor
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &rec.ActionPayload); err != nil {
				return nil, fmt.Errorf("decode payload of action %d: %w", rec.ActionIndex, err)
			}
		}
		rec.Timestamp = at.UnixMilli()
		out = append(out, rec)
	}
	return out, rows.Err()
}
