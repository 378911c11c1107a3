// internal/game/action_log.go
package game

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/duelhall/internal/cache"
	"github.com/sirupsen/logrus"
)

// Recorder receives every accepted game action.
type Recorder interface {
	RecordAction(ctx context.Context, rec cache.GameActionRecord) error
}

// NopRecorder discards records. Used when Redis is not configured.
type NopRecorder struct{}

func (NopRecorder) RecordAction(context.Context, cache.GameActionRecord) error { return nil }

// ActionLog numbers the actions of one room and forwards them to a Recorder
// without blocking the caller. Callers hold the room lock.
type ActionLog struct {
	game     string
	roomID   uuid.UUID
	index    int
	recorder Recorder
	logger   *logrus.Logger
}

func NewActionLog(gameName string, roomID uuid.UUID, rec Recorder, logger *logrus.Logger) *ActionLog {
	if rec == nil {
		rec = NopRecorder{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ActionLog{game: gameName, roomID: roomID, recorder: rec, logger: logger}
}

// Log records one action taken by actor.
func (a *ActionLog) Log(actor *Session, actionType string, payload map[string]any) {
	a.index++
	if payload == nil {
		payload = make(map[string]any)
	}
	record := cache.GameActionRecord{
		Game:          a.game,
		RoomID:        a.roomID,
		ActionIndex:   a.index,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	if actor != nil {
		record.ActorID = actor.ID
		record.ActorName = actor.Name
	}

	go func(rec cache.GameActionRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := a.recorder.RecordAction(ctx, rec); err != nil {
			a.logger.WithFields(logrus.Fields{
				"game":  rec.Game,
				"room":  rec.RoomID,
				"index": rec.ActionIndex,
			}).Warnf("failed to publish game action: %v", err)
		}
	}(record)
}

// Count is the number of actions logged so far.
func (a *ActionLog) Count() int {
	return a.index
}
