// Package gametest has helpers for inspecting what game rooms pushed to sessions.
package gametest

import (
	"github.com/jason-s-yu/duelhall/internal/game"
)

// Drain returns every event currently queued for s without blocking.
func Drain(s *game.Session) []game.Event {
	var out []game.Event
	for {
		select {
		case v, ok := <-s.Outbox():
			if !ok {
				return out
			}
			if ev, isEvent := v.(game.Event); isEvent {
				out = append(out, ev)
			}
		default:
			return out
		}
	}
}

// Types lists the event types in order.
func Types(events []game.Event) []game.EventType {
	out := make([]game.EventType, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}

// Last returns the last event of type t, or nil.
func Last(events []game.Event, t game.EventType) *game.Event {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type == t {
			return &events[i]
		}
	}
	return nil
}
