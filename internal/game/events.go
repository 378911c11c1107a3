// internal/game/events.go
package game

import (
	"encoding/json"
	"fmt"
)

// EventType names a message pushed to clients.
type EventType string

const (
	EventConnected    EventType = "connected"
	EventWaiting      EventType = "waiting"
	EventMatched      EventType = "matched"
	EventOpponentLeft EventType = "opponent_left"
	EventPong         EventType = "pong"
	EventError        EventType = "error"
	EventResult       EventType = "result"
	EventGameOver     EventType = "game_over"
)

// Event is the envelope for every server-to-client message.
type Event struct {
	Type    EventType `json:"type"`
	RoomID  string    `json:"room_id,omitempty"`
	Seat    int       `json:"seat,omitempty"`
	Action  string    `json:"action,omitempty"`
	Error   string    `json:"error,omitempty"`
	Payload any       `json:"payload,omitempty"`
}

// Message is a client request: a type tag plus the raw JSON body, which each
// game decodes into its own request struct.
type Message struct {
	Type string
	Data []byte
}

// ParseMessage reads the "type" field out of a raw client message.
func ParseMessage(data []byte) (Message, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return Message{}, Invalidf("malformed message: %v", err)
	}
	if head.Type == "" {
		return Message{}, Invalidf("message type is required")
	}
	return Message{Type: head.Type, Data: data}, nil
}

// Decode unmarshals the message body into v. An empty body leaves v untouched.
func (m Message) Decode(v any) error {
	if len(m.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return Invalidf("malformed %s request: %v", m.Type, err)
	}
	return nil
}

// UnknownAction is returned by games for message types they do not handle.
func UnknownAction(t string) error {
	return fmt.Errorf("%w: unknown action %q", ErrInvalid, t)
}
