package realtime

import (
	"encoding/json"
	"fmt"
	"time"
)

type ChangeType string

const ChangeInsert ChangeType = "INSERT"

// ChangeEvent is a row-level change pushed to subscribers of a table topic.
type ChangeEvent struct {
	Table  string          `json:"table"`
	Type   ChangeType      `json:"type"`
	Record json.RawMessage `json:"record"`
}

func NewInsertEvent(table string, record any) (ChangeEvent, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return ChangeEvent{}, fmt.Errorf("marshal %s record: %w", table, err)
	}
	return ChangeEvent{Table: table, Type: ChangeInsert, Record: raw}, nil
}

func DecodeChangeEvent(payload []byte) (ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return ChangeEvent{}, fmt.Errorf("decode change event: %w", err)
	}
	return ev, nil
}

type SessionEventType string

const (
	SessionSignedIn  SessionEventType = "signed_in"
	SessionSignedOut SessionEventType = "signed_out"
)

type SessionEvent struct {
	Type   SessionEventType `json:"type"`
	UserID string           `json:"user_id"`
	At     time.Time        `json:"at"`
}

func DecodeSessionEvent(payload []byte) (SessionEvent, error) {
	var ev SessionEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return SessionEvent{}, fmt.Errorf("decode session event: %w", err)
	}
	return ev, nil
}

// MessagesTopic is the insert feed for one conversation's messages.
func MessagesTopic(conversationID string) string {
	return "chat_messages:conversation_id=eq." + conversationID
}

func SessionTopic(userID string) string {
	return "session:" + userID
}
