// Package chatsync keeps one viewer's copy of a conversation in step with the
// store: it loads history, merges live inserts exactly once and reconciles
// optimistic sends with the rows the store returns.
package chatsync

import (
	"errors"

	"garment-portal-backend/internal/model"
)

var (
	ErrEmptyMessage         = errors.New("message is empty")
	ErrNotReady             = errors.New("chat is not ready")
	ErrSendFailed           = errors.New("failed to send")
	ErrClosed               = errors.New("chat session closed")
	ErrConversationRequired = errors.New("conversation id is required")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrUnknownMessage       = errors.New("unknown pending message")
)

type State int

const (
	StateIdle State = iota
	StateBootstrapping
	StateLive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBootstrapping:
		return "bootstrapping"
	case StateLive:
		return "live"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type EntryStatus string

const (
	EntryConfirmed EntryStatus = "confirmed"
	EntryPending   EntryStatus = "pending"
	EntryFailed    EntryStatus = "failed"
)

// Entry is one line of the chat as the viewer sees it. Pending and failed
// entries carry the client temp id as both Message.ID and TempID.
type Entry struct {
	TempID  string            `json:"client_message_id,omitempty"`
	Status  EntryStatus       `json:"status"`
	Message model.MessageItem `json:"message"`
}

type UpdateKind string

const (
	UpdateMessage   UpdateKind = "message"
	UpdatePending   UpdateKind = "pending"
	UpdateConfirmed UpdateKind = "confirmed"
	UpdateFailed    UpdateKind = "failed"
	UpdateClosed    UpdateKind = "closed"
)

// Update is one change to the session. Seq increases by one per update.
type Update struct {
	Kind  UpdateKind `json:"type"`
	Entry *Entry     `json:"entry,omitempty"`
	Seq   uint64     `json:"-"`
}

type Snapshot struct {
	State        State                   `json:"state"`
	Conversation *model.ConversationItem `json:"conversation,omitempty"`
	Profile      *model.ProfileItem      `json:"profile,omitempty"`
	Entries      []Entry                 `json:"entries"`
	// Seq is the last update already reflected in Entries.
	Seq          uint64                  `json:"-"`
}
