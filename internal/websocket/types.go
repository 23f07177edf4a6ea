package websocket

import (
	"garment-portal-backend/internal/chatsync"
)

type FrameType string

const (
	FrameSnapshot  FrameType = "snapshot"
	FrameMessage   FrameType = "message"
	FramePending   FrameType = "pending"
	FrameConfirmed FrameType = "confirmed"
	FrameFailed    FrameType = "failed"
	FrameClosed    FrameType = "closed"
	FrameError     FrameType = "error"

	FrameSend  FrameType = "send"
	FrameRetry FrameType = "retry"
)

type Room struct {
	ID      string               `json:"id"`
	Clients map[string]*WSClient `json:"-"`
}

// WSMessage is an outbound frame.
type WSMessage struct {
	Type     FrameType          `json:"type"`
	Snapshot *chatsync.Snapshot `json:"snapshot,omitempty"`
	Entry    *chatsync.Entry    `json:"entry,omitempty"`
	Message  string             `json:"message,omitempty"`
}

// InboundFrame is what a browser sends.
type InboundFrame struct {
	Type            FrameType `json:"type"`
	Content         string    `json:"content,omitempty"`
	ClientMessageID string    `json:"clientMessageId,omitempty"`
}

type RoomRes struct {
	ID      string `json:"id"`
	Clients int    `json:"clients"`
}

func frameFromUpdate(u chatsync.Update) *WSMessage {
	return &WSMessage{Type: FrameType(u.Kind), Entry: u.Entry}
}
