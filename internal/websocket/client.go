package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"garment-portal-backend/internal/chatsync"
	"garment-portal-backend/internal/realtime"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 64 * 1024
	sendBuffer     = 32
)

// WSClient is one browser connection bound to one chat session.
type WSClient struct {
	Conn    *websocket.Conn
	Message chan *WSMessage
	ID      string
	RoomID  string
	UserID  string

	session  *chatsync.Session
	sessions *realtime.Subscription
	hub      *Hub
	logger   *zap.Logger
	cancel   context.CancelFunc

	// snapshotSeq is the last session update the snapshot frame carried.
	snapshotSeq uint64

	done     chan struct{}
	stopOnce sync.Once
	mu       sync.Mutex
	isClosed bool
}

func (cl *WSClient) start() {
	go cl.keepAlive()
	go cl.writeMessage()
	go cl.forwardUpdates()
	go cl.watchSession()
	go cl.readMessage()
}

// stop tears the connection down once: session, subscriptions and hub
// membership. The writer flushes what is queued and closes the socket.
func (cl *WSClient) stop(reason string) {
	cl.stopOnce.Do(func() {
		cl.logger.Debug("websocket closing", zap.String("reason", reason))
		close(cl.done)
		cl.session.Close()
		if cl.sessions != nil {
			cl.sessions.Close()
		}
		cl.cancel()
		cl.hub.unregister(cl)
	})
}

// enqueue never blocks past stop.
func (cl *WSClient) enqueue(msg *WSMessage) {
	select {
	case cl.Message <- msg:
	case <-cl.done:
	}
}

func (cl *WSClient) keepAlive() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-cl.done:
			return
		case <-ticker.C:
			cl.mu.Lock()
			if cl.isClosed {
				cl.mu.Unlock()
				return
			}
			err := cl.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			cl.mu.Unlock()

			if err != nil {
				cl.logger.Debug("ping failed", zap.Error(err))
				cl.stop("ping failed")
				return
			}
		}
	}
}

func (cl *WSClient) writeMessage() {
	defer func() {
		cl.mu.Lock()
		cl.isClosed = true
		_ = cl.Conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		cl.Conn.Close()
		cl.mu.Unlock()
	}()

	for {
		select {
		case <-cl.done:
			cl.flush()
			return
		case msg := <-cl.Message:
			if err := cl.write(msg); err != nil {
				cl.logger.Debug("write failed", zap.Error(err))
				cl.stop("write failed")
				return
			}
		}
	}
}

func (cl *WSClient) flush() {
	for {
		select {
		case msg := <-cl.Message:
			if err := cl.write(msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (cl *WSClient) write(msg *WSMessage) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.isClosed {
		return websocket.ErrCloseSent
	}
	_ = cl.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := cl.Conn.WriteJSON(msg); err != nil {
		return err
	}
	addDelivered(1)
	return nil
}

// newerThanSnapshot reports whether u still has to be sent after a snapshot
// taken at seq. Closed is always sent.
func newerThanSnapshot(u chatsync.Update, seq uint64) bool {
	return u.Kind == chatsync.UpdateClosed || u.Seq > seq
}

// forwardUpdates drains the session until it closes, as chatsync requires.
func (cl *WSClient) forwardUpdates() {
	for u := range cl.session.Updates() {
		if !newerThanSnapshot(u, cl.snapshotSeq) {
			continue
		}
		cl.enqueue(frameFromUpdate(u))
		if u.Kind == chatsync.UpdateClosed {
			cl.stop("session closed")
		}
	}
	cl.stop("session ended")
}

// watchSession closes the connection when its user signs out anywhere.
func (cl *WSClient) watchSession() {
	if cl.sessions == nil {
		return
	}
	for env := range cl.sessions.C {
		ev, err := realtime.DecodeSessionEvent(env.Payload)
		if err != nil {
			cl.logger.Warn("bad session event", zap.Error(err))
			continue
		}
		if ev.Type == realtime.SessionSignedOut {
			wsForcedSignOuts.Inc()
			cl.enqueue(&WSMessage{Type: FrameError, Message: "signed out"})
			cl.stop("signed out")
			return
		}
	}
}

func (cl *WSClient) readMessage() {
	defer cl.stop("reader done")

	cl.Conn.SetReadLimit(maxMessageSize)
	_ = cl.Conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.Conn.SetPongHandler(func(string) error {
		return cl.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := cl.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived) {
				cl.logger.Debug("read failed", zap.Error(err))
			}
			return
		}

		var frame InboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			cl.enqueue(&WSMessage{Type: FrameError, Message: "invalid frame"})
			continue
		}
		cl.handle(frame)
	}
}

func (cl *WSClient) handle(frame InboundFrame) {
	ctx := context.Background()
	var err error

	switch frame.Type {
	case FrameSend:
		_, err = cl.session.Send(ctx, frame.Content, frame.ClientMessageID)
	case FrameRetry:
		_, err = cl.session.Retry(ctx, frame.ClientMessageID)
	default:
		cl.enqueue(&WSMessage{Type: FrameError, Message: "unknown frame type"})
		return
	}

	switch {
	case err == nil:
	case errors.Is(err, chatsync.ErrSendFailed):
		// the session already emitted a failed update
	case errors.Is(err, chatsync.ErrEmptyMessage):
		cl.enqueue(&WSMessage{Type: FrameError, Message: "message cannot be empty"})
	case errors.Is(err, chatsync.ErrNotReady):
		cl.enqueue(&WSMessage{Type: FrameError, Message: "chat is not ready"})
	case errors.Is(err, chatsync.ErrUnknownMessage):
		cl.enqueue(&WSMessage{Type: FrameError, Message: "unknown message"})
	default:
		cl.logger.Warn("chat frame failed", zap.String("type", string(frame.Type)), zap.Error(err))
		cl.enqueue(&WSMessage{Type: FrameError, Message: "failed to send"})
	}
}
