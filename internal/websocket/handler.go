package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"garment-portal-backend/internal/api"
	"garment-portal-backend/internal/api/middleware"
	"garment-portal-backend/internal/chatsync"
	"garment-portal-backend/internal/config"
	"garment-portal-backend/internal/identity"
	"garment-portal-backend/internal/model"
	"garment-portal-backend/internal/realtime"
)

// Gate is the part of the identity gate a live connection needs.
type Gate interface {
	CurrentIdentity(ctx context.Context, accessToken string) (identity.Identity, error)
	RequireAdmin(ctx context.Context, id identity.Identity, accessToken string) error
	Subscribe(ctx context.Context, userID string) (*realtime.Subscription, error)
}

type HandlerOptions struct {
	Hub            *Hub
	Gate           Gate
	Store          chatsync.Store
	Bus            realtime.Bus
	Chat           config.ChatConfig
	AllowedOrigins []string
	Logger         *zap.Logger
	// AdminChatPrefix is the mux pattern of AdminChat.
	AdminChatPrefix string
}

type Handler struct {
	hub             *Hub
	gate            Gate
	store           chatsync.Store
	bus             realtime.Bus
	chat            config.ChatConfig
	logger          *zap.Logger
	upgrader        websocket.Upgrader
	adminChatPrefix string
}

func NewHandler(opts HandlerOptions) *Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Handler{
		hub:             opts.Hub,
		gate:            opts.Gate,
		store:           opts.Store,
		bus:             opts.Bus,
		chat:            opts.Chat,
		logger:          opts.Logger,
		adminChatPrefix: opts.AdminChatPrefix,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(opts.AllowedOrigins),
		},
	}
}

func (h *Handler) Hub() *Hub {
	return h.hub
}

// ClientChat serves the dashboard live chat for the caller's conversation.
func (h *Handler) ClientChat(w http.ResponseWriter, r *http.Request) error {
	id, _, err := h.authenticate(r, middleware.RedirectClientLogin)
	if err != nil {
		return err
	}

	return h.join(w, r, id, chatsync.Config{
		Role:           model.SenderRoleClient,
		UserID:         id.UserID,
		DefaultSubject: h.chat.DefaultSubject,
	}, clientRoom(id.UserID))
}

// AdminChat serves one conversation to an admin.
func (h *Handler) AdminChat(w http.ResponseWriter, r *http.Request) error {
	conversationID := strings.Trim(strings.TrimPrefix(r.URL.Path, h.adminChatPrefix), "/")
	if conversationID == "" || strings.Contains(conversationID, "/") {
		return &api.HTTPError{
			StatusCode: http.StatusNotFound,
			Message:    "conversation not found",
			ErrorLog:   fmt.Errorf("bad admin chat path %s", r.URL.Path),
		}
	}

	id, token, err := h.authenticate(r, middleware.RedirectAdminLogin)
	if err != nil {
		return err
	}
	if err := h.gate.RequireAdmin(r.Context(), id, token); err != nil {
		return &api.HTTPError{
			StatusCode: http.StatusForbidden,
			Message:    identity.MessageNotAdmin,
			ErrorLog:   err,
			Redirect:   middleware.RedirectHome,
		}
	}

	return h.join(w, r, id, chatsync.Config{
		Role:           model.SenderRoleAdmin,
		UserID:         id.UserID,
		ConversationID: conversationID,
	}, conversationRoom(conversationID))
}

// authenticate reads the access token from the token query parameter, which
// browsers can set on a websocket URL, or from the Authorization header.
func (h *Handler) authenticate(r *http.Request, redirect string) (identity.Identity, string, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token, _ = identity.BearerToken(r.Header.Get("Authorization"))
	}

	id, err := h.gate.CurrentIdentity(r.Context(), token)
	if err != nil {
		var idErr *identity.Error
		if errors.As(err, &idErr) && idErr.Code == identity.ErrorCodeUnauthorized {
			return identity.Identity{}, "", &api.HTTPError{
				StatusCode: http.StatusUnauthorized,
				Message:    idErr.Message,
				ErrorLog:   err,
				Redirect:   redirect,
			}
		}
		return identity.Identity{}, "", &api.HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   err,
		}
	}
	return id, token, nil
}

func (h *Handler) join(w http.ResponseWriter, r *http.Request, id identity.Identity, cfg chatsync.Config, roomID string) error {
	// The connection outlives the request.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))

	logger := h.logger.With(zap.String("user_id", id.UserID), zap.String("room", roomID))
	session, err := chatsync.New(ctx, cfg, chatsync.Deps{
		Store:  h.store,
		Bus:    h.bus,
		Logger: logger,
	})
	if err != nil {
		cancel()
		return &api.HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "invalid chat request",
			ErrorLog:   err,
		}
	}

	if err := session.Open(ctx); err != nil {
		session.Discard()
		cancel()
		if errors.Is(err, chatsync.ErrConversationNotFound) {
			return &api.HTTPError{
				StatusCode: http.StatusNotFound,
				Message:    "conversation not found",
				ErrorLog:   err,
			}
		}
		return &api.HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "failed to load conversation",
			ErrorLog:   err,
		}
	}

	sessions, err := h.gate.Subscribe(ctx, id.UserID)
	if err != nil {
		session.Discard()
		cancel()
		return &api.HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "failed to watch session",
			ErrorLog:   err,
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		sessions.Close()
		session.Discard()
		cancel()
		logger.Debug("websocket upgrade failed", zap.Error(err))
		// Upgrade already wrote the HTTP error.
		return nil
	}

	cl := &WSClient{
		Conn:     conn,
		Message:  make(chan *WSMessage, sendBuffer),
		ID:       uuid.NewString(),
		RoomID:   roomID,
		UserID:   id.UserID,
		session:  session,
		sessions: sessions,
		hub:      h.hub,
		logger:   logger,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	// Updates up to snap.Seq are already in the snapshot and are skipped.
	snap := session.Snapshot()
	cl.snapshotSeq = snap.Seq
	cl.Message <- &WSMessage{Type: FrameSnapshot, Snapshot: &snap}

	if !h.hub.register(cl) {
		cl.stop("hub stopped")
	}
	cl.start()

	logger.Info("websocket joined", zap.String("client_id", cl.ID))
	return nil
}

// Rooms lists live rooms.
func (h *Handler) Rooms(w http.ResponseWriter, r *http.Request) error {
	return api.WriteJSON(w, http.StatusOK, h.hub.Snapshot())
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}
