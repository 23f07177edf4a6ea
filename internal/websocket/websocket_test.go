package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"garment-portal-backend/internal/api"
	"garment-portal-backend/internal/chatsync"
	"garment-portal-backend/internal/config"
	"garment-portal-backend/internal/identity"
	internaljwt "garment-portal-backend/internal/jwt"
	"garment-portal-backend/internal/model"
	"garment-portal-backend/internal/realtime"
	"garment-portal-backend/internal/store"
)

const (
	wsPrefix   = "/api/ws/v1"
	adminEmail = "owner@portal.test"
)

type wsFixture struct {
	server *httptest.Server
	hub    *Hub
	gate   *identity.Gate
	store  *store.Memory
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := internaljwt.NewAuthRedisClient(config.RedisConfig{AuthAddr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	bus := realtime.NewMemoryBus()
	st := store.NewMemory(bus, nil)
	policy, err := identity.NewAdminPolicy([]string{adminEmail})
	require.NoError(t, err)

	gate := identity.NewGate(identity.Options{
		Users:    identity.NewMemoryUserRepository(),
		Profiles: st,
		Tokens: internaljwt.NewManager(config.AuthConfig{
			UserSecret:      "websocket-test-secret",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: time.Hour,
		}, client),
		Admins: policy,
		Bus:    bus,
	})

	chatCfg := config.ChatConfig{DefaultSubject: "General Inquiry", WidgetHistory: 50}
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	handler := NewHandler(HandlerOptions{
		Hub:             hub,
		Gate:            gate,
		Store:           st,
		Bus:             bus,
		Chat:            chatCfg,
		AllowedOrigins:  []string{"*"},
		AdminChatPrefix: wsPrefix + "/admin/chat/",
	})

	srv := api.NewAPIServer(api.Options{
		Name:     "ws-test",
		Deps:     api.Dependencies{Gate: gate, Store: st, Chat: chatCfg},
		Registry: prometheus.NewRegistry(),
	}, func(mux *http.ServeMux, s *api.APIServer) {
		mux.HandleFunc(wsPrefix+"/dashboard/chat", s.MakeHTTPHandleFunc(handler.ClientChat))
		mux.HandleFunc(wsPrefix+"/admin/chat/", s.MakeHTTPHandleFunc(handler.AdminChat))
	})

	server := httptest.NewServer(srv.Routes())
	t.Cleanup(func() {
		server.Close()
		cancel()
		bus.Close()
	})

	return &wsFixture{server: server, hub: hub, gate: gate, store: st}
}

func (f *wsFixture) signUp(t *testing.T, email string) identity.Session {
	t.Helper()
	session, err := f.gate.SignUp(context.Background(), identity.SignUpParams{
		Email:       email,
		Password:    "secret123",
		ContactName: "Asha Rao",
		CompanyName: "Loom & Co",
	})
	require.NoError(t, err)
	return session
}

func (f *wsFixture) dial(t *testing.T, path, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + path
	if token != "" {
		url += "?token=" + token
	}
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if conn != nil {
		t.Cleanup(func() { _ = conn.Close() })
	}
	return conn, resp, err
}

func readFrame(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func readUntil(t *testing.T, conn *websocket.Conn, want FrameType) WSMessage {
	t.Helper()
	for i := 0; i < 10; i++ {
		msg := readFrame(t, conn)
		if msg.Type == want {
			return msg
		}
	}
	t.Fatalf("no %s frame", want)
	return WSMessage{}
}

func TestClientChatSendsAndConfirms(t *testing.T) {
	f := newWSFixture(t)
	session := f.signUp(t, "asha@loom.test")

	conn, _, err := f.dial(t, wsPrefix+"/dashboard/chat", session.Tokens.AccessToken)
	require.NoError(t, err)

	snap := readFrame(t, conn)
	require.Equal(t, FrameSnapshot, snap.Type)
	require.NotNil(t, snap.Snapshot)
	assert.Nil(t, snap.Snapshot.Conversation)
	assert.Empty(t, snap.Snapshot.Entries)

	assert.Eventually(t, func() bool {
		return f.hub.ClientCount(clientRoom(session.Identity.UserID)) == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(InboundFrame{Type: FrameSend, Content: "  "}))
	errFrame := readFrame(t, conn)
	assert.Equal(t, FrameError, errFrame.Type)
	assert.Equal(t, "message cannot be empty", errFrame.Message)

	require.NoError(t, conn.WriteJSON(InboundFrame{Type: FrameSend, Content: "Need samples", ClientMessageID: "tmp-1"}))

	pending := readFrame(t, conn)
	require.Equal(t, FramePending, pending.Type)
	assert.Equal(t, "tmp-1", pending.Entry.TempID)
	assert.Equal(t, chatsync.EntryPending, pending.Entry.Status)

	confirmed := readUntil(t, conn, FrameConfirmed)
	assert.Equal(t, "Need samples", confirmed.Entry.Message.Content)
	assert.Equal(t, chatsync.EntryConfirmed, confirmed.Entry.Status)
	assert.NotEqual(t, "tmp-1", confirmed.Entry.Message.ID)
	assert.Equal(t, 1, f.store.CountConversations(session.Identity.UserID))
}

func TestClientChatRequiresToken(t *testing.T) {
	f := newWSFixture(t)

	_, resp, err := f.dial(t, wsPrefix+"/dashboard/chat", "")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSignOutClosesConnection(t *testing.T) {
	f := newWSFixture(t)
	session := f.signUp(t, "asha@loom.test")

	conn, _, err := f.dial(t, wsPrefix+"/dashboard/chat", session.Tokens.AccessToken)
	require.NoError(t, err)
	require.Equal(t, FrameSnapshot, readFrame(t, conn).Type)

	require.NoError(t, f.gate.SignOut(context.Background(), session.Identity, session.Tokens.AccessToken, session.Tokens.RefreshToken))

	msg := readUntil(t, conn, FrameError)
	assert.Equal(t, "signed out", msg.Message)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	assert.Eventually(t, func() bool {
		return f.hub.ClientCount(clientRoom(session.Identity.UserID)) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestAdminChat(t *testing.T) {
	f := newWSFixture(t)
	client := f.signUp(t, "asha@loom.test")
	owner := f.signUp(t, adminEmail)

	conv, err := f.store.CreateConversation(context.Background(), client.Identity.UserID, "General Inquiry")
	require.NoError(t, err)

	_, resp, err := f.dial(t, wsPrefix+"/admin/chat/"+conv.ID, client.Tokens.AccessToken)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, resp, err = f.dial(t, wsPrefix+"/admin/chat/missing", owner.Tokens.AccessToken)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	conn, _, err := f.dial(t, wsPrefix+"/admin/chat/"+conv.ID, owner.Tokens.AccessToken)
	require.NoError(t, err)

	snap := readFrame(t, conn)
	require.Equal(t, FrameSnapshot, snap.Type)
	require.NotNil(t, snap.Snapshot.Profile)
	assert.Equal(t, "Asha Rao", snap.Snapshot.Profile.ContactName)

	_, err = f.store.InsertMessage(context.Background(), store.NewMessage{
		ConversationID: conv.ID,
		SenderID:       client.Identity.UserID,
		Role:           model.SenderRoleClient,
		Content:        "Hello from the shop",
	})
	require.NoError(t, err)

	msg := readUntil(t, conn, FrameMessage)
	assert.Equal(t, "Hello from the shop", msg.Entry.Message.Content)

	assert.Eventually(t, func() bool {
		return f.hub.ClientCount(conversationRoom(conv.ID)) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestAdminChatUnknownConversationReleasesSession(t *testing.T) {
	f := newWSFixture(t)
	owner := f.signUp(t, adminEmail)

	require.Eventually(t, func() bool { return chatsync.ActiveSessions() == 0 }, 2*time.Second, 10*time.Millisecond)

	for i := 0; i < 3; i++ {
		_, resp, err := f.dial(t, wsPrefix+"/admin/chat/missing", owner.Tokens.AccessToken)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	}

	assert.Eventually(t, func() bool { return chatsync.ActiveSessions() == 0 }, 2*time.Second, 10*time.Millisecond,
		"%d sessions still hold an open update stream", chatsync.ActiveSessions())
}

func TestNewerThanSnapshot(t *testing.T) {
	assert.False(t, newerThanSnapshot(chatsync.Update{Kind: chatsync.UpdateMessage, Seq: 3}, 4))
	assert.False(t, newerThanSnapshot(chatsync.Update{Kind: chatsync.UpdateMessage, Seq: 4}, 4))
	assert.True(t, newerThanSnapshot(chatsync.Update{Kind: chatsync.UpdateMessage, Seq: 5}, 4))
	assert.True(t, newerThanSnapshot(chatsync.Update{Kind: chatsync.UpdateConfirmed, Seq: 1}, 0))
	assert.True(t, newerThanSnapshot(chatsync.Update{Kind: chatsync.UpdateClosed, Seq: 2}, 9))
}
