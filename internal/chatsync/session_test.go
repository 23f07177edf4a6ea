package chatsync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"garment-portal-backend/internal/model"
	"garment-portal-backend/internal/realtime"
	"garment-portal-backend/internal/store"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

type fixture struct {
	store *store.Memory
	bus   *realtime.MemoryBus
	clock *clock
}

func newFixture() *fixture {
	c := &clock{now: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)}
	bus := realtime.NewMemoryBus()
	return &fixture{store: store.NewMemory(bus, c.Now), bus: bus, clock: c}
}

func (f *fixture) deps(st Store) Deps {
	if st == nil {
		st = f.store
	}
	return Deps{Store: st, Bus: f.bus, Now: f.clock.Now}
}

// collector drains a session's updates.
type collector struct {
	mu      sync.Mutex
	updates []Update
	done    chan struct{}
}

func collect(s *Session) *collector {
	c := &collector{done: make(chan struct{})}
	go func() {
		defer close(c.done)
		for u := range s.Updates() {
			c.mu.Lock()
			c.updates = append(c.updates, u)
			c.mu.Unlock()
		}
	}()
	return c
}

func (c *collector) kinds() []UpdateKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]UpdateKind, 0, len(c.updates))
	for _, u := range c.updates {
		out = append(out, u.Kind)
	}
	return out
}

func (c *collector) count(kind UpdateKind) int {
	n := 0
	for _, k := range c.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

func (c *collector) waitFor(t *testing.T, kind UpdateKind, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return c.count(kind) >= n }, 2*time.Second, 5*time.Millisecond,
		"waiting for %d %s updates, got %v", n, kind, c.kinds())
}

func (c *collector) waitClosed(t *testing.T) {
	t.Helper()
	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		t.Fatal("updates channel not closed")
	}
}

func clientSession(t *testing.T, f *fixture, st Store, userID string) *Session {
	t.Helper()
	s, err := New(context.Background(), Config{
		Role:           model.SenderRoleClient,
		UserID:         userID,
		HistoryLimit:   50,
		DefaultSubject: "General Inquiry",
	}, f.deps(st))
	require.NoError(t, err)
	t.Cleanup(s.Discard)
	return s
}

func confirmedContents(snap Snapshot) []string {
	out := []string{}
	for _, e := range snap.Entries {
		if e.Status == EntryConfirmed {
			out = append(out, e.Message.Content)
		}
	}
	return out
}

func TestClientFirstSendCreatesOneConversation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	s := clientSession(t, f, nil, "u1")
	c := collect(s)
	require.NoError(t, s.Open(ctx))
	assert.Equal(t, StateBootstrapping, s.State())
	assert.Equal(t, 0, f.store.CountConversations("u1"))

	entry, err := s.Send(ctx, "  Need 2000 kurtas  ", "tmp-1")
	require.NoError(t, err)
	assert.Equal(t, EntryConfirmed, entry.Status)
	assert.Equal(t, "Need 2000 kurtas", entry.Message.Content)
	assert.Equal(t, "tmp-1", entry.TempID)
	assert.Equal(t, StateLive, s.State())
	assert.Equal(t, 1, f.store.CountConversations("u1"))

	conv, err := f.store.FindLatestConversation(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "General Inquiry", conv.Subject)

	msgs, err := f.store.ListMessages(ctx, conv.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, model.SenderRoleClient, msgs[0].SenderRole)

	c.waitFor(t, UpdateConfirmed, 1)
	assert.Equal(t, UpdatePending, c.kinds()[0])

	// A second viewer attaches to the same conversation.
	again := clientSession(t, f, nil, "u1")
	require.NoError(t, again.Open(ctx))
	assert.Equal(t, StateLive, again.State())
	assert.Equal(t, conv.ID, again.Snapshot().Conversation.ID)
	assert.Equal(t, []string{"Need 2000 kurtas"}, confirmedContents(again.Snapshot()))
	assert.Equal(t, 1, f.store.CountConversations("u1"))
}

func TestEmptySendNeverReachesStore(t *testing.T) {
	f := newFixture()
	s := clientSession(t, f, nil, "u1")
	require.NoError(t, s.Open(context.Background()))

	_, err := s.Send(context.Background(), " \n\t", "")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Equal(t, 0, f.store.CountConversations("u1"))
	assert.Empty(t, s.Snapshot().Entries)
}

func TestSendBeforeOpenIsNotReady(t *testing.T) {
	f := newFixture()
	s := clientSession(t, f, nil, "u1")

	_, err := s.Send(context.Background(), "hi", "")
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestLiveInsertsMergeInOrderWithoutDuplicates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	conv, err := f.store.CreateConversation(ctx, "u1", "General Inquiry")
	require.NoError(t, err)

	s := clientSession(t, f, nil, "u1")
	c := collect(s)
	require.NoError(t, s.Open(ctx))
	require.Equal(t, StateLive, s.State())

	const n = 20
	for i := 0; i < n; i++ {
		_, err := f.store.InsertMessage(ctx, store.NewMessage{
			ConversationID: conv.ID,
			SenderID:       "admin-1",
			Role:           model.SenderRoleAdmin,
			Content:        "reply",
		})
		require.NoError(t, err)
	}
	c.waitFor(t, UpdateMessage, n)

	// Redeliver one row; the session must ignore it.
	msgs, err := f.store.ListMessages(ctx, conv.ID, 0)
	require.NoError(t, err)
	ev, err := realtime.NewInsertEvent(model.MessagesTable, msgs[3])
	require.NoError(t, err)
	require.NoError(t, realtime.PublishJSON(ctx, f.bus, realtime.MessagesTopic(conv.ID), ev))

	// Rows for other conversations are ignored.
	other, err := f.store.CreateConversation(ctx, "u2", "")
	require.NoError(t, err)
	stray := msgs[0]
	stray.ID = "stray"
	stray.ConversationID = other.ID
	ev, err = realtime.NewInsertEvent(model.MessagesTable, stray)
	require.NoError(t, err)
	require.NoError(t, realtime.PublishJSON(ctx, f.bus, realtime.MessagesTopic(conv.ID), ev))

	time.Sleep(50 * time.Millisecond)
	snap := s.Snapshot()
	require.Len(t, snap.Entries, n)
	for i := range snap.Entries {
		assert.Equal(t, msgs[i].ID, snap.Entries[i].Message.ID)
	}
	assert.Equal(t, n, c.count(UpdateMessage))
}

// overlapStore inserts a message while history is being read, so the row
// shows up both in history and on the feed.
type overlapStore struct {
	*store.Memory
	once sync.Once
}

func (o *overlapStore) ListMessages(ctx context.Context, conversationID string, limit int) ([]model.MessageItem, error) {
	o.once.Do(func() {
		_, _ = o.Memory.InsertMessage(ctx, store.NewMessage{
			ConversationID: conversationID,
			SenderID:       "admin-1",
			Role:           model.SenderRoleAdmin,
			Content:        "racing",
		})
	})
	return o.Memory.ListMessages(ctx, conversationID, limit)
}

func TestBootstrapOverlapIsDeduplicated(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.store.CreateConversation(ctx, "u1", "")
	require.NoError(t, err)

	s := clientSession(t, f, &overlapStore{Memory: f.store}, "u1")
	c := collect(s)
	require.NoError(t, s.Open(ctx))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"racing"}, confirmedContents(s.Snapshot()))
	assert.Equal(t, 0, c.count(UpdateMessage))
}

func TestFailedSendKeepsContentAndRetries(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.store.CreateConversation(ctx, "u1", "")
	require.NoError(t, err)

	s := clientSession(t, f, nil, "u1")
	c := collect(s)
	require.NoError(t, s.Open(ctx))

	f.store.SetFailInserts(errors.New("dynamo unavailable"))
	entry, err := s.Send(ctx, "sample request", "tmp-9")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSendFailed)
	assert.Equal(t, EntryFailed, entry.Status)
	assert.Equal(t, "sample request", entry.Message.Content)
	c.waitFor(t, UpdateFailed, 1)

	f.store.SetFailInserts(nil)
	entry, err = s.Retry(ctx, "tmp-9")
	require.NoError(t, err)
	assert.Equal(t, EntryConfirmed, entry.Status)
	assert.Equal(t, "sample request", entry.Message.Content)

	snap := s.Snapshot()
	require.Len(t, snap.Entries, 1)
	assert.Equal(t, EntryConfirmed, snap.Entries[0].Status)

	_, err = s.Retry(ctx, "unknown")
	assert.ErrorIs(t, err, ErrUnknownMessage)
}

// echoFirstStore holds the insert result until the session has merged the
// feed echo.
type echoFirstStore struct {
	*store.Memory
	session *Session
}

func (e *echoFirstStore) InsertMessage(ctx context.Context, msg store.NewMessage) (model.MessageItem, error) {
	row, err := e.Memory.InsertMessage(ctx, msg)
	if err != nil {
		return row, err
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, entry := range e.session.Snapshot().Entries {
			if entry.Message.ID == row.ID {
				return row, nil
			}
		}
		time.Sleep(2 * time.Millisecond)
	}
	return row, nil
}

func TestPendingReconciledOnceWhenEchoArrivesFirst(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.store.CreateConversation(ctx, "u1", "")
	require.NoError(t, err)

	st := &echoFirstStore{Memory: f.store}
	s := clientSession(t, f, st, "u1")
	st.session = s
	c := collect(s)
	require.NoError(t, s.Open(ctx))

	entry, err := s.Send(ctx, "hello", "tmp-e")
	require.NoError(t, err)
	assert.Equal(t, EntryConfirmed, entry.Status)

	snap := s.Snapshot()
	require.Len(t, snap.Entries, 1)
	assert.Equal(t, "tmp-e", snap.Entries[0].TempID)
	c.waitFor(t, UpdateConfirmed, 1)
	assert.Equal(t, 1, c.count(UpdateConfirmed))
	assert.Equal(t, 0, c.count(UpdateMessage))
}

func TestPendingReconciledOnceWhenInsertReturnsFirst(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	quiet := store.NewMemory(nil, f.clock.Now)
	conv, err := quiet.CreateConversation(ctx, "u1", "")
	require.NoError(t, err)

	s := clientSession(t, f, quiet, "u1")
	c := collect(s)
	require.NoError(t, s.Open(ctx))

	entry, err := s.Send(ctx, "hello", "tmp-i")
	require.NoError(t, err)
	assert.Equal(t, EntryConfirmed, entry.Status)

	// The echo turns up late.
	ev, err := realtime.NewInsertEvent(model.MessagesTable, entry.Message)
	require.NoError(t, err)
	require.NoError(t, realtime.PublishJSON(ctx, f.bus, realtime.MessagesTopic(conv.ID), ev))
	time.Sleep(50 * time.Millisecond)

	require.Len(t, s.Snapshot().Entries, 1)
	assert.Equal(t, 1, c.count(UpdateConfirmed))
	assert.Equal(t, 0, c.count(UpdateMessage))
}

func TestAdminSessionLoadsConversationAndProfile(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	require.NoError(t, f.store.PutProfile(ctx, model.ProfileItem{UserID: "u1", ContactName: "Asha"}))
	conv, err := f.store.CreateConversation(ctx, "u1", "")
	require.NoError(t, err)
	_, err = f.store.InsertMessage(ctx, store.NewMessage{ConversationID: conv.ID, SenderID: "u1", Role: model.SenderRoleClient, Content: "hi"})
	require.NoError(t, err)

	_, err = New(ctx, Config{Role: model.SenderRoleAdmin, UserID: "admin-1"}, f.deps(nil))
	assert.ErrorIs(t, err, ErrConversationRequired)

	missing, err := New(ctx, Config{Role: model.SenderRoleAdmin, UserID: "admin-1", ConversationID: "nope"}, f.deps(nil))
	require.NoError(t, err)
	defer missing.Discard()
	assert.ErrorIs(t, missing.Open(ctx), ErrConversationNotFound)
	assert.Equal(t, StateIdle, missing.State())

	s, err := New(ctx, Config{Role: model.SenderRoleAdmin, UserID: "admin-1", ConversationID: conv.ID}, f.deps(nil))
	require.NoError(t, err)
	defer s.Close()
	collect(s)
	require.NoError(t, s.Open(ctx))

	snap := s.Snapshot()
	assert.Equal(t, StateLive, snap.State)
	require.NotNil(t, snap.Profile)
	assert.Equal(t, "Asha", snap.Profile.ContactName)
	assert.Equal(t, []string{"hi"}, confirmedContents(snap))

	entry, err := s.Send(ctx, "We can do that", "")
	require.NoError(t, err)
	assert.Equal(t, model.SenderRoleAdmin, entry.Message.SenderRole)
	assert.NotEmpty(t, entry.TempID)
}

func TestCloseReleasesSubscription(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	conv, err := f.store.CreateConversation(ctx, "u1", "")
	require.NoError(t, err)

	s := clientSession(t, f, nil, "u1")
	c := collect(s)
	require.NoError(t, s.Open(ctx))
	assert.Equal(t, 1, f.bus.SubscriberCount(realtime.MessagesTopic(conv.ID)))

	s.Close()
	s.Close()
	c.waitClosed(t)
	assert.Equal(t, 0, f.bus.SubscriberCount(realtime.MessagesTopic(conv.ID)))
	assert.Equal(t, []UpdateKind{UpdateClosed}, c.kinds())

	_, err = s.Send(ctx, "late", "")
	assert.ErrorIs(t, err, ErrNotReady)
	assert.ErrorIs(t, s.Open(ctx), ErrClosed)
}

func TestFeedEndClosesSession(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.store.CreateConversation(ctx, "u1", "")
	require.NoError(t, err)

	s := clientSession(t, f, nil, "u1")
	c := collect(s)
	require.NoError(t, s.Open(ctx))

	f.bus.Close()
	c.waitClosed(t)
	assert.Equal(t, StateClosed, s.State())
}

func TestContextCancelClosesSession(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())

	s, err := New(ctx, Config{Role: model.SenderRoleClient, UserID: "u1"}, f.deps(nil))
	require.NoError(t, err)
	c := collect(s)

	cancel()
	c.waitClosed(t)
	assert.Equal(t, StateClosed, s.State())
}

func TestDiscardReleasesUnreadSession(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	require.Eventually(t, func() bool { return ActiveSessions() == 0 }, 2*time.Second, 5*time.Millisecond)

	for i := 0; i < 3; i++ {
		s, err := New(ctx, Config{Role: model.SenderRoleAdmin, UserID: "admin-1", ConversationID: "nope"}, f.deps(nil))
		require.NoError(t, err)
		require.ErrorIs(t, s.Open(ctx), ErrConversationNotFound)
		s.Discard()
	}

	require.Eventually(t, func() bool { return ActiveSessions() == 0 }, 2*time.Second, 5*time.Millisecond,
		"%d sessions still hold an open update stream", ActiveSessions())
}

func TestSnapshotSeqCoversMergedUpdates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	conv, err := f.store.CreateConversation(ctx, "u1", "")
	require.NoError(t, err)

	s := clientSession(t, f, nil, "u1")
	require.NoError(t, s.Open(ctx))

	insert := func(content string) {
		_, err := f.store.InsertMessage(ctx, store.NewMessage{ConversationID: conv.ID, SenderID: "admin-1", Role: model.SenderRoleAdmin, Content: content})
		require.NoError(t, err)
	}

	insert("before snapshot")
	require.Eventually(t, func() bool { return len(confirmedContents(s.Snapshot())) == 1 }, 2*time.Second, 5*time.Millisecond)
	snap := s.Snapshot()

	c := collect(s)
	insert("after snapshot")
	c.waitFor(t, UpdateMessage, 2)

	c.mu.Lock()
	defer c.mu.Unlock()
	var seqs []uint64
	for _, u := range c.updates {
		if u.Kind == UpdateMessage {
			seqs = append(seqs, u.Seq)
		}
	}
	require.Len(t, seqs, 2)
	assert.LessOrEqual(t, seqs[0], snap.Seq)
	assert.Greater(t, seqs[1], snap.Seq)
}

func TestResolveConversation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	conv, created, err := ResolveConversation(ctx, f.store, "u1", "General Inquiry")
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := ResolveConversation(ctx, f.store, "u1", "General Inquiry")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, conv.ID, again.ID)
}
