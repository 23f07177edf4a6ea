package chatsync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"garment-portal-backend/internal/model"
	"garment-portal-backend/internal/realtime"
	"garment-portal-backend/internal/store"
)

type Config struct {
	Role model.SenderRole
	// UserID is the sender id for outgoing messages. For the client role it
	// also owns the conversation.
	UserID string
	// ConversationID is required for the admin role and ignored otherwise.
	ConversationID string
	// HistoryLimit caps the history loaded on attach; <= 0 loads everything.
	HistoryLimit   int
	DefaultSubject string
}

type Deps struct {
	Store     Store
	Bus       realtime.Bus
	Logger    *zap.Logger
	Now       func() time.Time
	NewTempID func() string
}

type mergeSource int

const (
	fromFeed mergeSource = iota
	fromHistory
	fromSend
)

// Session is one viewer's live copy of a conversation. Updates must be
// drained until the channel is closed.
type Session struct {
	cfg       Config
	store     Store
	bus       realtime.Bus
	logger    *zap.Logger
	now       func() time.Time
	newTempID func() string

	ctx    context.Context
	cancel context.CancelFunc

	// attachMu serializes lazy conversation creation.
	attachMu sync.Mutex

	mu      sync.Mutex
	state   State
	conv    *model.ConversationItem
	profile *model.ProfileItem
	entries []Entry
	seen    map[string]struct{}
	pending map[string]int
	sub     *realtime.Subscription

	queue []Update
	seq   uint64
	wake  chan struct{}
	out   chan Update
}

func New(ctx context.Context, cfg Config, deps Deps) (*Session, error) {
	if !cfg.Role.Valid() {
		return nil, fmt.Errorf("chatsync: invalid role %q", cfg.Role)
	}
	if cfg.Role == model.SenderRoleAdmin && strings.TrimSpace(cfg.ConversationID) == "" {
		return nil, ErrConversationRequired
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewTempID == nil {
		deps.NewTempID = uuid.NewString
	}

	sctx, cancel := context.WithCancel(ctx)
	s := &Session{
		cfg:       cfg,
		store:     deps.Store,
		bus:       deps.Bus,
		logger:    deps.Logger.With(zap.String("role", string(cfg.Role)), zap.String("user_id", cfg.UserID)),
		now:       deps.Now,
		newTempID: deps.NewTempID,
		ctx:       sctx,
		cancel:    cancel,
		state:     StateIdle,
		seen:      make(map[string]struct{}),
		pending:   make(map[string]int),
		wake:      make(chan struct{}, 1),
		out:       make(chan Update),
	}

	sessionsActive.Inc()
	pumpsRunning.Add(1)
	go s.pump()
	go func() {
		<-sctx.Done()
		s.Close()
	}()

	return s, nil
}

func (s *Session) Updates() <-chan Update {
	return s.out
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		State:   s.state,
		Entries: append([]Entry(nil), s.entries...),
		Seq:     s.seq,
	}
	if s.conv != nil {
		conv := *s.conv
		snap.Conversation = &conv
	}
	if s.profile != nil {
		profile := *s.profile
		snap.Profile = &profile
	}
	return snap
}

// Open loads the conversation. A client without a conversation stays in
// Bootstrapping until its first send. On error the session returns to Idle.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateIdle:
	case StateClosed:
		s.mu.Unlock()
		return ErrClosed
	default:
		s.mu.Unlock()
		return ErrNotReady
	}
	s.state = StateBootstrapping
	s.mu.Unlock()

	err := s.bootstrap(ctx)
	if err != nil {
		s.mu.Lock()
		if s.state == StateBootstrapping {
			s.state = StateIdle
		}
		s.mu.Unlock()
	}
	return err
}

func (s *Session) bootstrap(ctx context.Context) error {
	s.attachMu.Lock()
	defer s.attachMu.Unlock()

	if s.cfg.Role == model.SenderRoleClient {
		conv, err := s.store.FindLatestConversation(ctx, s.cfg.UserID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("find conversation: %w", err)
		}
		return s.attach(ctx, conv)
	}

	conv, err := s.store.GetConversation(ctx, s.cfg.ConversationID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrConversationNotFound
	}
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}

	profile, err := s.store.GetProfile(ctx, conv.UserID)
	switch {
	case err == nil:
		s.mu.Lock()
		s.profile = &profile
		s.mu.Unlock()
	case errors.Is(err, store.ErrNotFound):
	default:
		return fmt.Errorf("load profile: %w", err)
	}

	return s.attach(ctx, conv)
}

// attach subscribes before reading history so no insert falls between the
// two; the seen set absorbs the overlap. Callers hold attachMu.
func (s *Session) attach(ctx context.Context, conv model.ConversationItem) error {
	sub, err := s.bus.Subscribe(s.ctx, realtime.MessagesTopic(conv.ID))
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	history, err := s.store.ListMessages(ctx, conv.ID, s.cfg.HistoryLimit)
	if err != nil {
		sub.Close()
		return fmt.Errorf("load history: %w", err)
	}

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		sub.Close()
		return ErrClosed
	}

	s.conv = &conv
	s.sub = sub
	for i := range s.entries {
		s.entries[i].Message.ConversationID = conv.ID
	}
	for _, msg := range history {
		s.mergeLocked(msg, fromHistory)
	}
	s.state = StateLive
	s.mu.Unlock()

	go s.listen(sub)
	return nil
}

func (s *Session) listen(sub *realtime.Subscription) {
	for env := range sub.C {
		msg, ok, err := store.DecodeMessageEvent(env.Payload)
		if err != nil {
			s.logger.Warn("undecodable chat event", zap.String("topic", env.Topic), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}

		s.mu.Lock()
		if s.state == StateLive {
			s.mergeLocked(msg, fromFeed)
		}
		s.mu.Unlock()
	}

	// The feed ended, either through Close or underneath us. Either way the
	// view has to be remounted.
	s.Close()
}

// mergeLocked applies a stored message at most once. s.mu must be held.
func (s *Session) mergeLocked(msg model.MessageItem, src mergeSource) {
	if s.conv == nil || msg.ConversationID != s.conv.ID {
		return
	}
	if _, dup := s.seen[msg.ID]; dup {
		if src == fromFeed {
			eventsDuplicate.Inc()
		}
		return
	}
	s.seen[msg.ID] = struct{}{}
	if src == fromFeed {
		eventsApplied.Inc()
	}

	if idx, ok := s.pending[msg.ClientMessageID]; ok && msg.ClientMessageID != "" {
		delete(s.pending, msg.ClientMessageID)
		s.entries[idx] = Entry{TempID: msg.ClientMessageID, Status: EntryConfirmed, Message: msg}
		s.resortLocked()
		entry := s.entries[s.indexOfLocked(msg.ID)]
		s.emitLocked(Update{Kind: UpdateConfirmed, Entry: &entry})
		return
	}

	entry := Entry{Status: EntryConfirmed, Message: msg}
	s.insertLocked(entry)
	if src != fromHistory {
		s.emitLocked(Update{Kind: UpdateMessage, Entry: &entry})
	}
}

func entryLess(a, b Entry) bool {
	return model.MessageLess(a.Message, b.Message)
}

func (s *Session) insertLocked(entry Entry) {
	idx := sort.Search(len(s.entries), func(i int) bool {
		return entryLess(entry, s.entries[i])
	})
	s.entries = append(s.entries, Entry{})
	copy(s.entries[idx+1:], s.entries[idx:])
	s.entries[idx] = entry
	s.reindexLocked()
}

// resortLocked restores order after a pending entry took its server timestamp.
func (s *Session) resortLocked() {
	if sort.SliceIsSorted(s.entries, func(i, j int) bool { return entryLess(s.entries[i], s.entries[j]) }) {
		return
	}
	sort.SliceStable(s.entries, func(i, j int) bool { return entryLess(s.entries[i], s.entries[j]) })
	s.reindexLocked()
}

func (s *Session) reindexLocked() {
	for i, e := range s.entries {
		if e.Status != EntryConfirmed {
			s.pending[e.TempID] = i
		}
	}
}

func (s *Session) indexOfLocked(messageID string) int {
	for i, e := range s.entries {
		if e.Message.ID == messageID {
			return i
		}
	}
	return -1
}

// Send appends a pending entry and writes it through the store. The client
// role may send before a conversation exists; the first send creates it.
func (s *Session) Send(ctx context.Context, content, tempID string) (Entry, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Entry{}, ErrEmptyMessage
	}

	s.mu.Lock()
	if err := s.sendableLocked(); err != nil {
		s.mu.Unlock()
		return Entry{}, err
	}

	tempID = strings.TrimSpace(tempID)
	if tempID == "" {
		tempID = s.newTempID()
	}
	if idx, ok := s.pending[tempID]; ok {
		entry := s.entries[idx]
		s.mu.Unlock()
		return entry, nil
	}

	convID := ""
	if s.conv != nil {
		convID = s.conv.ID
	}
	entry := Entry{
		TempID: tempID,
		Status: EntryPending,
		Message: model.MessageItem{
			ID:              tempID,
			ConversationID:  convID,
			SenderID:        s.cfg.UserID,
			SenderRole:      s.cfg.Role,
			Content:         content,
			ClientMessageID: tempID,
			CreatedAt:       model.FormatTimestamp(s.now()),
		},
	}
	s.insertLocked(entry)
	s.emitLocked(Update{Kind: UpdatePending, Entry: &entry})
	s.mu.Unlock()

	return s.deliver(ctx, tempID)
}

// Retry resends a failed entry with its original content.
func (s *Session) Retry(ctx context.Context, tempID string) (Entry, error) {
	s.mu.Lock()
	if err := s.sendableLocked(); err != nil {
		s.mu.Unlock()
		return Entry{}, err
	}

	idx, ok := s.pending[tempID]
	if !ok {
		s.mu.Unlock()
		return Entry{}, ErrUnknownMessage
	}
	if s.entries[idx].Status != EntryFailed {
		entry := s.entries[idx]
		s.mu.Unlock()
		return entry, nil
	}

	s.entries[idx].Status = EntryPending
	entry := s.entries[idx]
	s.emitLocked(Update{Kind: UpdatePending, Entry: &entry})
	s.mu.Unlock()

	return s.deliver(ctx, tempID)
}

func (s *Session) sendableLocked() error {
	switch s.state {
	case StateLive:
		return nil
	case StateBootstrapping:
		if s.cfg.Role == model.SenderRoleClient {
			return nil
		}
	}
	return ErrNotReady
}

func (s *Session) deliver(ctx context.Context, tempID string) (Entry, error) {
	convID, err := s.ensureConversation(ctx)
	if err != nil {
		return s.fail(tempID, err)
	}

	s.mu.Lock()
	idx, ok := s.pending[tempID]
	if !ok {
		// Already confirmed by the feed.
		entry := s.entryByTempLocked(tempID)
		s.mu.Unlock()
		return entry, nil
	}
	content := s.entries[idx].Message.Content
	s.mu.Unlock()

	msg, err := s.store.InsertMessage(ctx, store.NewMessage{
		ConversationID:  convID,
		SenderID:        s.cfg.UserID,
		Role:            s.cfg.Role,
		Content:         content,
		ClientMessageID: tempID,
	})
	if err != nil {
		return s.fail(tempID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateClosed {
		s.mergeLocked(msg, fromSend)
	}
	return s.entryByTempLocked(tempID), nil
}

func (s *Session) entryByTempLocked(tempID string) Entry {
	for _, e := range s.entries {
		if e.TempID == tempID {
			return e
		}
	}
	return Entry{}
}

func (s *Session) fail(tempID string, cause error) (Entry, error) {
	sendFailures.Inc()
	s.logger.Warn("chat send failed", zap.String("client_message_id", tempID), zap.Error(cause))

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := Entry{}
	if idx, ok := s.pending[tempID]; ok {
		s.entries[idx].Status = EntryFailed
		entry = s.entries[idx]
		s.emitLocked(Update{Kind: UpdateFailed, Entry: &entry})
	}
	return entry, fmt.Errorf("%w: %v", ErrSendFailed, cause)
}

func (s *Session) ensureConversation(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.conv != nil {
		id := s.conv.ID
		s.mu.Unlock()
		return id, nil
	}
	s.mu.Unlock()

	s.attachMu.Lock()
	defer s.attachMu.Unlock()

	s.mu.Lock()
	if s.conv != nil {
		id := s.conv.ID
		s.mu.Unlock()
		return id, nil
	}
	if s.state == StateClosed {
		s.mu.Unlock()
		return "", ErrClosed
	}
	s.mu.Unlock()

	conv, created, err := ResolveConversation(ctx, s.store, s.cfg.UserID, s.cfg.DefaultSubject)
	if err != nil {
		return "", fmt.Errorf("resolve conversation: %w", err)
	}
	if created {
		s.logger.Info("conversation created", zap.String("conversation_id", conv.ID))
	}

	if err := s.attach(ctx, conv); err != nil {
		return "", err
	}
	return conv.ID, nil
}

// Close releases the feed subscription and ends Updates. It is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	sub := s.sub
	s.sub = nil
	s.emitLocked(Update{Kind: UpdateClosed})
	s.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
	s.cancel()
}

// Discard closes a session nobody reads from and drains its remaining
// updates so the pump can exit.
func (s *Session) Discard() {
	s.Close()
	go func() {
		for range s.out {
		}
	}()
}

func (s *Session) emitLocked(u Update) {
	s.seq++
	u.Seq = s.seq
	s.queue = append(s.queue, u)
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// pump moves queued updates to out so emitters never block on the reader.
func (s *Session) pump() {
	defer func() {
		close(s.out)
		pumpsRunning.Add(-1)
		sessionsActive.Dec()
	}()
	for {
		s.mu.Lock()
		batch := s.queue
		s.queue = nil
		closed := s.state == StateClosed
		s.mu.Unlock()

		for _, u := range batch {
			s.out <- u
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-s.wake
	}
}
