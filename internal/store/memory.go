package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"garment-portal-backend/internal/model"
	"garment-portal-backend/internal/realtime"
)

// Memory implements Store with mutex-guarded maps. It publishes message
// inserts on its bus exactly like Dynamo does.
type Memory struct {
	mu            sync.Mutex
	conversations map[string]model.ConversationItem
	messages      map[string][]model.MessageItem
	profiles      map[string]model.ProfileItem
	inquiries     map[string]model.InquiryItem
	orders        map[string]model.OrderItem

	bus    realtime.Bus
	logger *zap.Logger
	now    func() time.Time

	failInserts error
}

func NewMemory(bus realtime.Bus, now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{
		conversations: make(map[string]model.ConversationItem),
		messages:      make(map[string][]model.MessageItem),
		profiles:      make(map[string]model.ProfileItem),
		inquiries:     make(map[string]model.InquiryItem),
		orders:        make(map[string]model.OrderItem),
		bus:           bus,
		logger:        zap.NewNop(),
		now:           now,
	}
}

// SetFailInserts makes InsertMessage fail with err until reset with nil.
func (m *Memory) SetFailInserts(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failInserts = err
}

func (m *Memory) FindLatestConversation(ctx context.Context, userID string) (model.ConversationItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest model.ConversationItem
	found := false
	for _, conv := range m.conversations {
		if conv.UserID != userID {
			continue
		}
		if !found || conv.CreatedAt > latest.CreatedAt || (conv.CreatedAt == latest.CreatedAt && conv.ID > latest.ID) {
			latest = conv
			found = true
		}
	}
	if !found {
		return model.ConversationItem{}, ErrNotFound
	}
	return latest, nil
}

func (m *Memory) CreateConversation(ctx context.Context, userID, subject string) (model.ConversationItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := model.FormatTimestamp(m.now())
	conv := model.ConversationItem{
		ID:        uuid.NewString(),
		UserID:    userID,
		Subject:   subject,
		Status:    model.ConversationStatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.conversations[conv.ID] = conv
	return conv, nil
}

// PutConversation stores conv as-is.
func (m *Memory) PutConversation(conv model.ConversationItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations[conv.ID] = conv
}

func (m *Memory) GetConversation(ctx context.Context, id string) (model.ConversationItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[id]
	if !ok {
		return model.ConversationItem{}, ErrNotFound
	}
	return conv, nil
}

// CountConversations reports how many conversations userID owns.
func (m *Memory) CountConversations(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, conv := range m.conversations {
		if conv.UserID == userID {
			n++
		}
	}
	return n
}

func (m *Memory) ListMessages(ctx context.Context, conversationID string, limit int) ([]model.MessageItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := append([]model.MessageItem(nil), m.messages[conversationID]...)
	sortMessages(all)
	return latestMessages(all, limit), nil
}

func (m *Memory) InsertMessage(ctx context.Context, msg NewMessage) (model.MessageItem, error) {
	msg, err := prepareMessage(msg)
	if err != nil {
		return model.MessageItem{}, err
	}

	m.mu.Lock()
	if m.failInserts != nil {
		err := m.failInserts
		m.mu.Unlock()
		return model.MessageItem{}, err
	}

	conv, ok := m.conversations[msg.ConversationID]
	if !ok {
		m.mu.Unlock()
		return model.MessageItem{}, ErrNotFound
	}

	now := model.FormatTimestamp(m.now())
	item := model.MessageItem{
		ID:              uuid.NewString(),
		ConversationID:  msg.ConversationID,
		SenderID:        msg.SenderID,
		SenderRole:      msg.Role,
		Content:         msg.Content,
		ClientMessageID: msg.ClientMessageID,
		CreatedAt:       now,
	}
	m.messages[msg.ConversationID] = append(m.messages[msg.ConversationID], item)
	conv.UpdatedAt = now
	m.conversations[conv.ID] = conv
	m.mu.Unlock()

	announceInsert(ctx, m.bus, m.logger, item)
	return item, nil
}

func (m *Memory) ListConversationsWithClientInfo(ctx context.Context) ([]ConversationSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	convs := make([]model.ConversationItem, 0, len(m.conversations))
	for _, conv := range m.conversations {
		convs = append(convs, conv)
	}
	sortConversationsByActivity(convs)

	profiles := make(map[string]model.ProfileItem)
	for _, id := range distinctUserIDs(convs) {
		if p, ok := m.profiles[id]; ok {
			profiles[id] = p
		}
	}
	return summarize(convs, profiles), nil
}

func (m *Memory) GetProfile(ctx context.Context, userID string) (model.ProfileItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[userID]
	if !ok {
		return model.ProfileItem{}, ErrNotFound
	}
	return p, nil
}

func (m *Memory) PutProfile(ctx context.Context, profile model.ProfileItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[profile.UserID] = profile
	return nil
}

func (m *Memory) ListProfiles(ctx context.Context) ([]model.ProfileItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.ProfileItem, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, p)
	}
	sortProfiles(out)
	return out, nil
}

func (m *Memory) CreateInquiry(ctx context.Context, inquiry model.InquiryItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inquiries[inquiry.ID] = inquiry
	return nil
}

func (m *Memory) GetInquiry(ctx context.Context, id string) (model.InquiryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inq, ok := m.inquiries[id]
	if !ok {
		return model.InquiryItem{}, ErrNotFound
	}
	return inq, nil
}

func (m *Memory) ListInquiries(ctx context.Context) ([]model.InquiryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.InquiryItem, 0, len(m.inquiries))
	for _, inq := range m.inquiries {
		out = append(out, inq)
	}
	sortInquiries(out)
	return out, nil
}

func (m *Memory) UpdateInquiryStatus(ctx context.Context, id string, status model.InquiryStatus) (model.InquiryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inq, ok := m.inquiries[id]
	if !ok {
		return model.InquiryItem{}, ErrNotFound
	}
	inq.Status = status
	m.inquiries[id] = inq
	return inq, nil
}

func (m *Memory) CreateOrder(ctx context.Context, order model.OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = order
	return nil
}

func (m *Memory) ListOrdersByUser(ctx context.Context, userID string) ([]model.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.OrderItem, 0)
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sortOrders(out)
	return out, nil
}

func (m *Memory) ListOrders(ctx context.Context) ([]model.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.OrderItem, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, o)
	}
	sortOrders(out)
	return out, nil
}

func (m *Memory) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) (model.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return model.OrderItem{}, ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = model.FormatTimestamp(m.now())
	m.orders[id] = o
	return o, nil
}
