// Package store is the persistence boundary for conversations, messages,
// profiles, inquiries and orders. Message inserts are announced on the
// realtime bus so live chat sessions can merge them.
package store

import (
	"context"
	"errors"
	"sort"
	"strings"

	"garment-portal-backend/internal/model"
)

var (
	ErrNotFound     = errors.New("store: not found")
	ErrEmptyContent = errors.New("store: message content is empty")
	ErrInvalidRole  = errors.New("store: invalid sender role")
)

type NewMessage struct {
	ConversationID  string
	SenderID        string
	Role            model.SenderRole
	Content         string
	ClientMessageID string
}

// ConversationSummary joins a conversation with its owner's profile. The
// client fields are empty when the owner has no profile.
type ConversationSummary struct {
	Conversation model.ConversationItem `json:"conversation"`
	ClientName   string                 `json:"client_name"`
	ClientEmail  string                 `json:"client_email"`
}

const (
	UnknownClientName  = "Unknown Client"
	UnknownClientEmail = "No email"
)

func DisplayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return UnknownClientName
	}
	return name
}

func DisplayEmail(email string) string {
	if strings.TrimSpace(email) == "" {
		return UnknownClientEmail
	}
	return email
}

type ConversationStore interface {
	FindLatestConversation(ctx context.Context, userID string) (model.ConversationItem, error)
	CreateConversation(ctx context.Context, userID, subject string) (model.ConversationItem, error)
	GetConversation(ctx context.Context, id string) (model.ConversationItem, error)
	// ListMessages returns messages oldest first. limit <= 0 returns all of
	// them; otherwise only the newest limit messages.
	ListMessages(ctx context.Context, conversationID string, limit int) ([]model.MessageItem, error)
	InsertMessage(ctx context.Context, msg NewMessage) (model.MessageItem, error)
	ListConversationsWithClientInfo(ctx context.Context) ([]ConversationSummary, error)
}

type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (model.ProfileItem, error)
	PutProfile(ctx context.Context, profile model.ProfileItem) error
	ListProfiles(ctx context.Context) ([]model.ProfileItem, error)
}

type InquiryStore interface {
	CreateInquiry(ctx context.Context, inquiry model.InquiryItem) error
	GetInquiry(ctx context.Context, id string) (model.InquiryItem, error)
	ListInquiries(ctx context.Context) ([]model.InquiryItem, error)
	UpdateInquiryStatus(ctx context.Context, id string, status model.InquiryStatus) (model.InquiryItem, error)
}

type OrderStore interface {
	CreateOrder(ctx context.Context, order model.OrderItem) error
	ListOrdersByUser(ctx context.Context, userID string) ([]model.OrderItem, error)
	ListOrders(ctx context.Context) ([]model.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) (model.OrderItem, error)
}

type Store interface {
	ConversationStore
	ProfileStore
	InquiryStore
	OrderStore
}

var (
	_ Store = (*Dynamo)(nil)
	_ Store = (*Memory)(nil)
)

// prepareMessage validates and normalizes an insert request.
func prepareMessage(msg NewMessage) (NewMessage, error) {
	msg.Content = strings.TrimSpace(msg.Content)
	if msg.Content == "" {
		return msg, ErrEmptyContent
	}
	if !msg.Role.Valid() {
		return msg, ErrInvalidRole
	}
	msg.ClientMessageID = strings.TrimSpace(msg.ClientMessageID)
	return msg, nil
}

func sortMessages(messages []model.MessageItem) {
	sort.SliceStable(messages, func(i, j int) bool {
		return model.MessageLess(messages[i], messages[j])
	})
}

// latestMessages keeps the newest limit entries of an ascending slice.
func latestMessages(messages []model.MessageItem, limit int) []model.MessageItem {
	if limit <= 0 || len(messages) <= limit {
		return messages
	}
	return messages[len(messages)-limit:]
}

func sortConversationsByActivity(convs []model.ConversationItem) {
	sort.SliceStable(convs, func(i, j int) bool {
		if convs[i].UpdatedAt != convs[j].UpdatedAt {
			return convs[i].UpdatedAt > convs[j].UpdatedAt
		}
		return convs[i].ID < convs[j].ID
	})
}

func summarize(convs []model.ConversationItem, profiles map[string]model.ProfileItem) []ConversationSummary {
	out := make([]ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		summary := ConversationSummary{Conversation: conv}
		if p, ok := profiles[conv.UserID]; ok {
			summary.ClientName = p.ContactName
			summary.ClientEmail = p.Email
		}
		out = append(out, summary)
	}
	return out
}

func distinctUserIDs(convs []model.ConversationItem) []string {
	seen := make(map[string]struct{}, len(convs))
	ids := make([]string, 0, len(convs))
	for _, conv := range convs {
		if _, ok := seen[conv.UserID]; ok {
			continue
		}
		seen[conv.UserID] = struct{}{}
		ids = append(ids, conv.UserID)
	}
	return ids
}
