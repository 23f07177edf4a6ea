package chat

import (
	"context"
	"errors"
	"strings"

	"garment-portal-backend/internal/chatsync"
	"garment-portal-backend/internal/config"
	"garment-portal-backend/internal/identity"
	"garment-portal-backend/internal/model"
	"garment-portal-backend/internal/store"
)

type Service struct {
	store          chatsync.Store
	defaultSubject string
	widgetHistory  int
}

func New(st chatsync.Store, cfg config.ChatConfig) *Service {
	subject := cfg.DefaultSubject
	if subject == "" {
		subject = config.DefaultChatSubject
	}
	history := cfg.WidgetHistory
	if history <= 0 {
		history = config.DefaultWidgetHistory
	}

	return &Service{
		store:          st,
		defaultSubject: subject,
		widgetHistory:  history,
	}
}

func (s *Service) WidgetHistory() int {
	return s.widgetHistory
}

func (s *Service) DefaultSubject() string {
	return s.defaultSubject
}

// ClientConversation returns the caller's latest conversation with up to
// limit of its newest messages. It never creates a conversation.
func (s *Service) ClientConversation(ctx context.Context, id identity.Identity, limit int) (ConversationResult, error) {
	conv, err := s.store.FindLatestConversation(ctx, id.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return ConversationResult{Messages: []model.MessageItem{}}, nil
	}
	if err != nil {
		return ConversationResult{}, newError(ErrorCodeInternal, "failed to load conversation", err)
	}

	messages, err := s.store.ListMessages(ctx, conv.ID, limit)
	if err != nil {
		return ConversationResult{}, newError(ErrorCodeInternal, "failed to load messages", err)
	}

	return ConversationResult{Conversation: &conv, Messages: messages}, nil
}

func (s *Service) WidgetConversation(ctx context.Context, id identity.Identity) (ConversationResult, error) {
	return s.ClientConversation(ctx, id, s.widgetHistory)
}

// ClientSend posts as the client, creating the conversation on first use.
func (s *Service) ClientSend(ctx context.Context, id identity.Identity, content, clientMessageID string) (MessageResult, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return MessageResult{}, newError(ErrorCodeValidation, "message cannot be empty", store.ErrEmptyContent)
	}

	conv, _, err := chatsync.ResolveConversation(ctx, s.store, id.UserID, s.defaultSubject)
	if err != nil {
		return MessageResult{}, newError(ErrorCodeInternal, "failed to start conversation", err)
	}

	return s.insert(ctx, conv, store.NewMessage{
		ConversationID:  conv.ID,
		SenderID:        id.UserID,
		Role:            model.SenderRoleClient,
		Content:         content,
		ClientMessageID: clientMessageID,
	})
}

func (s *Service) AdminConversation(ctx context.Context, conversationID string) (AdminConversationResult, error) {
	conv, err := s.getConversation(ctx, conversationID)
	if err != nil {
		return AdminConversationResult{}, err
	}

	result := AdminConversationResult{Conversation: conv}

	profile, err := s.store.GetProfile(ctx, conv.UserID)
	switch {
	case err == nil:
		result.Profile = &profile
		result.ClientName = profile.ContactName
		result.ClientEmail = profile.Email
	case errors.Is(err, store.ErrNotFound):
	default:
		return AdminConversationResult{}, newError(ErrorCodeInternal, "failed to load client profile", err)
	}
	result.ClientName = store.DisplayName(result.ClientName)
	result.ClientEmail = store.DisplayEmail(result.ClientEmail)

	messages, err := s.store.ListMessages(ctx, conv.ID, 0)
	if err != nil {
		return AdminConversationResult{}, newError(ErrorCodeInternal, "failed to load messages", err)
	}
	result.Messages = messages

	return result, nil
}

func (s *Service) AdminSend(ctx context.Context, id identity.Identity, conversationID, content, clientMessageID string) (MessageResult, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return MessageResult{}, newError(ErrorCodeValidation, "message cannot be empty", store.ErrEmptyContent)
	}

	conv, err := s.getConversation(ctx, conversationID)
	if err != nil {
		return MessageResult{}, err
	}

	return s.insert(ctx, conv, store.NewMessage{
		ConversationID:  conv.ID,
		SenderID:        id.UserID,
		Role:            model.SenderRoleAdmin,
		Content:         content,
		ClientMessageID: clientMessageID,
	})
}

func (s *Service) getConversation(ctx context.Context, conversationID string) (model.ConversationItem, error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return model.ConversationItem{}, newError(ErrorCodeValidation, "conversation id is required", nil)
	}

	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.ConversationItem{}, newError(ErrorCodeNotFound, "conversation not found", err)
		}
		return model.ConversationItem{}, newError(ErrorCodeInternal, "failed to load conversation", err)
	}
	return conv, nil
}

func (s *Service) insert(ctx context.Context, conv model.ConversationItem, msg store.NewMessage) (MessageResult, error) {
	message, err := s.store.InsertMessage(ctx, msg)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrEmptyContent):
			return MessageResult{}, newError(ErrorCodeValidation, "message cannot be empty", err)
		case errors.Is(err, store.ErrNotFound):
			return MessageResult{}, newError(ErrorCodeNotFound, "conversation not found", err)
		}
		return MessageResult{}, newError(ErrorCodeInternal, "failed to send message", err)
	}

	conv.UpdatedAt = message.CreatedAt
	return MessageResult{Conversation: conv, Message: message}, nil
}
