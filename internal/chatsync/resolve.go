package chatsync

import (
	"context"
	"errors"

	"garment-portal-backend/internal/model"
	"garment-portal-backend/internal/store"
)

// Store is what a session needs from persistence.
type Store interface {
	store.ConversationStore
	GetProfile(ctx context.Context, userID string) (model.ProfileItem, error)
}

// ResolveConversation returns the user's latest conversation, creating one
// with subject only when none exists.
func ResolveConversation(ctx context.Context, st store.ConversationStore, userID, subject string) (model.ConversationItem, bool, error) {
	conv, err := st.FindLatestConversation(ctx, userID)
	if err == nil {
		return conv, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return model.ConversationItem{}, false, err
	}

	conv, err = st.CreateConversation(ctx, userID, subject)
	if err != nil {
		return model.ConversationItem{}, false, err
	}
	return conv, true, nil
}
