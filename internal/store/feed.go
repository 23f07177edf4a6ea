package store

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"garment-portal-backend/internal/model"
	"garment-portal-backend/internal/realtime"
)

// announceInsert publishes a stored message on its conversation topic. The
// row is already durable, so a failed publish is logged and not returned.
func announceInsert(ctx context.Context, bus realtime.Bus, logger *zap.Logger, msg model.MessageItem) {
	if bus == nil {
		return
	}

	ev, err := realtime.NewInsertEvent(model.MessagesTable, msg)
	if err == nil {
		err = realtime.PublishJSON(ctx, bus, realtime.MessagesTopic(msg.ConversationID), ev)
	}
	if err != nil {
		logger.Warn("message insert not announced",
			zap.String("conversation_id", msg.ConversationID),
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
	}
}

// DecodeMessageEvent extracts a message row from an insert change event.
// ok is false for other tables or event types.
func DecodeMessageEvent(payload []byte) (model.MessageItem, bool, error) {
	ev, err := realtime.DecodeChangeEvent(payload)
	if err != nil {
		return model.MessageItem{}, false, err
	}
	if ev.Table != model.MessagesTable || ev.Type != realtime.ChangeInsert {
		return model.MessageItem{}, false, nil
	}

	var msg model.MessageItem
	if err := json.Unmarshal(ev.Record, &msg); err != nil {
		return model.MessageItem{}, false, fmt.Errorf("decode message record: %w", err)
	}
	return msg, true, nil
}
