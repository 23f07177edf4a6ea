package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"garment-portal-backend/internal/database"
	"garment-portal-backend/internal/model"
	"garment-portal-backend/internal/realtime"
)

const tracerName = "garment-portal/store"

// Dynamo implements Store on DynamoDB and publishes message inserts on bus.
type Dynamo struct {
	db     *database.Database
	bus    realtime.Bus
	logger *zap.Logger
	tracer trace.Tracer
	now    func() time.Time
}

func NewDynamo(db *database.Database, bus realtime.Bus, logger *zap.Logger) *Dynamo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dynamo{
		db:     db,
		bus:    bus,
		logger: logger,
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
	}
}

func (d *Dynamo) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return d.tracer.Start(ctx, "store."+op, trace.WithAttributes(attrs...))
}

func finish(span trace.Span, err error) {
	if err != nil && !errors.Is(err, ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func mapNotFound(err error) error {
	if database.IsNotFound(err) {
		return ErrNotFound
	}
	return err
}

func unmarshalAll[T any](items []map[string]types.AttributeValue) ([]T, error) {
	out := make([]T, 0, len(items))
	for _, item := range items {
		var v T
		if err := attributevalue.UnmarshalMap(item, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func attrS(v string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: v}
}

func (d *Dynamo) FindLatestConversation(ctx context.Context, userID string) (conv model.ConversationItem, err error) {
	ctx, span := d.start(ctx, "FindLatestConversation", attribute.String("user_id", userID))
	defer func() { finish(span, err) }()

	items, err := d.db.Client.QueryIndex(
		ctx,
		model.ConversationsTable,
		model.ConversationsByUserIndex,
		"user_id = :uid",
		map[string]types.AttributeValue{":uid": attrS(userID)},
		false,
		1,
	)
	if err != nil {
		return model.ConversationItem{}, err
	}
	if len(items) == 0 {
		return model.ConversationItem{}, ErrNotFound
	}

	if err := attributevalue.UnmarshalMap(items[0], &conv); err != nil {
		return model.ConversationItem{}, err
	}
	return conv, nil
}

func (d *Dynamo) CreateConversation(ctx context.Context, userID, subject string) (conv model.ConversationItem, err error) {
	ctx, span := d.start(ctx, "CreateConversation", attribute.String("user_id", userID))
	defer func() { finish(span, err) }()

	now := model.FormatTimestamp(d.now())
	conv = model.ConversationItem{
		ID:        uuid.NewString(),
		UserID:    userID,
		Subject:   subject,
		Status:    model.ConversationStatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := d.db.Client.PutItem(ctx, model.ConversationsTable, conv); err != nil {
		return model.ConversationItem{}, err
	}
	return conv, nil
}

func (d *Dynamo) GetConversation(ctx context.Context, id string) (conv model.ConversationItem, err error) {
	ctx, span := d.start(ctx, "GetConversation", attribute.String("conversation_id", id))
	defer func() { finish(span, err) }()

	err = d.db.Client.GetItem(ctx, model.ConversationsTable, database.StringKey("id", id), &conv)
	if err != nil {
		return model.ConversationItem{}, mapNotFound(err)
	}
	return conv, nil
}

func (d *Dynamo) ListMessages(ctx context.Context, conversationID string, limit int) (messages []model.MessageItem, err error) {
	ctx, span := d.start(ctx, "ListMessages",
		attribute.String("conversation_id", conversationID),
		attribute.Int("limit", limit),
	)
	defer func() { finish(span, err) }()

	values := map[string]types.AttributeValue{":cid": attrS(conversationID)}

	var items []map[string]types.AttributeValue
	if limit > 0 {
		items, err = d.db.Client.QueryIndex(ctx, model.MessagesTable, model.MessagesByConversationIdx,
			"conversation_id = :cid", values, false, limit)
	} else {
		items, err = d.db.Client.QueryAll(ctx, model.MessagesTable, model.MessagesByConversationIdx,
			"conversation_id = :cid", values, true)
	}
	if err != nil {
		return nil, err
	}

	messages, err = unmarshalAll[model.MessageItem](items)
	if err != nil {
		return nil, err
	}
	sortMessages(messages)
	return messages, nil
}

func (d *Dynamo) InsertMessage(ctx context.Context, msg NewMessage) (item model.MessageItem, err error) {
	ctx, span := d.start(ctx, "InsertMessage",
		attribute.String("conversation_id", msg.ConversationID),
		attribute.String("sender_role", string(msg.Role)),
	)
	defer func() { finish(span, err) }()

	msg, err = prepareMessage(msg)
	if err != nil {
		return model.MessageItem{}, err
	}

	now := model.FormatTimestamp(d.now())
	item = model.MessageItem{
		ID:              uuid.NewString(),
		ConversationID:  msg.ConversationID,
		SenderID:        msg.SenderID,
		SenderRole:      msg.Role,
		Content:         msg.Content,
		ClientMessageID: msg.ClientMessageID,
		CreatedAt:       now,
	}

	// The bump doubles as the existence check for the parent, and it only
	// lands together with the message.
	err = d.db.Client.PutItemWithParentUpdate(
		ctx,
		model.MessagesTable,
		item,
		model.ConversationsTable,
		database.StringKey("id", msg.ConversationID),
		"SET updated_at = :now",
		map[string]types.AttributeValue{":now": attrS(now)},
	)
	if err != nil {
		return model.MessageItem{}, mapNotFound(err)
	}

	announceInsert(ctx, d.bus, d.logger, item)
	return item, nil
}

func (d *Dynamo) ListConversationsWithClientInfo(ctx context.Context) (out []ConversationSummary, err error) {
	ctx, span := d.start(ctx, "ListConversationsWithClientInfo")
	defer func() { finish(span, err) }()

	items, err := d.db.Client.ScanAll(ctx, model.ConversationsTable)
	if err != nil {
		return nil, err
	}
	convs, err := unmarshalAll[model.ConversationItem](items)
	if err != nil {
		return nil, err
	}
	sortConversationsByActivity(convs)

	profileItems, err := d.db.Client.BatchGetByKeys(ctx, model.ProfilesTable, "user_id", distinctUserIDs(convs))
	if err != nil {
		return nil, err
	}
	profiles, err := unmarshalAll[model.ProfileItem](profileItems)
	if err != nil {
		return nil, err
	}

	byUser := make(map[string]model.ProfileItem, len(profiles))
	for _, p := range profiles {
		byUser[p.UserID] = p
	}
	span.SetAttributes(attribute.Int("conversations", len(convs)), attribute.Int("profiles", len(profiles)))

	return summarize(convs, byUser), nil
}

func (d *Dynamo) GetProfile(ctx context.Context, userID string) (profile model.ProfileItem, err error) {
	ctx, span := d.start(ctx, "GetProfile", attribute.String("user_id", userID))
	defer func() { finish(span, err) }()

	err = d.db.Client.GetItem(ctx, model.ProfilesTable, database.StringKey("user_id", userID), &profile)
	if err != nil {
		return model.ProfileItem{}, mapNotFound(err)
	}
	return profile, nil
}

func (d *Dynamo) PutProfile(ctx context.Context, profile model.ProfileItem) (err error) {
	ctx, span := d.start(ctx, "PutProfile", attribute.String("user_id", profile.UserID))
	defer func() { finish(span, err) }()

	return d.db.Client.PutItem(ctx, model.ProfilesTable, profile)
}

func (d *Dynamo) ListProfiles(ctx context.Context) (profiles []model.ProfileItem, err error) {
	ctx, span := d.start(ctx, "ListProfiles")
	defer func() { finish(span, err) }()

	items, err := d.db.Client.ScanAll(ctx, model.ProfilesTable)
	if err != nil {
		return nil, err
	}
	profiles, err = unmarshalAll[model.ProfileItem](items)
	if err != nil {
		return nil, err
	}
	sortProfiles(profiles)
	return profiles, nil
}

func (d *Dynamo) CreateInquiry(ctx context.Context, inquiry model.InquiryItem) (err error) {
	ctx, span := d.start(ctx, "CreateInquiry", attribute.String("inquiry_id", inquiry.ID))
	defer func() { finish(span, err) }()

	return d.db.Client.PutItem(ctx, model.InquiriesTable, inquiry)
}

func (d *Dynamo) GetInquiry(ctx context.Context, id string) (inquiry model.InquiryItem, err error) {
	ctx, span := d.start(ctx, "GetInquiry", attribute.String("inquiry_id", id))
	defer func() { finish(span, err) }()

	err = d.db.Client.GetItem(ctx, model.InquiriesTable, database.StringKey("id", id), &inquiry)
	if err != nil {
		return model.InquiryItem{}, mapNotFound(err)
	}
	return inquiry, nil
}

func (d *Dynamo) ListInquiries(ctx context.Context) (inquiries []model.InquiryItem, err error) {
	ctx, span := d.start(ctx, "ListInquiries")
	defer func() { finish(span, err) }()

	items, err := d.db.Client.ScanAll(ctx, model.InquiriesTable)
	if err != nil {
		return nil, err
	}
	inquiries, err = unmarshalAll[model.InquiryItem](items)
	if err != nil {
		return nil, err
	}
	sortInquiries(inquiries)
	return inquiries, nil
}

func (d *Dynamo) UpdateInquiryStatus(ctx context.Context, id string, status model.InquiryStatus) (inquiry model.InquiryItem, err error) {
	ctx, span := d.start(ctx, "UpdateInquiryStatus",
		attribute.String("inquiry_id", id),
		attribute.String("status", string(status)),
	)
	defer func() { finish(span, err) }()

	err = d.db.Client.UpdateExistingItem(
		ctx,
		model.InquiriesTable,
		database.StringKey("id", id),
		"SET #status = :status",
		map[string]types.AttributeValue{":status": attrS(string(status))},
		map[string]string{"#status": "status"},
		&inquiry,
	)
	if err != nil {
		return model.InquiryItem{}, mapNotFound(err)
	}
	return inquiry, nil
}

func (d *Dynamo) CreateOrder(ctx context.Context, order model.OrderItem) (err error) {
	ctx, span := d.start(ctx, "CreateOrder", attribute.String("order_id", order.ID))
	defer func() { finish(span, err) }()

	return d.db.Client.PutItem(ctx, model.OrdersTable, order)
}

func (d *Dynamo) ListOrdersByUser(ctx context.Context, userID string) (orders []model.OrderItem, err error) {
	ctx, span := d.start(ctx, "ListOrdersByUser", attribute.String("user_id", userID))
	defer func() { finish(span, err) }()

	items, err := d.db.Client.QueryAll(ctx, model.OrdersTable, model.OrdersByUserIndex,
		"user_id = :uid", map[string]types.AttributeValue{":uid": attrS(userID)}, false)
	if err != nil {
		return nil, err
	}
	orders, err = unmarshalAll[model.OrderItem](items)
	if err != nil {
		return nil, err
	}
	sortOrders(orders)
	return orders, nil
}

func (d *Dynamo) ListOrders(ctx context.Context) (orders []model.OrderItem, err error) {
	ctx, span := d.start(ctx, "ListOrders")
	defer func() { finish(span, err) }()

	items, err := d.db.Client.ScanAll(ctx, model.OrdersTable)
	if err != nil {
		return nil, err
	}
	orders, err = unmarshalAll[model.OrderItem](items)
	if err != nil {
		return nil, err
	}
	sortOrders(orders)
	return orders, nil
}

func (d *Dynamo) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) (order model.OrderItem, err error) {
	ctx, span := d.start(ctx, "UpdateOrderStatus",
		attribute.String("order_id", id),
		attribute.String("status", string(status)),
	)
	defer func() { finish(span, err) }()

	err = d.db.Client.UpdateExistingItem(
		ctx,
		model.OrdersTable,
		database.StringKey("id", id),
		"SET #status = :status, updated_at = :now",
		map[string]types.AttributeValue{
			":status": attrS(string(status)),
			":now":    attrS(model.FormatTimestamp(d.now())),
		},
		map[string]string{"#status": "status"},
		&order,
	)
	if err != nil {
		return model.OrderItem{}, mapNotFound(err)
	}
	return order, nil
}

func sortProfiles(profiles []model.ProfileItem) {
	sort.SliceStable(profiles, func(i, j int) bool {
		return profiles[i].CreatedAt > profiles[j].CreatedAt
	})
}

func sortInquiries(inquiries []model.InquiryItem) {
	sort.SliceStable(inquiries, func(i, j int) bool {
		return inquiries[i].CreatedAt > inquiries[j].CreatedAt
	})
}

func sortOrders(orders []model.OrderItem) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt > orders[j].CreatedAt
	})
}
