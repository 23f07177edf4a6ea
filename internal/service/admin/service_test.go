package admin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"garment-portal-backend/internal/model"
	"garment-portal-backend/internal/store"
)

func codeOf(t *testing.T, err error) ErrorCode {
	t.Helper()
	var adminErr *Error
	require.True(t, errors.As(err, &adminErr), "expected *admin.Error, got %v", err)
	return adminErr.Code
}

func seeded(t *testing.T) (*Service, *store.Memory) {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemory(nil, nil)

	profiles := []model.ProfileItem{
		{UserID: "u1", CompanyName: "Loom & Co", ContactName: "Asha Rao", Email: "asha@loom.test", CreatedAt: "2026-01-01T00:00:00.000000Z"},
		{UserID: "u2", CompanyName: "Indigo Mills", ContactName: "Ravi", Email: "ravi@indigo.test", CreatedAt: "2026-01-02T00:00:00.000000Z"},
	}
	for _, p := range profiles {
		require.NoError(t, st.PutProfile(ctx, p))
	}

	inquiries := []model.InquiryItem{
		{ID: "i1", Name: "Meera", Company: "Threadline", Email: "meera@thread.test", Status: model.InquiryStatusNew, CreatedAt: "2026-02-01T00:00:00.000000Z"},
		{ID: "i2", Name: "Karan", Company: "LOOMWORKS", Email: "karan@lw.test", Status: model.InquiryStatusContacted, CreatedAt: "2026-02-02T00:00:00.000000Z"},
	}
	for _, inq := range inquiries {
		require.NoError(t, st.CreateInquiry(ctx, inq))
	}

	fixed := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	return NewWithClock(st, func() time.Time { return fixed }), st
}

func TestListClientsFilter(t *testing.T) {
	svc, _ := seeded(t)
	ctx := context.Background()

	all, err := svc.ListClients(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "u2", all[0].UserID)

	hits, err := svc.ListClients(ctx, "  LOOM ")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "u1", hits[0].UserID)

	hits, err = svc.ListClients(ctx, "indigo.test")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "u2", hits[0].UserID)
}

func TestListInquiriesFilter(t *testing.T) {
	svc, _ := seeded(t)

	hits, err := svc.ListInquiries(context.Background(), "loom")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "i2", hits[0].ID)

	all, err := svc.ListInquiries(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "i2", all[0].ID)
}

func TestListConversationsDisplayDefaults(t *testing.T) {
	svc, st := seeded(t)
	ctx := context.Background()

	_, err := st.CreateConversation(ctx, "u1", "General Inquiry")
	require.NoError(t, err)
	_, err = st.CreateConversation(ctx, "ghost", "General Inquiry")
	require.NoError(t, err)

	views, err := svc.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, views, 2)

	byUser := map[string]ConversationView{}
	for _, v := range views {
		byUser[v.Conversation.UserID] = v
	}
	assert.Equal(t, "Asha Rao", byUser["u1"].ClientName)
	assert.Equal(t, "asha@loom.test", byUser["u1"].ClientEmail)
	assert.Equal(t, "Unknown Client", byUser["ghost"].ClientName)
	assert.Equal(t, "No email", byUser["ghost"].ClientEmail)
}

func TestOverview(t *testing.T) {
	svc, st := seeded(t)
	ctx := context.Background()
	_, err := st.CreateConversation(ctx, "u2", "General Inquiry")
	require.NoError(t, err)

	out, err := svc.Overview(ctx, "loom")
	require.NoError(t, err)
	assert.Len(t, out.Clients, 1)
	assert.Len(t, out.Inquiries, 1)
	assert.Len(t, out.Conversations, 1)
}

func TestUpdateInquiryStatusRefetches(t *testing.T) {
	svc, _ := seeded(t)
	ctx := context.Background()

	list, err := svc.UpdateInquiryStatus(ctx, "i1", model.InquiryStatusContacted)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, inq := range list {
		assert.Equal(t, model.InquiryStatusContacted, inq.Status)
	}

	list, err = svc.UpdateInquiryStatus(ctx, "i1", model.InquiryStatusContacted)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = svc.UpdateInquiryStatus(ctx, "i2", model.InquiryStatusConverted)
	require.NoError(t, err)

	list, err = svc.UpdateInquiryStatus(ctx, "i2", model.InquiryStatusNew)
	require.NoError(t, err)
	assert.Equal(t, model.InquiryStatusNew, statusOf(list, "i2"))

	list, err = svc.UpdateInquiryStatus(ctx, "i2", model.InquiryStatusRejected)
	require.NoError(t, err)
	assert.Equal(t, model.InquiryStatusRejected, statusOf(list, "i2"))

	list, err = svc.UpdateInquiryStatus(ctx, "i2", model.InquiryStatusContacted)
	require.NoError(t, err)
	assert.Equal(t, model.InquiryStatusContacted, statusOf(list, "i2"))

	_, err = svc.UpdateInquiryStatus(ctx, "i1", "archived")
	assert.Equal(t, ErrorCodeValidation, codeOf(t, err))

	_, err = svc.UpdateInquiryStatus(ctx, "missing", model.InquiryStatusRejected)
	assert.Equal(t, ErrorCodeNotFound, codeOf(t, err))
}

func statusOf(list []model.InquiryItem, id string) model.InquiryStatus {
	for _, inq := range list {
		if inq.ID == id {
			return inq.Status
		}
	}
	return ""
}

func TestCreateAndUpdateOrder(t *testing.T) {
	svc, st := seeded(t)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, CreateOrderParams{UserID: "u1", ProductType: "festive", Quantity: 1200})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Regexp(t, `^GP-260304-[0-9A-F]{6}$`, order.OrderNumber)

	stored, err := st.ListOrdersByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, stored, 1)

	updated, err := svc.UpdateOrderStatus(ctx, order.ID, model.OrderStatusQualityCheck)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusQualityCheck, updated.Status)

	_, err = svc.UpdateOrderStatus(ctx, order.ID, "lost")
	assert.Equal(t, ErrorCodeValidation, codeOf(t, err))

	_, err = svc.UpdateOrderStatus(ctx, "missing", model.OrderStatusDelivered)
	assert.Equal(t, ErrorCodeNotFound, codeOf(t, err))

	_, err = svc.CreateOrder(ctx, CreateOrderParams{UserID: "nobody", ProductType: "festive", Quantity: 1})
	assert.Equal(t, ErrorCodeNotFound, codeOf(t, err))

	_, err = svc.CreateOrder(ctx, CreateOrderParams{UserID: "u1", ProductType: "festive"})
	assert.Equal(t, ErrorCodeValidation, codeOf(t, err))
}
