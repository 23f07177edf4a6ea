package portalctl

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"garment-portal-backend/internal/model"
	"garment-portal-backend/internal/realtime"
	"garment-portal-backend/internal/service/admin"
	"garment-portal-backend/internal/store"
)

type fakeTables struct {
	existing map[string]bool
}

func (f *fakeTables) EnsureTables(ctx context.Context, defs []model.TableDefinition) ([]string, error) {
	var created []string
	for _, def := range defs {
		if !f.existing[def.Name] {
			f.existing[def.Name] = true
			created = append(created, def.Name)
		}
	}
	return created, nil
}

func setup(t *testing.T) (*store.Memory, *fakeTables, func(args ...string) (string, error)) {
	t.Helper()

	bus := realtime.NewMemoryBus()
	t.Cleanup(bus.Close)
	st := store.NewMemory(bus, nil)
	tables := &fakeTables{existing: map[string]bool{}}

	open := func(ctx context.Context, configPath string) (*Env, error) {
		return &Env{Admin: admin.New(st), Tables: tables}, nil
	}

	exec := func(args ...string) (string, error) {
		var out bytes.Buffer
		root := New(open)
		root.SetOut(&out)
		root.SetErr(&out)
		root.SetArgs(args)
		err := root.ExecuteContext(context.Background())
		return out.String(), err
	}
	return st, tables, exec
}

func TestTablesCreate(t *testing.T) {
	_, tables, exec := setup(t)

	out, err := exec("tables", "create")
	require.NoError(t, err)
	for _, def := range model.Tables() {
		assert.Contains(t, out, "created "+def.Name)
		assert.True(t, tables.existing[def.Name])
	}

	out, err = exec("tables", "create")
	require.NoError(t, err)
	assert.Equal(t, "all tables exist\n", out)
}

func TestInquiriesListAndSetStatus(t *testing.T) {
	st, _, exec := setup(t)
	ctx := context.Background()

	require.NoError(t, st.CreateInquiry(ctx, model.InquiryItem{ID: "inq-1", Name: "Meera", Status: model.InquiryStatusNew, CreatedAt: "2026-01-01T00:00:00.000000Z"}))
	require.NoError(t, st.CreateInquiry(ctx, model.InquiryItem{ID: "inq-2", Name: "Ravi", Status: model.InquiryStatusContacted, CreatedAt: "2026-01-02T00:00:00.000000Z"}))

	out, err := exec("inquiries", "list", "--status", "new")
	require.NoError(t, err)
	var listed []model.InquiryItem
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "inq-1", listed[0].ID)

	out, err = exec("inquiries", "set-status", "inq-1", "contacted")
	require.NoError(t, err)
	assert.Contains(t, out, "inquiry inq-1 is now contacted")

	got, err := st.GetInquiry(ctx, "inq-1")
	require.NoError(t, err)
	assert.Equal(t, model.InquiryStatusContacted, got.Status)

	_, err = exec("inquiries", "set-status", "inq-1", "bogus")
	assert.Error(t, err)
}

func TestOrdersCreateAndAdvance(t *testing.T) {
	st, _, exec := setup(t)
	ctx := context.Background()
	require.NoError(t, st.PutProfile(ctx, model.ProfileItem{UserID: "user-1", ContactName: "Asha"}))

	_, err := exec("orders", "create", "--user", "nobody", "--product", "festive", "--quantity", "100")
	assert.Error(t, err)

	out, err := exec("orders", "create", "--user", "user-1", "--product", "festive", "--quantity", "1500")
	require.NoError(t, err)
	var order model.OrderItem
	require.NoError(t, json.Unmarshal([]byte(out), &order))
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Regexp(t, `^GP-\d{6}-[0-9A-F]{6}$`, order.OrderNumber)

	out, err = exec("orders", "set-status", order.ID, "production")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &order))
	assert.Equal(t, model.OrderStatusProduction, order.Status)

	orders, err := st.ListOrdersByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, orders, 1)
}
