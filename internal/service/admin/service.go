package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"garment-portal-backend/internal/model"
	"garment-portal-backend/internal/store"
)

type Service struct {
	store    store.Store
	validate *validator.Validate
	now      func() time.Time
}

func New(st store.Store) *Service {
	return NewWithClock(st, time.Now)
}

func NewWithClock(st store.Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:    st,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      now,
	}
}

// ListClients returns profiles newest first, filtered by a case-insensitive
// substring of company, contact or email.
func (s *Service) ListClients(ctx context.Context, query string) ([]model.ProfileItem, error) {
	profiles, err := s.store.ListProfiles(ctx)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to load clients", err)
	}

	needle := normalizeQuery(query)
	if needle == "" {
		return profiles, nil
	}

	out := make([]model.ProfileItem, 0, len(profiles))
	for _, p := range profiles {
		if matches(needle, p.CompanyName, p.ContactName, p.Email) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) ListInquiries(ctx context.Context, query string) ([]model.InquiryItem, error) {
	inquiries, err := s.store.ListInquiries(ctx)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to load inquiries", err)
	}

	needle := normalizeQuery(query)
	if needle == "" {
		return inquiries, nil
	}

	out := make([]model.InquiryItem, 0, len(inquiries))
	for _, inq := range inquiries {
		if matches(needle, inq.Name, inq.Company, inq.Email) {
			out = append(out, inq)
		}
	}
	return out, nil
}

// ListConversations returns conversations by latest activity with client
// names and emails defaulted for display.
func (s *Service) ListConversations(ctx context.Context) ([]ConversationView, error) {
	summaries, err := s.store.ListConversationsWithClientInfo(ctx)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to load conversations", err)
	}

	for i := range summaries {
		summaries[i].ClientName = store.DisplayName(summaries[i].ClientName)
		summaries[i].ClientEmail = store.DisplayEmail(summaries[i].ClientEmail)
	}
	return summaries, nil
}

// Overview loads the three console tabs concurrently. query filters clients
// and inquiries.
func (s *Service) Overview(ctx context.Context, query string) (Overview, error) {
	var out Overview

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Clients, err = s.ListClients(gctx, query)
		return err
	})
	g.Go(func() (err error) {
		out.Inquiries, err = s.ListInquiries(gctx, query)
		return err
	})
	g.Go(func() (err error) {
		out.Conversations, err = s.ListConversations(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return out, nil
}

// UpdateInquiryStatus writes any valid status, a move back to new included,
// and returns the full, freshly loaded inquiry list.
func (s *Service) UpdateInquiryStatus(ctx context.Context, id string, status model.InquiryStatus) ([]model.InquiryItem, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, newError(ErrorCodeValidation, "inquiry id is required", nil)
	}
	if !status.Valid() {
		return nil, newError(ErrorCodeValidation, fmt.Sprintf("invalid inquiry status %q", status), nil)
	}

	if _, err := s.store.UpdateInquiryStatus(ctx, id, status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newError(ErrorCodeNotFound, "inquiry not found", err)
		}
		return nil, newError(ErrorCodeInternal, "failed to update inquiry", err)
	}

	inquiries, err := s.store.ListInquiries(ctx)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to load inquiries", err)
	}
	return inquiries, nil
}

func (s *Service) CreateOrder(ctx context.Context, params CreateOrderParams) (model.OrderItem, error) {
	params.UserID = strings.TrimSpace(params.UserID)
	params.ProductType = strings.TrimSpace(params.ProductType)
	params.Notes = strings.TrimSpace(params.Notes)

	if err := s.validate.Struct(params); err != nil {
		return model.OrderItem{}, newError(ErrorCodeValidation, describeOrderValidation(err), err)
	}

	if _, err := s.store.GetProfile(ctx, params.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.OrderItem{}, newError(ErrorCodeNotFound, "client not found", err)
		}
		return model.OrderItem{}, newError(ErrorCodeInternal, "failed to load client", err)
	}

	id := uuid.New()
	now := model.FormatTimestamp(s.now())
	order := model.OrderItem{
		ID:          id.String(),
		UserID:      params.UserID,
		OrderNumber: orderNumber(s.now(), id),
		ProductType: params.ProductType,
		Quantity:    params.Quantity,
		Status:      model.OrderStatusPending,
		Notes:       params.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.CreateOrder(ctx, order); err != nil {
		return model.OrderItem{}, newError(ErrorCodeInternal, "failed to create order", err)
	}
	return order, nil
}

func (s *Service) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) (model.OrderItem, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return model.OrderItem{}, newError(ErrorCodeValidation, "order id is required", nil)
	}
	if !status.Valid() {
		return model.OrderItem{}, newError(ErrorCodeValidation, fmt.Sprintf("invalid order status %q", status), nil)
	}

	order, err := s.store.UpdateOrderStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.OrderItem{}, newError(ErrorCodeNotFound, "order not found", err)
		}
		return model.OrderItem{}, newError(ErrorCodeInternal, "failed to update order", err)
	}
	return order, nil
}

// ListOrders is used by the operator CLI.
func (s *Service) ListOrders(ctx context.Context) ([]model.OrderItem, error) {
	orders, err := s.store.ListOrders(ctx)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to load orders", err)
	}
	return orders, nil
}

func orderNumber(at time.Time, id uuid.UUID) string {
	return fmt.Sprintf("GP-%s-%s", at.UTC().Format("060102"), strings.ToUpper(id.String()[:6]))
}

func normalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

func matches(needle string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func describeOrderValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid order"
	}
	switch verrs[0].Field() {
	case "UserID":
		return "user id is required"
	case "ProductType":
		return "product type is required"
	case "Quantity":
		return "quantity must be greater than zero"
	}
	return "invalid order"
}
