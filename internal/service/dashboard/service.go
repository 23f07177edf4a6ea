package dashboard

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"garment-portal-backend/internal/identity"
	"garment-portal-backend/internal/model"
	"garment-portal-backend/internal/store"
)

type ErrorCode string

const (
	ErrorCodeInternal ErrorCode = "internal_error"
)

type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

type Store interface {
	GetProfile(ctx context.Context, userID string) (model.ProfileItem, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]model.OrderItem, error)
}

type OrderView struct {
	model.OrderItem
	// Step is the index into Steps, or -1 for a cancelled order.
	Step int `json:"step"`
}

type Result struct {
	Profile   *model.ProfileItem  `json:"profile"`
	Orders    []OrderView         `json:"orders"`
	Active    int                 `json:"active_orders"`
	Completed int                 `json:"completed_orders"`
	Steps     []model.OrderStatus `json:"steps"`
}

type Service struct {
	store Store
}

func New(st Store) *Service {
	return &Service{store: st}
}

// Load fetches the caller's profile and orders in parallel.
func (s *Service) Load(ctx context.Context, id identity.Identity) (Result, error) {
	var (
		profile *model.ProfileItem
		orders  []model.OrderItem
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.store.GetProfile(gctx, id.UserID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return newError(ErrorCodeInternal, "failed to load profile", err)
		}
		profile = &p
		return nil
	})
	g.Go(func() error {
		o, err := s.store.ListOrdersByUser(gctx, id.UserID)
		if err != nil {
			return newError(ErrorCodeInternal, "failed to load orders", err)
		}
		orders = o
		return nil
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	result := Result{
		Profile: profile,
		Orders:  make([]OrderView, 0, len(orders)),
		Steps:   model.OrderSteps,
	}
	for _, o := range orders {
		result.Orders = append(result.Orders, OrderView{OrderItem: o, Step: o.Status.Step()})
		if o.Status.Active() {
			result.Active++
		}
		if o.Status == model.OrderStatusDelivered {
			result.Completed++
		}
	}
	return result, nil
}
