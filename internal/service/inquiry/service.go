package inquiry

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"garment-portal-backend/internal/model"
	"garment-portal-backend/internal/store"
)

type ErrorCode string

const (
	ErrorCodeValidation ErrorCode = "validation_error"
	ErrorCodeInternal   ErrorCode = "internal_error"
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

// Form is the public contact form.
type Form struct {
	Name         string `json:"name" validate:"required"`
	Company      string `json:"company" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"required"`
	BusinessType string `json:"business_type" validate:"required,oneof=brand wholesaler dealer broker other"`
	Quantity     string `json:"quantity" validate:"required,oneof=500-1000 1000-3000 3000-5000 5000-10000 10000+"`
	ProductType  string `json:"product_type" validate:"omitempty,oneof=daily-wear festive embroidered printed custom multiple"`
	Message      string `json:"message" validate:"required"`
}

type Service struct {
	store    store.InquiryStore
	validate *validator.Validate
	now      func() time.Time
}

func New(st store.InquiryStore) *Service {
	return NewWithClock(st, time.Now)
}

func NewWithClock(st store.InquiryStore, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Service{store: st, validate: v, now: now}
}

// Submit stores a new inquiry with status "new".
func (s *Service) Submit(ctx context.Context, form Form) (model.InquiryItem, error) {
	form = normalize(form)
	if err := s.validate.Struct(form); err != nil {
		return model.InquiryItem{}, newError(ErrorCodeValidation, describe(err), err)
	}

	item := model.InquiryItem{
		ID:           uuid.NewString(),
		Name:         form.Name,
		Company:      form.Company,
		Email:        form.Email,
		Phone:        form.Phone,
		BusinessType: form.BusinessType,
		Quantity:     form.Quantity,
		ProductType:  form.ProductType,
		Message:      form.Message,
		Status:       model.InquiryStatusNew,
		CreatedAt:    model.FormatTimestamp(s.now()),
	}

	if err := s.store.CreateInquiry(ctx, item); err != nil {
		return model.InquiryItem{}, newError(ErrorCodeInternal, "failed to submit inquiry", err)
	}
	return item, nil
}

func normalize(form Form) Form {
	form.Name = strings.TrimSpace(form.Name)
	form.Company = strings.TrimSpace(form.Company)
	form.Email = strings.TrimSpace(form.Email)
	form.Phone = strings.TrimSpace(form.Phone)
	form.BusinessType = strings.TrimSpace(form.BusinessType)
	form.Quantity = strings.TrimSpace(form.Quantity)
	form.ProductType = strings.TrimSpace(form.ProductType)
	form.Message = strings.TrimSpace(form.Message)
	return form
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid inquiry"
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "a valid email address is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}
