package admin

import (
	"garment-portal-backend/internal/model"
	"garment-portal-backend/internal/store"
)

type ErrorCode string

const (
	ErrorCodeValidation ErrorCode = "validation_error"
	ErrorCodeNotFound   ErrorCode = "not_found"
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

// ConversationView carries display-ready client info.
type ConversationView = store.ConversationSummary

type Overview struct {
	Clients       []model.ProfileItem `json:"clients"`
	Inquiries     []model.InquiryItem `json:"inquiries"`
	Conversations []ConversationView  `json:"conversations"`
}

type CreateOrderParams struct {
	UserID      string `json:"user_id" validate:"required"`
	ProductType string `json:"product_type" validate:"required"`
	Quantity    int    `json:"quantity" validate:"gt=0"`
	Notes       string `json:"notes"`
}
