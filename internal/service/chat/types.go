package chat

import (
	"garment-portal-backend/internal/model"
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

// ConversationResult is a client's view. Conversation is nil until the
// client sends a first message.
type ConversationResult struct {
	Conversation *model.ConversationItem `json:"conversation"`
	Messages     []model.MessageItem     `json:"messages"`
}

type AdminConversationResult struct {
	Conversation model.ConversationItem `json:"conversation"`
	Profile      *model.ProfileItem     `json:"profile,omitempty"`
	ClientName   string                 `json:"client_name"`
	ClientEmail  string                 `json:"client_email"`
	Messages     []model.MessageItem    `json:"messages"`
}

type MessageResult struct {
	Conversation model.ConversationItem `json:"conversation"`
	Message      model.MessageItem      `json:"message"`
}
