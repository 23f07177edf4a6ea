package identity

import (
	"errors"

	internaljwt "garment-portal-backend/internal/jwt"
)

var (
	// ErrNoSession means the caller presented no token at all.
	ErrNoSession  = errors.New("no active session")
	ErrNotFound   = errors.New("identity repository: not found")
	ErrUserExists = errors.New("identity repository: user exists")
	errNotAdmin   = errors.New("identity is not on the admin allow-list")
)

type ErrorCode string

const (
	ErrorCodeValidation   ErrorCode = "validation_error"
	ErrorCodeUnauthorized ErrorCode = "unauthorized"
	ErrorCodeForbidden    ErrorCode = "forbidden"
	ErrorCodeConflict     ErrorCode = "conflict"
	ErrorCodeInternal     ErrorCode = "internal_error"
)

const (
	MessageInvalidCredentials = "invalid login credentials"
	MessageUserExists         = "user already registered"
	MessageNotAdmin           = "You are not authorized as admin"
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

type Identity struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
}

type Session struct {
	Identity Identity                  `json:"user"`
	Tokens   internaljwt.TokenResponse `json:"tokens"`
}

type SignUpParams struct {
	Email        string `validate:"required,email"`
	Password     string `validate:"required,min=6"`
	ContactName  string `validate:"required"`
	CompanyName  string `validate:"required"`
	Phone        string
	BusinessType string `validate:"omitempty,oneof=brand wholesaler dealer broker other"`
}
