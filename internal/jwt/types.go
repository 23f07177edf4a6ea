package jwt

import (
	"errors"
	"time"
)

type Role int

const (
	RoleUser Role = iota
)

var (
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenRevoked        = errors.New("token revoked")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

type RegisterUser struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type User struct {
	Id           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
}

// Claims are the verified contents of an access token.
type Claims struct {
	UserID    string
	Email     string
	TokenID   string
	ExpiresAt time.Time
}
