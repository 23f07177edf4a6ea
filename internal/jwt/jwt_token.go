package jwt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"

	"garment-portal-backend/internal/config"
	"garment-portal-backend/utils"
)

const (
	refreshKeyPrefix = "refresh:"
	revokedKeyPrefix = "revoked:"
)

// Manager issues and verifies access tokens and keeps refresh tokens and
// revoked token ids in Redis.
type Manager struct {
	secrets    map[Role]string
	accessTTL  time.Duration
	refreshTTL time.Duration
	redis      *redis.Client
	now        func() time.Time
}

func NewManager(cfg config.AuthConfig, client *redis.Client) *Manager {
	return &Manager{
		secrets:    map[Role]string{RoleUser: cfg.UserSecret},
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		redis:      client,
		now:        time.Now,
	}
}

func NewAuthRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.AuthAddr,
		Password: cfg.AuthPassword,
		DB:       0,
	})
}

func appendRoleChar(token string, role Role) string {
	switch role {
	case RoleUser:
		return token + "1"
	}
	return token
}

func expectedRoleChar(role Role) string {
	switch role {
	case RoleUser:
		return "1"
	}
	return ""
}

func stripRoleChar(token string, role Role) (string, bool) {
	if len(token) < 2 {
		return "", false
	}
	if token[len(token)-1:] != expectedRoleChar(role) {
		return "", false
	}
	return token[:len(token)-1], true
}

func (m *Manager) CreateToken(user User, role Role, validUntil int64) (string, error) {
	secret, ok := m.secrets[role]
	if !ok {
		return "", fmt.Errorf("invalid role specified")
	}

	now := m.now()
	if validUntil == 0 {
		validUntil = now.Add(m.accessTTL).Unix()
	}

	claims := jwt.MapClaims{
		"id":    user.Id,
		"email": user.Email,
		"jti":   uuid.NewString(),
		"iat":   now.Unix(),
		"exp":   validUntil,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", err
	}

	return appendRoleChar(tokenString, role), nil
}

func (m *Manager) CreateTokenWithRefresh(ctx context.Context, user User, role Role) (TokenResponse, error) {
	accessToken, err := m.CreateToken(user, role, 0)
	if err != nil {
		return TokenResponse{}, err
	}

	refreshTokenRaw := utils.CreateToken()
	refreshToken := appendRoleChar(refreshTokenRaw, role)

	userData := map[string]string{
		"id":    user.Id,
		"email": user.Email,
	}
	userDataJSON, err := json.Marshal(userData)
	if err != nil {
		return TokenResponse{}, err
	}

	err = m.redis.Set(ctx, refreshKeyPrefix+refreshTokenRaw, userDataJSON, m.refreshTTL).Err()
	if err != nil {
		return TokenResponse{}, fmt.Errorf("store refresh token: %w", err)
	}

	return TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// ParseToken verifies the signature, expiry, role char and revocation state
// of an access token.
func (m *Manager) ParseToken(ctx context.Context, tokenString string, role Role) (Claims, error) {
	claims, err := m.parse(tokenString, role)
	if err != nil {
		return Claims{}, err
	}

	revoked, err := m.redis.Exists(ctx, revokedKeyPrefix+claims.TokenID).Result()
	if err != nil {
		return Claims{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked > 0 {
		return Claims{}, ErrTokenRevoked
	}

	return claims, nil
}

func (m *Manager) parse(tokenString string, role Role) (Claims, error) {
	if len(tokenString) == 0 {
		return Claims{}, fmt.Errorf("%w: token string is empty", ErrInvalidToken)
	}

	raw, ok := stripRoleChar(tokenString, role)
	if !ok {
		return Claims{}, fmt.Errorf("%w: invalid role character in token", ErrInvalidToken)
	}

	secret, ok := m.secrets[role]
	if !ok {
		return Claims{}, fmt.Errorf("invalid role specified")
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, fmt.Errorf("%w: claims of unexpected type", ErrInvalidToken)
	}

	claims := Claims{}
	claims.UserID, _ = mapClaims["id"].(string)
	claims.Email, _ = mapClaims["email"].(string)
	claims.TokenID, _ = mapClaims["jti"].(string)
	if exp, ok := mapClaims["exp"].(float64); ok {
		claims.ExpiresAt = time.Unix(int64(exp), 0)
	}

	if claims.UserID == "" || claims.TokenID == "" {
		return Claims{}, fmt.Errorf("%w: token missing identifiers", ErrInvalidToken)
	}

	return claims, nil
}

// RefreshToken issues a new access token for a stored refresh token and
// extends the refresh token's lifetime.
func (m *Manager) RefreshToken(ctx context.Context, refreshToken string, role Role) (string, User, error) {
	refreshTokenRaw, ok := stripRoleChar(refreshToken, role)
	if !ok {
		return "", User{}, ErrInvalidRefreshToken
	}

	key := refreshKeyPrefix + refreshTokenRaw
	val, err := m.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", User{}, ErrInvalidRefreshToken
	} else if err != nil {
		return "", User{}, err
	}

	var userData map[string]string
	if err := json.Unmarshal([]byte(val), &userData); err != nil {
		return "", User{}, fmt.Errorf("%w: invalid token data", ErrInvalidRefreshToken)
	}

	user := User{
		Id:    userData["id"],
		Email: userData["email"],
	}

	if err := m.redis.Expire(ctx, key, m.refreshTTL).Err(); err != nil {
		return "", User{}, fmt.Errorf("failed to update refresh token expiration: %w", err)
	}

	accessToken, err := m.CreateToken(user, role, 0)
	if err != nil {
		return "", User{}, err
	}
	return accessToken, user, nil
}

// RevokeAccessToken deny-lists the token's id until the token would have
// expired anyway. Tokens that no longer verify need no revocation.
func (m *Manager) RevokeAccessToken(ctx context.Context, tokenString string, role Role) error {
	claims, err := m.parse(tokenString, role)
	if err != nil {
		return nil
	}

	ttl := claims.ExpiresAt.Sub(m.now())
	if ttl <= 0 {
		return nil
	}

	if err := m.redis.Set(ctx, revokedKeyPrefix+claims.TokenID, claims.UserID, ttl).Err(); err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (m *Manager) DeleteRefreshToken(ctx context.Context, refreshToken string, role Role) error {
	refreshTokenRaw, ok := stripRoleChar(refreshToken, role)
	if !ok {
		return nil
	}
	if err := m.redis.Del(ctx, refreshKeyPrefix+refreshTokenRaw).Err(); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}
