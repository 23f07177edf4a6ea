package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	internaljwt "garment-portal-backend/internal/jwt"
	"garment-portal-backend/internal/model"
	"garment-portal-backend/internal/realtime"
)

// TokenIssuer is the slice of the token manager the gate relies on.
type TokenIssuer interface {
	CreateTokenWithRefresh(ctx context.Context, user internaljwt.User, role internaljwt.Role) (internaljwt.TokenResponse, error)
	ParseToken(ctx context.Context, token string, role internaljwt.Role) (internaljwt.Claims, error)
	RefreshToken(ctx context.Context, refreshToken string, role internaljwt.Role) (string, internaljwt.User, error)
	RevokeAccessToken(ctx context.Context, token string, role internaljwt.Role) error
	DeleteRefreshToken(ctx context.Context, refreshToken string, role internaljwt.Role) error
}

// ProfileWriter receives the profile row created at sign-up.
type ProfileWriter interface {
	PutProfile(ctx context.Context, profile model.ProfileItem) error
}

type Gate struct {
	users    UserRepository
	profiles ProfileWriter
	tokens   TokenIssuer
	admins   *AdminPolicy
	bus      realtime.Bus
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

type Options struct {
	Users    UserRepository
	Profiles ProfileWriter
	Tokens   TokenIssuer
	Admins   *AdminPolicy
	Bus      realtime.Bus
	Logger   *zap.Logger
	Now      func() time.Time
}

func NewGate(opts Options) *Gate {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Gate{
		users:    opts.Users,
		profiles: opts.Profiles,
		tokens:   opts.Tokens,
		admins:   opts.Admins,
		bus:      opts.Bus,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   opts.Logger,
		now:      opts.Now,
	}
}

func (g *Gate) SignUp(ctx context.Context, params SignUpParams) (Session, error) {
	params.Email = normalizeEmail(params.Email)
	params.ContactName = strings.TrimSpace(params.ContactName)
	params.CompanyName = strings.TrimSpace(params.CompanyName)
	params.Phone = strings.TrimSpace(params.Phone)
	params.BusinessType = strings.TrimSpace(params.BusinessType)

	if err := g.validate.Struct(params); err != nil {
		return Session{}, newError(ErrorCodeValidation, describeValidation(err), err)
	}

	hashed, err := internaljwt.NewUser(internaljwt.RegisterUser{
		Email:    params.Email,
		Password: params.Password,
	})
	if err != nil {
		return Session{}, newError(ErrorCodeInternal, "failed to prepare user", err)
	}

	now := model.FormatTimestamp(g.now())
	user := model.UserItem{
		Email:        params.Email,
		UserID:       uuid.NewString(),
		PasswordHash: hashed.PasswordHash,
		CreatedAt:    now,
	}

	if err := g.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrUserExists) {
			return Session{}, newError(ErrorCodeConflict, MessageUserExists, err)
		}
		return Session{}, newError(ErrorCodeInternal, "failed to save user", err)
	}

	profile := model.ProfileItem{
		UserID:       user.UserID,
		CompanyName:  params.CompanyName,
		ContactName:  params.ContactName,
		Email:        user.Email,
		Phone:        params.Phone,
		BusinessType: params.BusinessType,
		CreatedAt:    now,
	}
	if err := g.profiles.PutProfile(ctx, profile); err != nil {
		return Session{}, newError(ErrorCodeInternal, "failed to save profile", err)
	}

	return g.issue(ctx, Identity{UserID: user.UserID, Email: user.Email})
}

func (g *Gate) SignIn(ctx context.Context, email, password string) (Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Session{}, newError(ErrorCodeValidation, "email and password are required", nil)
	}

	user, err := g.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, newError(ErrorCodeUnauthorized, MessageInvalidCredentials, err)
		}
		return Session{}, newError(ErrorCodeInternal, "failed to fetch user", err)
	}

	if !internaljwt.ValidatePassword(user.PasswordHash, password) {
		return Session{}, newError(ErrorCodeUnauthorized, MessageInvalidCredentials, nil)
	}

	return g.issue(ctx, Identity{UserID: user.UserID, Email: user.Email})
}

func (g *Gate) issue(ctx context.Context, id Identity) (Session, error) {
	tokens, err := g.tokens.CreateTokenWithRefresh(ctx, internaljwt.User{Id: id.UserID, Email: id.Email}, internaljwt.RoleUser)
	if err != nil {
		return Session{}, newError(ErrorCodeInternal, "failed to issue tokens", err)
	}

	g.publish(ctx, id.UserID, realtime.SessionSignedIn)
	return Session{Identity: id, Tokens: tokens}, nil
}

// SignOut revokes both tokens and tells live views of the user to close.
// An empty refresh token is skipped.
func (g *Gate) SignOut(ctx context.Context, id Identity, accessToken, refreshToken string) error {
	if err := g.tokens.RevokeAccessToken(ctx, accessToken, internaljwt.RoleUser); err != nil {
		return newError(ErrorCodeInternal, "failed to sign out", err)
	}
	if refreshToken != "" {
		if err := g.tokens.DeleteRefreshToken(ctx, refreshToken, internaljwt.RoleUser); err != nil {
			return newError(ErrorCodeInternal, "failed to sign out", err)
		}
	}

	g.publish(ctx, id.UserID, realtime.SessionSignedOut)
	return nil
}

func (g *Gate) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return Session{}, newError(ErrorCodeValidation, "refresh token is required", nil)
	}

	access, user, err := g.tokens.RefreshToken(ctx, refreshToken, internaljwt.RoleUser)
	if err != nil {
		if errors.Is(err, internaljwt.ErrInvalidRefreshToken) {
			return Session{}, newError(ErrorCodeUnauthorized, "invalid refresh token", err)
		}
		return Session{}, newError(ErrorCodeInternal, "failed to refresh session", err)
	}

	return Session{
		Identity: Identity{UserID: user.Id, Email: user.Email},
		Tokens: internaljwt.TokenResponse{
			AccessToken:  access,
			RefreshToken: refreshToken,
		},
	}, nil
}

// CurrentIdentity resolves an access token. An empty token is ErrNoSession.
func (g *Gate) CurrentIdentity(ctx context.Context, accessToken string) (Identity, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return Identity{}, newError(ErrorCodeUnauthorized, "not signed in", ErrNoSession)
	}

	claims, err := g.tokens.ParseToken(ctx, accessToken, internaljwt.RoleUser)
	if err != nil {
		if errors.Is(err, internaljwt.ErrInvalidToken) || errors.Is(err, internaljwt.ErrTokenRevoked) {
			return Identity{}, newError(ErrorCodeUnauthorized, "invalid session", err)
		}
		return Identity{}, newError(ErrorCodeInternal, "failed to verify session", err)
	}

	return Identity{UserID: claims.UserID, Email: claims.Email}, nil
}

func (g *Gate) IdentityFromAuthorizationHeader(ctx context.Context, header string) (Identity, string, error) {
	token, err := BearerToken(header)
	if err != nil {
		return Identity{}, "", err
	}
	id, err := g.CurrentIdentity(ctx, token)
	return id, token, err
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	authHeader := strings.TrimSpace(header)
	if authHeader == "" {
		return "", newError(ErrorCodeUnauthorized, "not signed in", ErrNoSession)
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", newError(ErrorCodeUnauthorized, "invalid authorization header format", nil)
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")), nil
}

func (g *Gate) IsAdmin(id Identity) bool {
	return g.admins.Allows(id.Email)
}

// RequireAdmin signs a non-admin identity out and returns a forbidden error.
func (g *Gate) RequireAdmin(ctx context.Context, id Identity, accessToken string) error {
	if g.IsAdmin(id) {
		return nil
	}

	if err := g.SignOut(ctx, id, accessToken, ""); err != nil {
		g.logger.Warn("forced sign-out failed", zap.String("user_id", id.UserID), zap.Error(err))
	}
	return newError(ErrorCodeForbidden, MessageNotAdmin, errNotAdmin)
}

// Subscribe streams session events for a user until ctx ends or the
// subscription is closed.
func (g *Gate) Subscribe(ctx context.Context, userID string) (*realtime.Subscription, error) {
	return g.bus.Subscribe(ctx, realtime.SessionTopic(userID))
}

func (g *Gate) publish(ctx context.Context, userID string, kind realtime.SessionEventType) {
	if g.bus == nil {
		return
	}
	ev := realtime.SessionEvent{Type: kind, UserID: userID, At: g.now().UTC()}
	if err := realtime.PublishJSON(ctx, g.bus, realtime.SessionTopic(userID), ev); err != nil {
		g.logger.Warn("session event publish failed",
			zap.String("user_id", userID),
			zap.String("type", string(kind)),
			zap.Error(err),
		)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid sign-up data"
	}

	fe := verrs[0]
	switch fe.Field() {
	case "Email":
		return "a valid email address is required"
	case "Password":
		return "password must be at least 6 characters"
	case "ContactName":
		return "contact name is required"
	case "CompanyName":
		return "company name is required"
	case "BusinessType":
		return "business type must be one of brand, wholesaler, dealer, broker, other"
	}
	return "invalid sign-up data"
}
