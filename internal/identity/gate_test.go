package identity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"garment-portal-backend/internal/config"
	internaljwt "garment-portal-backend/internal/jwt"
	"garment-portal-backend/internal/model"
	"garment-portal-backend/internal/realtime"
)

type profileRecorder struct {
	mu       sync.Mutex
	profiles map[string]model.ProfileItem
}

func (p *profileRecorder) PutProfile(ctx context.Context, profile model.ProfileItem) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.profiles[profile.UserID] = profile
	return nil
}

type gateFixture struct {
	gate     *Gate
	users    *MemoryUserRepository
	profiles *profileRecorder
	bus      *realtime.MemoryBus
}

func newGateFixture(t *testing.T, admins ...string) gateFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := internaljwt.NewAuthRedisClient(config.RedisConfig{AuthAddr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	policy, err := NewAdminPolicy(admins)
	require.NoError(t, err)

	f := gateFixture{
		users:    NewMemoryUserRepository(),
		profiles: &profileRecorder{profiles: map[string]model.ProfileItem{}},
		bus:      realtime.NewMemoryBus(),
	}
	f.gate = NewGate(Options{
		Users:    f.users,
		Profiles: f.profiles,
		Tokens: internaljwt.NewManager(config.AuthConfig{
			UserSecret:      "0123456789abcdef0123",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: time.Hour,
		}, client),
		Admins: policy,
		Bus:    f.bus,
	})
	return f
}

func signUpParams(email string) SignUpParams {
	return SignUpParams{
		Email:       email,
		Password:    "secret1",
		ContactName: "Asha",
		CompanyName: "Loom Co",
	}
}

func codeOf(t *testing.T, err error) ErrorCode {
	t.Helper()
	var gateErr *Error
	require.True(t, errors.As(err, &gateErr), "expected *identity.Error, got %v", err)
	return gateErr.Code
}

func TestSignUpWritesUserAndProfile(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()

	session, err := f.gate.SignUp(ctx, signUpParams("  Asha@Loom.test "))
	require.NoError(t, err)
	assert.Equal(t, "asha@loom.test", session.Identity.Email)
	assert.NotEmpty(t, session.Tokens.AccessToken)
	assert.NotEmpty(t, session.Tokens.RefreshToken)

	profile, ok := f.profiles.profiles[session.Identity.UserID]
	require.True(t, ok)
	assert.Equal(t, "Loom Co", profile.CompanyName)
	assert.Equal(t, "asha@loom.test", profile.Email)

	_, err = f.gate.SignUp(ctx, signUpParams("asha@loom.test"))
	require.Error(t, err)
	assert.Equal(t, ErrorCodeConflict, codeOf(t, err))
	assert.Equal(t, MessageUserExists, err.Error())
}

func TestSignUpValidation(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()

	cases := map[string]func(p *SignUpParams){
		"bad email":      func(p *SignUpParams) { p.Email = "not-an-email" },
		"short password": func(p *SignUpParams) { p.Password = "12345" },
		"no contact":     func(p *SignUpParams) { p.ContactName = " " },
		"no company":     func(p *SignUpParams) { p.CompanyName = "" },
		"bad business":   func(p *SignUpParams) { p.BusinessType = "retail" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := signUpParams("v@loom.test")
			mutate(&p)
			_, err := f.gate.SignUp(ctx, p)
			require.Error(t, err)
			assert.Equal(t, ErrorCodeValidation, codeOf(t, err))
		})
	}
	assert.Empty(t, f.profiles.profiles)
}

func TestSignInAndCurrentIdentity(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()

	_, err := f.gate.SignUp(ctx, signUpParams("asha@loom.test"))
	require.NoError(t, err)

	_, err = f.gate.SignIn(ctx, "asha@loom.test", "wrong-pass")
	require.Error(t, err)
	assert.Equal(t, MessageInvalidCredentials, err.Error())

	_, err = f.gate.SignIn(ctx, "nobody@loom.test", "secret1")
	require.Error(t, err)
	assert.Equal(t, MessageInvalidCredentials, err.Error())

	session, err := f.gate.SignIn(ctx, "ASHA@loom.test", "secret1")
	require.NoError(t, err)

	id, err := f.gate.CurrentIdentity(ctx, session.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, session.Identity, id)

	_, err = f.gate.CurrentIdentity(ctx, "")
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = f.gate.CurrentIdentity(ctx, "junk1")
	require.Error(t, err)
	assert.Equal(t, ErrorCodeUnauthorized, codeOf(t, err))
}

func TestSignOutRevokesAndPublishes(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()

	session, err := f.gate.SignUp(ctx, signUpParams("asha@loom.test"))
	require.NoError(t, err)

	sub, err := f.gate.Subscribe(ctx, session.Identity.UserID)
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, f.gate.SignOut(ctx, session.Identity, session.Tokens.AccessToken, session.Tokens.RefreshToken))

	select {
	case env := <-sub.C:
		ev, err := realtime.DecodeSessionEvent(env.Payload)
		require.NoError(t, err)
		assert.Equal(t, realtime.SessionSignedOut, ev.Type)
		assert.Equal(t, session.Identity.UserID, ev.UserID)
	case <-time.After(time.Second):
		t.Fatal("no signed_out event")
	}

	_, err = f.gate.CurrentIdentity(ctx, session.Tokens.AccessToken)
	require.Error(t, err)
	_, err = f.gate.Refresh(ctx, session.Tokens.RefreshToken)
	require.Error(t, err)
	assert.Equal(t, ErrorCodeUnauthorized, codeOf(t, err))
}

func TestRefresh(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()

	session, err := f.gate.SignUp(ctx, signUpParams("asha@loom.test"))
	require.NoError(t, err)

	refreshed, err := f.gate.Refresh(ctx, session.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, session.Identity, refreshed.Identity)
	assert.Equal(t, session.Tokens.RefreshToken, refreshed.Tokens.RefreshToken)

	id, err := f.gate.CurrentIdentity(ctx, refreshed.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, session.Identity.UserID, id.UserID)
}

func TestIsAdminExactMatch(t *testing.T) {
	f := newGateFixture(t, "owner@loom.test")

	assert.True(t, f.gate.IsAdmin(Identity{Email: "owner@loom.test"}))
	assert.False(t, f.gate.IsAdmin(Identity{Email: "Owner@loom.test"}))
	assert.False(t, f.gate.IsAdmin(Identity{Email: "owner@loom.test "}))
	assert.False(t, f.gate.IsAdmin(Identity{Email: "other@loom.test"}))
	assert.False(t, f.gate.IsAdmin(Identity{}))
}

func TestRequireAdminSignsOutNonAdmin(t *testing.T) {
	f := newGateFixture(t, "owner@loom.test")
	ctx := context.Background()

	session, err := f.gate.SignUp(ctx, signUpParams("client@loom.test"))
	require.NoError(t, err)

	err = f.gate.RequireAdmin(ctx, session.Identity, session.Tokens.AccessToken)
	require.Error(t, err)
	assert.Equal(t, ErrorCodeForbidden, codeOf(t, err))
	assert.Equal(t, MessageNotAdmin, err.Error())

	_, err = f.gate.CurrentIdentity(ctx, session.Tokens.AccessToken)
	require.Error(t, err)
}

func TestContextHelpers(t *testing.T) {
	ctx := WithIdentity(context.Background(), Identity{UserID: "u1", Email: "a@b.test"}, "tok")

	id, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", id.UserID)
	assert.Equal(t, "tok", AccessTokenFromContext(ctx))

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}

func TestBearerToken(t *testing.T) {
	tok, err := BearerToken("Bearer abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	_, err = BearerToken("")
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = BearerToken("Token abc")
	require.Error(t, err)
}
