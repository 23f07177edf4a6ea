package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"garment-portal-backend/internal/identity"
)

type fakeAuth struct {
	ids      map[string]identity.Identity
	admins   map[string]bool
	fail     error
	signOuts []string
}

func (f *fakeAuth) IdentityFromAuthorizationHeader(ctx context.Context, header string) (identity.Identity, string, error) {
	if f.fail != nil {
		return identity.Identity{}, "", f.fail
	}
	token, err := identity.BearerToken(header)
	if err != nil {
		return identity.Identity{}, "", err
	}
	id, ok := f.ids[token]
	if !ok {
		return identity.Identity{}, "", &identity.Error{Code: identity.ErrorCodeUnauthorized, Message: "invalid session"}
	}
	return id, token, nil
}

func (f *fakeAuth) RequireAdmin(ctx context.Context, id identity.Identity, token string) error {
	if f.admins[id.Email] {
		return nil
	}
	f.signOuts = append(f.signOuts, token)
	return &identity.Error{Code: identity.ErrorCodeForbidden, Message: identity.MessageNotAdmin}
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{
		ids: map[string]identity.Identity{
			"client-token": {UserID: "u1", Email: "asha@loom.test"},
			"admin-token":  {UserID: "a1", Email: "owner@portal.test"},
		},
		admins: map[string]bool{"owner@portal.test": true},
	}
}

func serve(h http.HandlerFunc, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeAuthError(t *testing.T, rec *httptest.ResponseRecorder) authError {
	t.Helper()
	var body authError
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestRequireSession(t *testing.T) {
	auth := newFakeAuth()
	var seen identity.Identity
	h := RequireSession(auth, nil, RedirectClientLogin)(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = identity.FromContext(r.Context())
		assert.Equal(t, "client-token", identity.AccessTokenFromContext(r.Context()))
	})

	rec := serve(h, "client-token")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", seen.UserID)

	rec = serve(h, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, RedirectClientLogin, decodeAuthError(t, rec).Redirect)

	auth.fail = errors.New("redis down")
	rec = serve(h, "client-token")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	auth := newFakeAuth()
	called := 0
	h := RequireAdmin(auth, nil)(func(w http.ResponseWriter, r *http.Request) { called++ })

	rec := serve(h, "admin-token")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, called)

	rec = serve(h, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, RedirectAdminLogin, decodeAuthError(t, rec).Redirect)

	rec = serve(h, "client-token")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := decodeAuthError(t, rec)
	assert.Equal(t, "You are not authorized as admin", body.Message)
	assert.Equal(t, RedirectHome, body.Redirect)
	assert.Equal(t, []string{"client-token"}, auth.signOuts)
	assert.Equal(t, 1, called)
}
