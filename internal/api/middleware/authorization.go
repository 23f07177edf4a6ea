package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"garment-portal-backend/internal/identity"
)

const (
	RedirectClientLogin = "/auth"
	RedirectAdminLogin  = "/admin/login"
	RedirectHome        = "/"
)

type Authenticator interface {
	IdentityFromAuthorizationHeader(ctx context.Context, header string) (identity.Identity, string, error)
}

type AdminAuthorizer interface {
	Authenticator
	RequireAdmin(ctx context.Context, id identity.Identity, accessToken string) error
}

type authError struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect,omitempty"`
}

// RequireSession resolves the bearer token into an identity on the request
// context. Requests without a valid session get 401 and the login redirect.
func RequireSession(auth Authenticator, logger *zap.Logger, redirect string) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			id, token, err := auth.IdentityFromAuthorizationHeader(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				rejectSession(w, logger, err, redirect)
				return
			}
			next(w, r.WithContext(identity.WithIdentity(r.Context(), id, token)))
		}
	}
}

// RequireAdmin is RequireSession plus the admin allow-list. A signed-in
// non-admin is signed out and sent home with 403.
func RequireAdmin(auth AdminAuthorizer, logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			id, token, err := auth.IdentityFromAuthorizationHeader(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				rejectSession(w, logger, err, RedirectAdminLogin)
				return
			}

			if err := auth.RequireAdmin(r.Context(), id, token); err != nil {
				logger.Warn("admin access denied", zap.String("user_id", id.UserID), zap.Error(err))
				writeAuthError(w, http.StatusForbidden, identity.MessageNotAdmin, RedirectHome)
				return
			}

			next(w, r.WithContext(identity.WithIdentity(r.Context(), id, token)))
		}
	}
}

func rejectSession(w http.ResponseWriter, logger *zap.Logger, err error, redirect string) {
	var idErr *identity.Error
	if errors.As(err, &idErr) && idErr.Code == identity.ErrorCodeUnauthorized {
		writeAuthError(w, http.StatusUnauthorized, idErr.Message, redirect)
		return
	}

	logger.Error("session lookup failed", zap.Error(err))
	writeAuthError(w, http.StatusInternalServerError, "Internal server error", "")
}

func writeAuthError(w http.ResponseWriter, status int, message, redirect string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(authError{Message: message, Redirect: redirect})
}
