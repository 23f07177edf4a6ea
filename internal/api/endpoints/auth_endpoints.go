package endpoints

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"garment-portal-backend/internal/api/middleware"
	"garment-portal-backend/internal/dto"
	"garment-portal-backend/internal/identity"
)

type AuthService interface {
	SignUp(ctx context.Context, params identity.SignUpParams) (identity.Session, error)
	SignIn(ctx context.Context, email, password string) (identity.Session, error)
	Refresh(ctx context.Context, refreshToken string) (identity.Session, error)
	SignOut(ctx context.Context, id identity.Identity, accessToken, refreshToken string) error
	IsAdmin(id identity.Identity) bool
}

type AuthEndpoints interface {
	Register(http.ResponseWriter, *http.Request) error
	Login(http.ResponseWriter, *http.Request) error
	Refresh(http.ResponseWriter, *http.Request) error
	Me(http.ResponseWriter, *http.Request) error
	Logout(http.ResponseWriter, *http.Request) error
	AdminLogin(http.ResponseWriter, *http.Request) error
}

type authEndpoints struct {
	service AuthService
	logger  *zap.Logger
}

func NewAuthEndpoints(service AuthService, logger *zap.Logger) AuthEndpoints {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &authEndpoints{service: service, logger: logger}
}

func (h *authEndpoints) Register(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleRegister,
	})
}

func (h *authEndpoints) Login(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleLogin,
	})
}

func (h *authEndpoints) Refresh(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleRefresh,
	})
}

func (h *authEndpoints) Me(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleMe,
	})
}

func (h *authEndpoints) Logout(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleLogout,
	})
}

func (h *authEndpoints) AdminLogin(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleAdminLogin,
	})
}

func (h *authEndpoints) handleRegister(w http.ResponseWriter, r *http.Request) error {
	var req dto.RegisterRequest
	if err := decodeJSON(r, &req, "register"); err != nil {
		return err
	}

	session, err := h.service.SignUp(r.Context(), identity.SignUpParams{
		Email:        req.Email,
		Password:     req.Password,
		ContactName:  req.ContactName,
		CompanyName:  req.CompanyName,
		Phone:        req.Phone,
		BusinessType: req.BusinessType,
	})
	if err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusCreated, h.toAuthResponse(session))
}

func (h *authEndpoints) handleLogin(w http.ResponseWriter, r *http.Request) error {
	var req dto.LoginRequest
	if err := decodeJSON(r, &req, "login"); err != nil {
		return err
	}

	session, err := h.service.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, h.toAuthResponse(session))
}

func (h *authEndpoints) handleRefresh(w http.ResponseWriter, r *http.Request) error {
	var req dto.RefreshRequest
	if err := decodeJSON(r, &req, "refresh"); err != nil {
		return err
	}

	session, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, h.toAuthResponse(session))
}

func (h *authEndpoints) handleMe(w http.ResponseWriter, r *http.Request) error {
	id, err := callerIdentity(r)
	if err != nil {
		return err
	}

	return WriteJSON(w, http.StatusOK, dto.MeResponse{
		User:    toUserResponse(id),
		IsAdmin: h.service.IsAdmin(id),
	})
}

func (h *authEndpoints) handleLogout(w http.ResponseWriter, r *http.Request) error {
	id, err := callerIdentity(r)
	if err != nil {
		return err
	}

	var req dto.LogoutRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req, "logout"); err != nil {
			return err
		}
	}

	if err := h.service.SignOut(r.Context(), id, identity.AccessTokenFromContext(r.Context()), req.RefreshToken); err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, ApiMessageResponse{Message: "signed out"})
}

// handleAdminLogin signs in and then applies the admin check. A valid
// non-admin account is signed straight back out.
func (h *authEndpoints) handleAdminLogin(w http.ResponseWriter, r *http.Request) error {
	var req dto.LoginRequest
	if err := decodeJSON(r, &req, "admin login"); err != nil {
		return err
	}

	session, err := h.service.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		return h.serviceError(err)
	}

	if !h.service.IsAdmin(session.Identity) {
		if err := h.service.SignOut(r.Context(), session.Identity, session.Tokens.AccessToken, session.Tokens.RefreshToken); err != nil {
			h.logger.Warn("sign-out of non-admin failed", zap.String("user_id", session.Identity.UserID), zap.Error(err))
		}
		return &HTTPError{
			StatusCode: http.StatusForbidden,
			Message:    identity.MessageNotAdmin,
			ErrorLog:   errors.New("admin login by non-admin " + session.Identity.UserID),
			Redirect:   middleware.RedirectHome,
		}
	}

	return WriteJSON(w, http.StatusOK, h.toAuthResponse(session))
}

func (h *authEndpoints) serviceError(err error) error {
	if err == nil {
		return nil
	}

	var svcErr *identity.Error
	if !errors.As(err, &svcErr) {
		return unexpectedError("identity", err)
	}

	httpErr := codedError(string(svcErr.Code), svcErr.Message, svcErr.Err)
	if svcErr.Code == identity.ErrorCodeForbidden {
		httpErr.Redirect = middleware.RedirectHome
	}
	return httpErr
}

func (h *authEndpoints) toAuthResponse(session identity.Session) dto.AuthResponse {
	return dto.AuthResponse{
		AccessToken:  session.Tokens.AccessToken,
		RefreshToken: session.Tokens.RefreshToken,
		User:         toUserResponse(session.Identity),
		IsAdmin:      h.service.IsAdmin(session.Identity),
	}
}

func toUserResponse(id identity.Identity) dto.UserResponse {
	return dto.UserResponse{
		UserID: id.UserID,
		Email:  id.Email,
	}
}
