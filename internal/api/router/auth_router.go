package router

import (
	"net/http"

	"garment-portal-backend/internal/api"
	"garment-portal-backend/internal/api/endpoints"
	"garment-portal-backend/internal/api/middleware"
)

// PublicAuthRoutes serves the /auth page: sign-up, sign-in and refresh.
func PublicAuthRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		authEndpoints := endpoints.NewAuthEndpoints(s.Deps().Gate, s.Logger())
		mux.HandleFunc(prefix+"/auth/register", s.MakeHTTPHandleFunc(authEndpoints.Register))
		mux.HandleFunc(prefix+"/auth/login", s.MakeHTTPHandleFunc(authEndpoints.Login))
		mux.HandleFunc(prefix+"/auth/refresh", s.MakeHTTPHandleFunc(authEndpoints.Refresh))
	}
}

// ClientAuthRoutes serves session-bound auth calls and the admin login.
func ClientAuthRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		gate := s.Deps().Gate
		authEndpoints := endpoints.NewAuthEndpoints(gate, s.Logger())
		requireSession := middleware.RequireSession(gate, s.Logger(), middleware.RedirectClientLogin)

		mux.HandleFunc(prefix+"/auth/me", s.MakeHTTPHandleFunc(authEndpoints.Me, requireSession))
		mux.HandleFunc(prefix+"/auth/logout", s.MakeHTTPHandleFunc(authEndpoints.Logout, requireSession))
		mux.HandleFunc(prefix+"/admin/login", s.MakeHTTPHandleFunc(authEndpoints.AdminLogin))
		mux.HandleFunc(prefix+"/admin-login", s.MakeHTTPHandleFunc(authEndpoints.AdminLogin))
	}
}
