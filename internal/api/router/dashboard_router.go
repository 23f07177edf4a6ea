package router

import (
	"net/http"

	"garment-portal-backend/internal/api"
	"garment-portal-backend/internal/api/endpoints"
	"garment-portal-backend/internal/api/middleware"
	"garment-portal-backend/internal/service/chat"
	"garment-portal-backend/internal/service/dashboard"
)

func DashboardRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		deps := s.Deps()
		dashboardEndpoints := endpoints.NewDashboardEndpoints(dashboard.New(deps.Store))
		chatEndpoints := endpoints.NewChatEndpoints(chat.New(deps.Store, deps.Chat), "")
		requireSession := middleware.RequireSession(deps.Gate, s.Logger(), middleware.RedirectClientLogin)

		mux.HandleFunc(prefix+"/dashboard", s.MakeHTTPHandleFunc(dashboardEndpoints.Dashboard, requireSession))
		mux.HandleFunc(prefix+"/dashboard/chat", s.MakeHTTPHandleFunc(chatEndpoints.DashboardChat, requireSession))
		mux.HandleFunc(prefix+"/dashboard/chat/messages", s.MakeHTTPHandleFunc(chatEndpoints.ClientMessages, requireSession))
	}
}
