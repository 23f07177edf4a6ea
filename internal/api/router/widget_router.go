package router

import (
	"net/http"

	"garment-portal-backend/internal/api"
	"garment-portal-backend/internal/api/endpoints"
	"garment-portal-backend/internal/api/middleware"
	"garment-portal-backend/internal/service/chat"
)

// WidgetRoutes serves the floating chat. Visitors without a session are
// sent to /auth before anything is created.
func WidgetRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		deps := s.Deps()
		chatEndpoints := endpoints.NewChatEndpoints(chat.New(deps.Store, deps.Chat), "")
		requireSession := middleware.RequireSession(deps.Gate, s.Logger(), middleware.RedirectClientLogin)

		mux.HandleFunc(prefix+"/chat/widget", s.MakeHTTPHandleFunc(chatEndpoints.WidgetChat, requireSession))
		mux.HandleFunc(prefix+"/chat/widget/messages", s.MakeHTTPHandleFunc(chatEndpoints.ClientMessages, requireSession))
	}
}
