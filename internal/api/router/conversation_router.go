package router

import (
	"net/http"
	"strings"

	"garment-portal-backend/internal/api"
	"garment-portal-backend/internal/api/middleware"
	"garment-portal-backend/internal/websocket"
)

// AdminChatWebsocketPrefix is where ConversationWebsocketRoutes mounts the
// admin live chat under prefix.
func AdminChatWebsocketPrefix(prefix string) string {
	return strings.TrimRight(prefix, "/") + "/admin/chat/"
}

// ConversationWebsocketRoutes mounts the live chat sockets. The handler must
// have been built with AdminChatWebsocketPrefix(prefix).
func ConversationWebsocketRoutes(prefix string, handler *websocket.Handler) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		base := strings.TrimRight(prefix, "/")

		mux.HandleFunc(base+"/dashboard/chat", s.MakeHTTPHandleFunc(handler.ClientChat))
		mux.HandleFunc(AdminChatWebsocketPrefix(prefix), s.MakeHTTPHandleFunc(handler.AdminChat))
		mux.HandleFunc(base+"/rooms", s.MakeHTTPHandleFunc(handler.Rooms, middleware.RequireAdmin(s.Deps().Gate, s.Logger())))
	}
}
