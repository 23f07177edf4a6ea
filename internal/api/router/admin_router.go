package router

import (
	"net/http"
	"strings"

	"garment-portal-backend/internal/api"
	"garment-portal-backend/internal/api/endpoints"
	"garment-portal-backend/internal/api/middleware"
	"garment-portal-backend/internal/service/admin"
	"garment-portal-backend/internal/service/chat"
)

// AdminRoutes mounts the console. Every route sits behind the admin gate;
// the login routes live in ClientAuthRoutes.
func AdminRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		deps := s.Deps()
		base := strings.TrimRight(prefix, "/") + "/admin"

		adminEndpoints := endpoints.NewAdminEndpoints(admin.New(deps.Store), endpoints.AdminPaths{
			InquiryPrefix: base + "/inquiries/",
			OrderPrefix:   base + "/orders/",
		})
		chatEndpoints := endpoints.NewChatEndpoints(chat.New(deps.Store, deps.Chat), base+"/chat/")
		requireAdmin := middleware.RequireAdmin(deps.Gate, s.Logger())

		mux.HandleFunc(base, s.MakeHTTPHandleFunc(adminEndpoints.Overview, requireAdmin))
		mux.HandleFunc(base+"/clients", s.MakeHTTPHandleFunc(adminEndpoints.Clients, requireAdmin))
		mux.HandleFunc(base+"/inquiries", s.MakeHTTPHandleFunc(adminEndpoints.Inquiries, requireAdmin))
		mux.HandleFunc(base+"/inquiries/", s.MakeHTTPHandleFunc(adminEndpoints.Inquiry, requireAdmin))
		mux.HandleFunc(base+"/conversations", s.MakeHTTPHandleFunc(adminEndpoints.Conversations, requireAdmin))
		mux.HandleFunc(base+"/chat/", s.MakeHTTPHandleFunc(chatEndpoints.AdminChat, requireAdmin))
		mux.HandleFunc(base+"/orders", s.MakeHTTPHandleFunc(adminEndpoints.Orders, requireAdmin))
		mux.HandleFunc(base+"/orders/", s.MakeHTTPHandleFunc(adminEndpoints.Order, requireAdmin))
	}
}
