package router

import (
	"net/http"

	"garment-portal-backend/internal/api"
	"garment-portal-backend/internal/api/endpoints"
	"garment-portal-backend/internal/service/inquiry"
)

func InquiryRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		inquiryEndpoints := endpoints.NewInquiryEndpoints(inquiry.New(s.Deps().Store))
		mux.HandleFunc(prefix+"/inquiries", s.MakeHTTPHandleFunc(inquiryEndpoints.Submit))
	}
}
