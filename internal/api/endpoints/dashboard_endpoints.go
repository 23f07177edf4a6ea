package endpoints

import (
	"errors"
	"net/http"

	"garment-portal-backend/internal/service/dashboard"
)

type DashboardEndpoints interface {
	Dashboard(http.ResponseWriter, *http.Request) error
}

type dashboardEndpoints struct {
	service *dashboard.Service
}

func NewDashboardEndpoints(service *dashboard.Service) DashboardEndpoints {
	return &dashboardEndpoints{service: service}
}

func (h *dashboardEndpoints) Dashboard(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleDashboard,
	})
}

func (h *dashboardEndpoints) handleDashboard(w http.ResponseWriter, r *http.Request) error {
	id, err := callerIdentity(r)
	if err != nil {
		return err
	}

	result, err := h.service.Load(r.Context(), id)
	if err != nil {
		var svcErr *dashboard.Error
		if !errors.As(err, &svcErr) {
			return unexpectedError("dashboard", err)
		}
		return codedError(string(svcErr.Code), svcErr.Message, svcErr.Err)
	}
	return WriteJSON(w, http.StatusOK, result)
}
