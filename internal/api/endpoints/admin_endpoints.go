package endpoints

import (
	"errors"
	"fmt"
	"net/http"

	"garment-portal-backend/internal/dto"
	"garment-portal-backend/internal/model"
	"garment-portal-backend/internal/service/admin"
)

type AdminPaths struct {
	InquiryPrefix string
	OrderPrefix   string
}

type AdminEndpoints interface {
	Overview(http.ResponseWriter, *http.Request) error
	Clients(http.ResponseWriter, *http.Request) error
	Inquiries(http.ResponseWriter, *http.Request) error
	Inquiry(http.ResponseWriter, *http.Request) error
	Conversations(http.ResponseWriter, *http.Request) error
	Orders(http.ResponseWriter, *http.Request) error
	Order(http.ResponseWriter, *http.Request) error
}

type adminEndpoints struct {
	service *admin.Service
	paths   AdminPaths
}

func NewAdminEndpoints(service *admin.Service, paths AdminPaths) AdminEndpoints {
	return &adminEndpoints{service: service, paths: paths}
}

func (h *adminEndpoints) Overview(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: func(w http.ResponseWriter, r *http.Request) error {
			result, err := h.service.Overview(r.Context(), r.URL.Query().Get("q"))
			if err != nil {
				return h.serviceError(err)
			}
			return WriteJSON(w, http.StatusOK, result)
		},
	})
}

func (h *adminEndpoints) Clients(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: func(w http.ResponseWriter, r *http.Request) error {
			clients, err := h.service.ListClients(r.Context(), r.URL.Query().Get("q"))
			if err != nil {
				return h.serviceError(err)
			}
			return WriteJSON(w, http.StatusOK, map[string]any{"clients": clients})
		},
	})
}

func (h *adminEndpoints) Inquiries(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: func(w http.ResponseWriter, r *http.Request) error {
			inquiries, err := h.service.ListInquiries(r.Context(), r.URL.Query().Get("q"))
			if err != nil {
				return h.serviceError(err)
			}
			return WriteJSON(w, http.StatusOK, map[string]any{"inquiries": inquiries})
		},
	})
}

// Inquiry handles PATCH {prefix}{id} and answers with the re-fetched list.
func (h *adminEndpoints) Inquiry(w http.ResponseWriter, r *http.Request) error {
	id, rest := pathParam(r.URL.Path, h.paths.InquiryPrefix)
	if id == "" || rest != "" {
		return notFound(r)
	}

	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPatch: func(w http.ResponseWriter, r *http.Request) error {
			var req dto.InquiryStatusRequest
			if err := decodeJSON(r, &req, "inquiry status"); err != nil {
				return err
			}

			inquiries, err := h.service.UpdateInquiryStatus(r.Context(), id, model.InquiryStatus(req.Status))
			if err != nil {
				return h.serviceError(err)
			}
			return WriteJSON(w, http.StatusOK, map[string]any{"inquiries": inquiries})
		},
	})
}

func (h *adminEndpoints) Conversations(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: func(w http.ResponseWriter, r *http.Request) error {
			conversations, err := h.service.ListConversations(r.Context())
			if err != nil {
				return h.serviceError(err)
			}
			return WriteJSON(w, http.StatusOK, map[string]any{"conversations": conversations})
		},
	})
}

func (h *adminEndpoints) Orders(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: func(w http.ResponseWriter, r *http.Request) error {
			orders, err := h.service.ListOrders(r.Context())
			if err != nil {
				return h.serviceError(err)
			}
			return WriteJSON(w, http.StatusOK, map[string]any{"orders": orders})
		},
		http.MethodPost: func(w http.ResponseWriter, r *http.Request) error {
			var req dto.CreateOrderRequest
			if err := decodeJSON(r, &req, "create order"); err != nil {
				return err
			}

			order, err := h.service.CreateOrder(r.Context(), admin.CreateOrderParams{
				UserID:      req.UserID,
				ProductType: req.ProductType,
				Quantity:    req.Quantity,
				Notes:       req.Notes,
			})
			if err != nil {
				return h.serviceError(err)
			}
			return WriteJSON(w, http.StatusCreated, order)
		},
	})
}

func (h *adminEndpoints) Order(w http.ResponseWriter, r *http.Request) error {
	id, rest := pathParam(r.URL.Path, h.paths.OrderPrefix)
	if id == "" || rest != "" {
		return notFound(r)
	}

	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPatch: func(w http.ResponseWriter, r *http.Request) error {
			var req dto.OrderStatusRequest
			if err := decodeJSON(r, &req, "order status"); err != nil {
				return err
			}

			order, err := h.service.UpdateOrderStatus(r.Context(), id, model.OrderStatus(req.Status))
			if err != nil {
				return h.serviceError(err)
			}
			return WriteJSON(w, http.StatusOK, order)
		},
	})
}

func (h *adminEndpoints) serviceError(err error) error {
	var svcErr *admin.Error
	if !errors.As(err, &svcErr) {
		return unexpectedError("admin", err)
	}
	return codedError(string(svcErr.Code), svcErr.Message, svcErr.Err)
}

func notFound(r *http.Request) error {
	return &HTTPError{
		StatusCode: http.StatusNotFound,
		Message:    "Not found",
		ErrorLog:   fmt.Errorf("no route for %s %s", r.Method, r.URL.Path),
	}
}
