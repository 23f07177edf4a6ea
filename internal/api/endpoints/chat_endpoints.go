package endpoints

import (
	"errors"
	"fmt"
	"net/http"

	"garment-portal-backend/internal/dto"
	"garment-portal-backend/internal/service/chat"
)

type ChatEndpoints interface {
	DashboardChat(http.ResponseWriter, *http.Request) error
	WidgetChat(http.ResponseWriter, *http.Request) error
	ClientMessages(http.ResponseWriter, *http.Request) error
	AdminChat(http.ResponseWriter, *http.Request) error
}

type chatEndpoints struct {
	service *chat.Service
	// adminChatPrefix is the mux pattern of AdminChat, e.g.
	// "/api/client/v1/admin/chat/".
	adminChatPrefix string
}

func NewChatEndpoints(service *chat.Service, adminChatPrefix string) ChatEndpoints {
	return &chatEndpoints{service: service, adminChatPrefix: adminChatPrefix}
}

func (h *chatEndpoints) DashboardChat(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: func(w http.ResponseWriter, r *http.Request) error {
			return h.handleClientConversation(w, r, 0)
		},
	})
}

func (h *chatEndpoints) WidgetChat(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: func(w http.ResponseWriter, r *http.Request) error {
			return h.handleClientConversation(w, r, h.service.WidgetHistory())
		},
	})
}

// ClientMessages serves both the dashboard and the floating widget send.
func (h *chatEndpoints) ClientMessages(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleClientSend,
	})
}

func (h *chatEndpoints) AdminChat(w http.ResponseWriter, r *http.Request) error {
	conversationID, rest := pathParam(r.URL.Path, h.adminChatPrefix)
	if conversationID == "" {
		return &HTTPError{
			StatusCode: http.StatusNotFound,
			Message:    "conversation not found",
			ErrorLog:   fmt.Errorf("admin chat path without id: %s", r.URL.Path),
		}
	}

	switch rest {
	case "":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodGet: func(w http.ResponseWriter, r *http.Request) error {
				return h.handleAdminConversation(w, r, conversationID)
			},
		})
	case "messages":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodPost: func(w http.ResponseWriter, r *http.Request) error {
				return h.handleAdminSend(w, r, conversationID)
			},
		})
	}

	return &HTTPError{
		StatusCode: http.StatusNotFound,
		Message:    "Not found",
		ErrorLog:   fmt.Errorf("unknown admin chat path: %s", r.URL.Path),
	}
}

func (h *chatEndpoints) handleClientConversation(w http.ResponseWriter, r *http.Request, limit int) error {
	id, err := callerIdentity(r)
	if err != nil {
		return err
	}

	result, err := h.service.ClientConversation(r.Context(), id, limit)
	if err != nil {
		return h.serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, result)
}

func (h *chatEndpoints) handleClientSend(w http.ResponseWriter, r *http.Request) error {
	id, err := callerIdentity(r)
	if err != nil {
		return err
	}

	var req dto.SendMessageRequest
	if err := decodeJSON(r, &req, "send message"); err != nil {
		return err
	}

	result, err := h.service.ClientSend(r.Context(), id, req.Content, req.ClientMessageID)
	if err != nil {
		return h.serviceError(err)
	}
	return WriteJSON(w, http.StatusCreated, result)
}

func (h *chatEndpoints) handleAdminConversation(w http.ResponseWriter, r *http.Request, conversationID string) error {
	result, err := h.service.AdminConversation(r.Context(), conversationID)
	if err != nil {
		return h.serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, result)
}

func (h *chatEndpoints) handleAdminSend(w http.ResponseWriter, r *http.Request, conversationID string) error {
	id, err := callerIdentity(r)
	if err != nil {
		return err
	}

	var req dto.SendMessageRequest
	if err := decodeJSON(r, &req, "admin send message"); err != nil {
		return err
	}

	result, err := h.service.AdminSend(r.Context(), id, conversationID, req.Content, req.ClientMessageID)
	if err != nil {
		return h.serviceError(err)
	}
	return WriteJSON(w, http.StatusCreated, result)
}

func (h *chatEndpoints) serviceError(err error) error {
	var svcErr *chat.Error
	if !errors.As(err, &svcErr) {
		return unexpectedError("chat", err)
	}
	return codedError(string(svcErr.Code), svcErr.Message, svcErr.Err)
}
