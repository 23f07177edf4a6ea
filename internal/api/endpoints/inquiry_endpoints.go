package endpoints

import (
	"errors"
	"net/http"

	"garment-portal-backend/internal/dto"
	"garment-portal-backend/internal/service/inquiry"
)

type InquiryEndpoints interface {
	Submit(http.ResponseWriter, *http.Request) error
}

type inquiryEndpoints struct {
	service *inquiry.Service
}

func NewInquiryEndpoints(service *inquiry.Service) InquiryEndpoints {
	return &inquiryEndpoints{service: service}
}

func (h *inquiryEndpoints) Submit(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleSubmit,
	})
}

func (h *inquiryEndpoints) handleSubmit(w http.ResponseWriter, r *http.Request) error {
	var req dto.InquiryRequest
	if err := decodeJSON(r, &req, "inquiry"); err != nil {
		return err
	}

	item, err := h.service.Submit(r.Context(), inquiry.Form{
		Name:         req.Name,
		Company:      req.Company,
		Email:        req.Email,
		Phone:        req.Phone,
		BusinessType: req.BusinessType,
		Quantity:     req.Quantity,
		ProductType:  req.ProductType,
		Message:      req.Message,
	})
	if err != nil {
		var svcErr *inquiry.Error
		if !errors.As(err, &svcErr) {
			return unexpectedError("inquiry", err)
		}
		return codedError(string(svcErr.Code), svcErr.Message, svcErr.Err)
	}

	return WriteJSON(w, http.StatusCreated, item)
}
