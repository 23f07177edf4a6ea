package dto

type InquiryStatusRequest struct {
	Status string `json:"status"`
}

type OrderStatusRequest struct {
	Status string `json:"status"`
}

type CreateOrderRequest struct {
	UserID      string `json:"userId"`
	ProductType string `json:"productType"`
	Quantity    int    `json:"quantity"`
	Notes       string `json:"notes,omitempty"`
}

type InquiryRequest struct {
	Name         string `json:"name"`
	Company      string `json:"company"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	BusinessType string `json:"businessType"`
	Quantity     string `json:"quantity"`
	ProductType  string `json:"productType,omitempty"`
	Message      string `json:"message"`
}
