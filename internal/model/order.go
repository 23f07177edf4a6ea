package model

type OrderStatus string

const (
	OrderStatusPending      OrderStatus = "pending"
	OrderStatusConfirmed    OrderStatus = "confirmed"
	OrderStatusProduction   OrderStatus = "production"
	OrderStatusQualityCheck OrderStatus = "quality_check"
	OrderStatusDispatched   OrderStatus = "dispatched"
	OrderStatusDelivered    OrderStatus = "delivered"
	OrderStatusCancelled    OrderStatus = "cancelled"
)

// OrderSteps is the production pipeline in display order.
var OrderSteps = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProduction,
	OrderStatusQualityCheck,
	OrderStatusDispatched,
	OrderStatusDelivered,
}

func (s OrderStatus) Valid() bool {
	return s == OrderStatusCancelled || s.Step() >= 0
}

// Step returns the index of s in OrderSteps, or -1.
func (s OrderStatus) Step() int {
	for i, step := range OrderSteps {
		if step == s {
			return i
		}
	}
	return -1
}

func (s OrderStatus) Active() bool {
	return s != OrderStatusDelivered && s != OrderStatusCancelled
}

type OrderItem struct {
	ID          string      `dynamodbav:"id" json:"id"`
	UserID      string      `dynamodbav:"user_id" json:"user_id"`
	OrderNumber string      `dynamodbav:"order_number" json:"order_number"`
	ProductType string      `dynamodbav:"product_type" json:"product_type"`
	Quantity    int         `dynamodbav:"quantity" json:"quantity"`
	Status      OrderStatus `dynamodbav:"status" json:"status"`
	Notes       string      `dynamodbav:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt   string      `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt   string      `dynamodbav:"updated_at" json:"updated_at"`
}
