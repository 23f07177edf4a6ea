package model

type InquiryStatus string

const (
	InquiryStatusNew       InquiryStatus = "new"
	InquiryStatusContacted InquiryStatus = "contacted"
	InquiryStatusConverted InquiryStatus = "converted"
	InquiryStatusRejected  InquiryStatus = "rejected"
)

func (s InquiryStatus) Valid() bool {
	switch s {
	case InquiryStatusNew, InquiryStatusContacted, InquiryStatusConverted, InquiryStatusRejected:
		return true
	}
	return false
}

type InquiryItem struct {
	ID           string        `dynamodbav:"id" json:"id"`
	Name         string        `dynamodbav:"name" json:"name"`
	Company      string        `dynamodbav:"company" json:"company"`
	Email        string        `dynamodbav:"email" json:"email"`
	Phone        string        `dynamodbav:"phone" json:"phone"`
	BusinessType string        `dynamodbav:"business_type" json:"business_type"`
	Quantity     string        `dynamodbav:"quantity" json:"quantity"`
	ProductType  string        `dynamodbav:"product_type,omitempty" json:"product_type,omitempty"`
	Message      string        `dynamodbav:"message" json:"message"`
	Status       InquiryStatus `dynamodbav:"status" json:"status"`
	CreatedAt    string        `dynamodbav:"created_at" json:"created_at"`
}
