package model

type ProfileItem struct {
	UserID       string `dynamodbav:"user_id" json:"user_id"`
	CompanyName  string `dynamodbav:"company_name" json:"company_name"`
	ContactName  string `dynamodbav:"contact_name" json:"contact_name"`
	Email        string `dynamodbav:"email" json:"email"`
	Phone        string `dynamodbav:"phone,omitempty" json:"phone,omitempty"`
	BusinessType string `dynamodbav:"business_type,omitempty" json:"business_type,omitempty"`
	CreatedAt    string `dynamodbav:"created_at" json:"created_at"`
}

type UserItem struct {
	Email        string `dynamodbav:"email"`
	UserID       string `dynamodbav:"user_id"`
	PasswordHash string `dynamodbav:"password_hash"`
	CreatedAt    string `dynamodbav:"created_at"`
}
