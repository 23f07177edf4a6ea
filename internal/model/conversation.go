package model

type ConversationStatus string

const (
	ConversationStatusOpen ConversationStatus = "open"
)

type SenderRole string

const (
	SenderRoleClient SenderRole = "client"
	SenderRoleAdmin  SenderRole = "admin"
)

func (r SenderRole) Valid() bool {
	return r == SenderRoleClient || r == SenderRoleAdmin
}

type ConversationItem struct {
	ID        string             `dynamodbav:"id" json:"id"`
	UserID    string             `dynamodbav:"user_id" json:"user_id"`
	Subject   string             `dynamodbav:"subject,omitempty" json:"subject,omitempty"`
	Status    ConversationStatus `dynamodbav:"status" json:"status"`
	CreatedAt string             `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt string             `dynamodbav:"updated_at" json:"updated_at"`
}

type MessageItem struct {
	ID              string     `dynamodbav:"id" json:"id"`
	ConversationID  string     `dynamodbav:"conversation_id" json:"conversation_id"`
	SenderID        string     `dynamodbav:"sender_id" json:"sender_id"`
	SenderRole      SenderRole `dynamodbav:"sender_role" json:"sender_role"`
	Content         string     `dynamodbav:"content" json:"content"`
	ClientMessageID string     `dynamodbav:"client_message_id,omitempty" json:"client_message_id,omitempty"`
	CreatedAt       string     `dynamodbav:"created_at" json:"created_at"`
}

// MessageLess orders messages by creation time, then id.
func MessageLess(a, b MessageItem) bool {
	if a.CreatedAt != b.CreatedAt {
		return a.CreatedAt < b.CreatedAt
	}
	return a.ID < b.ID
}
