package dto

type SendMessageRequest struct {
	Content         string `json:"content"`
	ClientMessageID string `json:"clientMessageId,omitempty"`
}
