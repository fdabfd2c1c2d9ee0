package api

import (
	"time"

	"github.com/google/uuid"
)

type ConversationMetadata struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	Preview      string    `json:"preview"`
	CreationTime time.Time `json:"creation_time"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type ListConversationsResponse struct {
	Conversations []ConversationMetadata `json:"conversations"`
}

type CreateConversationResponse struct {
	ConversationID string `json:"conversation_id"`
}

type RenameConversationRequest struct {
	Title string `json:"title"`
}

type SendMessageRequest struct {
	Model   string `json:"model"`
	Message string `json:"message"`
}

type MessageItem struct {
	ID        uuid.UUID `json:"id"`
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// SendMessageResponse carries the assistant's reply. Reply is null when the
// send was a no-op (blank input, no model, or a send already in flight).
type SendMessageResponse struct {
	Reply *MessageItem `json:"reply"`
}

type ListMessagesResponse struct {
	Messages []MessageItem `json:"messages"`
}

type ModelInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ListModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

type ApiKey struct {
	ApiKey string `json:"api_key"`
}

type ValidateKeyResponse struct {
	Valid bool `json:"valid"`
}

type ExportConversationResponse struct {
	Key string `json:"key"`
}
