package api

import (
	"chat-backend/internal/database"
	"chat-backend/pkg/api"
)

func toConversationMetadata(conversation database.Conversation) api.ConversationMetadata {
	return api.ConversationMetadata{
		ID:           conversation.ID,
		Title:        conversation.Title,
		Preview:      conversation.Preview,
		CreationTime: conversation.CreationTime,
		UpdatedAt:    conversation.UpdatedAt,
	}
}

func toMessageItem(message database.Message) api.MessageItem {
	return api.MessageItem{
		ID:        message.ID,
		Role:      message.Role,
		Content:   message.Content,
		Timestamp: message.Timestamp,
	}
}
