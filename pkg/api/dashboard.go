package api

import (
	"time"

	"github.com/google/uuid"
)

type DashboardOverview struct {
	TotalConversations int64 `json:"total_conversations"`
	TotalMessages      int64 `json:"total_messages"`
	UserMessages       int64 `json:"user_messages"`
	AssistantMessages  int64 `json:"assistant_messages"`
	Messages7d         int64 `json:"messages_7d"`
	Messages30d        int64 `json:"messages_30d"`

	TotalStorageMB float64 `json:"total_storage_mb"`

	ContentTypeBreakdown      []ContentTypeStats         `json:"content_type_breakdown"`
	TopConversationsByStorage []ConversationStorageStats `json:"top_conversations_by_storage"`
}

type ConversationStorageStats struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	Title          string    `json:"title"`
	MessageCount   int64     `json:"message_count"`
	StorageMB      float64   `json:"storage_mb"`
	LastActivity   time.Time `json:"last_activity"`
}

type ContentTypeStats struct {
	ContentType string  `json:"content_type"`
	Count       int64   `json:"count"`
	Percentage  float64 `json:"percentage"` // rounded to 2 decimals
}

type TimeRangeStats struct {
	Date          string `json:"date"` // YYYY-MM-DD
	Conversations int64  `json:"conversations"`
	Messages      int64  `json:"messages"`
}
