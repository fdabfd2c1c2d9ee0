package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	RoleUser      string = "user"
	RoleAssistant string = "assistant"
)

// DefaultTitle is the title a conversation is created with. A conversation
// keeps it until the first user message replaces it.
const DefaultTitle = "New Chat"

type Conversation struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	Title   string `gorm:"not null"`
	Preview string

	CreationTime time.Time `gorm:"index"`
	UpdatedAt    time.Time

	Messages []Message `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}

type Message struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	ConversationID uuid.UUID `gorm:"type:uuid;index;not null"`

	Role    string `gorm:"size:20;not null"` // "user" or "assistant"
	Content string

	Timestamp time.Time `gorm:"index"`
}

type Setting struct {
	Key   string         `gorm:"primaryKey;size:255"`
	Value datatypes.JSON `gorm:"type:jsonb"`
}
