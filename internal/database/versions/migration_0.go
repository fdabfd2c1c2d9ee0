package versions

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Conversation struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	Title string `gorm:"not null"`

	CreationTime time.Time `gorm:"index"`
	UpdatedAt    time.Time

	Messages []Message `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}

type Message struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	ConversationID uuid.UUID `gorm:"type:uuid;index;not null"`

	Role    string `gorm:"size:20;not null"`
	Content string

	Timestamp time.Time `gorm:"index"`
}

func Migration(txn *gorm.DB) error {
	return txn.AutoMigrate(&Conversation{}, &Message{})
}
