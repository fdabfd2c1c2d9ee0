package database

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLite only supports one writer at a time, so we need a lock
// whenever we write to the database
var dbMutex sync.Mutex

// NewID returns a UUIDv7: a millisecond timestamp prefix followed by random
// bits, so ids generated on the same clock sort in creation order. Collisions
// are treated as acceptably improbable and are not detected.
func NewID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails if the random source does, fall back to v4.
		return uuid.New()
	}
	return id
}

// SaveConversation upserts the conversation by primary key, last write wins.
func SaveConversation(db *gorm.DB, conversation *Conversation) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(conversation).Error
}

func ListConversations(db *gorm.DB) ([]Conversation, error) {
	var conversations []Conversation
	err := db.Order("creation_time DESC").Find(&conversations).Error
	return conversations, err
}

// GetConversation returns nil, nil when the conversation does not exist.
// Absence is a result, not an error.
func GetConversation(db *gorm.DB, conversationID uuid.UUID) (*Conversation, error) {
	var conversation Conversation
	err := db.First(&conversation, "id = ?", conversationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

func UpdateConversationMetadata(db *gorm.DB, conversationID uuid.UUID, updates map[string]any) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()
	return db.Model(&Conversation{ID: conversationID}).Updates(updates).Error
}

// DeleteConversation removes the conversation and all of its messages in a
// single transaction, so no reader ever sees orphaned messages.
func DeleteConversation(db *gorm.DB, conversationID uuid.UUID) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()
	return db.Transaction(func(txn *gorm.DB) error {
		if err := txn.Delete(&Message{}, "conversation_id = ?", conversationID).Error; err != nil {
			return err
		}
		return txn.Delete(&Conversation{}, "id = ?", conversationID).Error
	})
}

// SaveMessage upserts the message by primary key.
func SaveMessage(db *gorm.DB, message *Message) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(message).Error
}

func ListMessages(db *gorm.DB, conversationID uuid.UUID) ([]Message, error) {
	var messages []Message
	err := db.Where("conversation_id = ?", conversationID).Order("timestamp ASC, id ASC").Find(&messages).Error
	return messages, err
}

// UpdateMessageContent fills in a placeholder message once the reply text is
// available. This is the only mutation a message ever sees.
func UpdateMessageContent(db *gorm.DB, messageID uuid.UUID, content string) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()
	return db.Model(&Message{ID: messageID}).Update("content", content).Error
}

// SetSetting upserts the value for a key. There is no history, the previous
// value is overwritten.
func SetSetting(db *gorm.DB, key string, value datatypes.JSON) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&Setting{Key: key, Value: value}).Error
}

// GetSetting returns nil when the key has never been set.
func GetSetting(db *gorm.DB, key string) (datatypes.JSON, error) {
	var setting Setting
	err := db.First(&setting, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading setting %s: %w", key, err)
	}
	return setting.Value, nil
}
