package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"chat-backend/internal/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrConversationNotFound = errors.New("conversation not found")

// Exporter writes conversation transcripts to an object store so they survive
// outside the database.
type Exporter struct {
	db    *gorm.DB
	store ObjectStore
}

func NewExporter(db *gorm.DB, store ObjectStore) *Exporter {
	return &Exporter{db: db, store: store}
}

type Transcript struct {
	Conversation database.Conversation `json:"conversation"`
	Messages     []database.Message    `json:"messages"`
}

func exportKey(conversationID uuid.UUID) string {
	return "exports/" + conversationID.String() + ".json"
}

// ExportConversation serializes the conversation and its ordered messages to
// JSON and uploads it, returning the object key.
func (e *Exporter) ExportConversation(ctx context.Context, conversationID uuid.UUID) (string, error) {
	conversation, err := database.GetConversation(e.db, conversationID)
	if err != nil {
		return "", fmt.Errorf("error loading conversation: %w", err)
	}
	if conversation == nil {
		return "", ErrConversationNotFound
	}

	messages, err := database.ListMessages(e.db, conversationID)
	if err != nil {
		return "", fmt.Errorf("error loading messages: %w", err)
	}

	transcript := Transcript{Conversation: *conversation, Messages: messages}
	data, err := json.MarshalIndent(transcript, "", "  ")
	if err != nil {
		return "", fmt.Errorf("error serializing transcript: %w", err)
	}

	key := exportKey(conversationID)
	if err := e.store.PutObject(ctx, key, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("error uploading transcript: %w", err)
	}

	return key, nil
}

// DeleteExports removes any exported transcripts for the conversation.
func (e *Exporter) DeleteExports(ctx context.Context, conversationID uuid.UUID) error {
	return e.store.DeleteObjects(ctx, exportKey(conversationID))
}
