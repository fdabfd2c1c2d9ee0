package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"chat-backend/internal/database"
	"chat-backend/internal/llm"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	titleLimit   = 50
	previewLimit = 80
)

// Controller sequences chat turns into store and gateway calls. The sending
// guard allows one turn in flight at a time; the conversation and model for a
// turn are arguments to Send, so concurrent callers can never route a turn
// into each other's conversation.
type Controller struct {
	db      *gorm.DB
	gateway llm.Completer

	mu      sync.Mutex
	sending bool
}

func NewController(db *gorm.DB, gateway llm.Completer) *Controller {
	return &Controller{db: db, gateway: gateway}
}

// NewConversation creates an empty, default-titled conversation.
func (c *Controller) NewConversation() (*database.Conversation, error) {
	now := time.Now().UTC()
	conversation := database.Conversation{
		ID:           database.NewID(),
		Title:        database.DefaultTitle,
		CreationTime: now,
		UpdatedAt:    now,
	}
	if err := database.SaveConversation(c.db, &conversation); err != nil {
		return nil, fmt.Errorf("error creating conversation: %w", err)
	}

	return &conversation, nil
}

// beginSend takes the sending guard. It reports false when a send is already
// running or any precondition is missing; both are silent no-ops.
func (c *Controller) beginSend(conversationID uuid.UUID, model, text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sending || strings.TrimSpace(text) == "" || model == "" || conversationID == uuid.Nil {
		return false
	}

	c.sending = true
	return true
}

func (c *Controller) endSend() {
	c.mu.Lock()
	c.sending = false
	c.mu.Unlock()
}

// Send runs one chat turn against the given conversation and model: persist
// the user message, persist an empty assistant placeholder, load the history,
// request a completion, and fill the placeholder with the reply. A completion
// failure is written into the placeholder as inline error text; the user
// message is never rolled back. Returns nil, nil when the send was a no-op.
func (c *Controller) Send(ctx context.Context, conversationID uuid.UUID, model, text string) (*database.Message, error) {
	if !c.beginSend(conversationID, model, text) {
		return nil, nil
	}
	defer c.endSend()

	now := time.Now().UTC()
	userMessage := database.Message{
		ID:             database.NewID(),
		ConversationID: conversationID,
		Role:           database.RoleUser,
		Content:        text,
		Timestamp:      now,
	}
	if err := database.SaveMessage(c.db, &userMessage); err != nil {
		return nil, fmt.Errorf("error saving user message: %w", err)
	}

	placeholder := database.Message{
		ID:             database.NewID(),
		ConversationID: conversationID,
		Role:           database.RoleAssistant,
		Content:        "",
		Timestamp:      now.Add(time.Millisecond),
	}
	if err := database.SaveMessage(c.db, &placeholder); err != nil {
		return nil, fmt.Errorf("error saving assistant placeholder: %w", err)
	}

	reply, err := c.complete(ctx, conversationID, placeholder.ID, model)
	if err != nil {
		// The turn stays recorded; the failure becomes the reply text.
		slog.Error("chat turn failed", "conversation_id", conversationID, "error", err)
		reply = fmt.Sprintf("Error: %v", err)
	}

	if err := database.UpdateMessageContent(c.db, placeholder.ID, reply); err != nil {
		return nil, fmt.Errorf("error updating assistant message: %w", err)
	}
	placeholder.Content = reply

	if err := c.updateConversationMetadata(conversationID, text); err != nil {
		slog.Error("error updating conversation metadata", "conversation_id", conversationID, "error", err)
	}

	return &placeholder, nil
}

func (c *Controller) complete(ctx context.Context, conversationID, placeholderID uuid.UUID, model string) (string, error) {
	messages, err := database.ListMessages(c.db, conversationID)
	if err != nil {
		return "", fmt.Errorf("error loading chat history: %w", err)
	}

	history := make([]llm.ChatMessage, 0, len(messages))
	for _, msg := range messages {
		if msg.ID == placeholderID {
			continue
		}
		history = append(history, llm.ChatMessage{Role: msg.Role, Content: msg.Content})
	}

	var reply string
	if err := c.gateway.Completion(ctx, history, model, func(content string) {
		reply = content
	}); err != nil {
		return "", err
	}

	return reply, nil
}

func (c *Controller) updateConversationMetadata(conversationID uuid.UUID, userText string) error {
	conversation, err := database.GetConversation(c.db, conversationID)
	if err != nil || conversation == nil {
		return err
	}

	updates := map[string]any{
		"preview":    Truncate(userText, previewLimit),
		"updated_at": time.Now().UTC(),
	}
	if conversation.Title == database.DefaultTitle {
		updates["title"] = Truncate(userText, titleLimit)
	}

	return database.UpdateConversationMetadata(c.db, conversationID, updates)
}

// Truncate cuts s to limit characters, marking the cut with an ellipsis.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
