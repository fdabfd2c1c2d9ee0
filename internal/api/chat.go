package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"chat-backend/internal/chat"
	"chat-backend/internal/database"
	"chat-backend/internal/llm"
	"chat-backend/internal/storage"
	"chat-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SettingAPIKey is the settings key the LLM credential is persisted under.
const SettingAPIKey = "llm_api_key"

type ChatService struct {
	db         *gorm.DB
	gateway    *llm.Gateway
	controller *chat.Controller
	exporter   *storage.Exporter
}

func NewChatService(db *gorm.DB, gateway *llm.Gateway, exporter *storage.Exporter) *ChatService {
	service := &ChatService{
		db:         db,
		gateway:    gateway,
		controller: chat.NewController(db, gateway),
		exporter:   exporter,
	}

	// Push a previously persisted credential into the gateway so the service
	// is usable right after a restart.
	if key, err := loadAPIKey(db); err != nil {
		slog.Error("error loading persisted api key", "error", err)
	} else if key != "" {
		gateway.SetCredential(key)
	}

	return service
}

func (s *ChatService) AddRoutes(r chi.Router) {
	r.Route("/chat", func(r chi.Router) {
		r.Get("/models", RestHandler(s.GetModels))
		r.Get("/conversations", RestHandler(s.GetConversations))
		r.Post("/conversations", RestHandler(s.CreateConversation))
		r.Get("/conversations/{conversation_id}", RestHandler(s.GetConversation))
		r.Post("/conversations/{conversation_id}/rename", RestHandler(s.RenameConversation))
		r.Delete("/conversations/{conversation_id}", RestHandler(s.DeleteConversation))
		r.Post("/conversations/{conversation_id}/messages", RestHandler(s.SendMessage))
		r.Get("/conversations/{conversation_id}/messages", RestHandler(s.GetMessages))
		r.Post("/conversations/{conversation_id}/export", RestHandler(s.ExportConversation))
		r.Get("/api-key", RestHandler(s.GetApiKey))
		r.Post("/api-key", RestHandler(s.SetApiKey))
		r.Post("/api-key/validate", RestHandler(s.ValidateApiKey))
	})
}

func (s *ChatService) GetModels(r *http.Request) (any, error) {
	models := s.gateway.ListModels(r.Context())

	resp := api.ListModelsResponse{Models: make([]api.ModelInfo, 0, len(models))}
	for _, m := range models {
		resp.Models = append(resp.Models, api.ModelInfo{ID: m.ID, Name: m.Name})
	}
	return resp, nil
}

func (s *ChatService) GetConversations(r *http.Request) (any, error) {
	conversations, err := database.ListConversations(s.db)
	if err != nil {
		slog.Error("error listing conversations", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to list conversations")
	}

	resp := api.ListConversationsResponse{Conversations: make([]api.ConversationMetadata, 0, len(conversations))}
	for _, conversation := range conversations {
		resp.Conversations = append(resp.Conversations, toConversationMetadata(conversation))
	}
	return resp, nil
}

func (s *ChatService) CreateConversation(r *http.Request) (any, error) {
	conversation, err := s.controller.NewConversation()
	if err != nil {
		slog.Error("error creating conversation", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to create conversation")
	}

	return api.CreateConversationResponse{ConversationID: conversation.ID.String()}, nil
}

func (s *ChatService) GetConversation(r *http.Request) (any, error) {
	conversationID, err := URLParamUUID(r, "conversation_id")
	if err != nil {
		return nil, err
	}

	conversation, err := database.GetConversation(s.db, conversationID)
	if err != nil {
		slog.Error("error getting conversation", "conversation_id", conversationID, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to get conversation")
	}
	if conversation == nil {
		return nil, CodedErrorf(http.StatusNotFound, "conversation not found")
	}

	return toConversationMetadata(*conversation), nil
}

func (s *ChatService) RenameConversation(r *http.Request) (any, error) {
	conversationID, err := URLParamUUID(r, "conversation_id")
	if err != nil {
		return nil, err
	}
	req, err := ParseRequest[api.RenameConversationRequest](r)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{"title": req.Title, "updated_at": time.Now().UTC()}
	if err := database.UpdateConversationMetadata(s.db, conversationID, updates); err != nil {
		slog.Error("error renaming conversation", "conversation_id", conversationID, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to rename conversation")
	}

	return nil, nil
}

func (s *ChatService) DeleteConversation(r *http.Request) (any, error) {
	conversationID, err := URLParamUUID(r, "conversation_id")
	if err != nil {
		return nil, err
	}

	if err := database.DeleteConversation(s.db, conversationID); err != nil {
		slog.Error("error deleting conversation", "conversation_id", conversationID, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to delete conversation")
	}

	if err := s.exporter.DeleteExports(r.Context(), conversationID); err != nil {
		slog.Warn("error deleting conversation exports", "conversation_id", conversationID, "error", err)
	}

	return nil, nil
}

func (s *ChatService) SendMessage(r *http.Request) (any, error) {
	conversationID, err := URLParamUUID(r, "conversation_id")
	if err != nil {
		return nil, err
	}
	req, err := ParseRequest[api.SendMessageRequest](r)
	if err != nil {
		return nil, err
	}

	conversation, err := database.GetConversation(s.db, conversationID)
	if err != nil {
		slog.Error("error getting conversation", "conversation_id", conversationID, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to get conversation")
	}
	if conversation == nil {
		return nil, CodedErrorf(http.StatusNotFound, "conversation not found")
	}

	reply, err := s.controller.Send(r.Context(), conversationID, req.Model, req.Message)
	if err != nil {
		slog.Error("error sending message", "conversation_id", conversationID, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to send message")
	}
	if reply == nil {
		// Guarded no-op: blank input, no model, or a send already in flight.
		return api.SendMessageResponse{}, nil
	}

	item := toMessageItem(*reply)
	return api.SendMessageResponse{Reply: &item}, nil
}

func (s *ChatService) GetMessages(r *http.Request) (any, error) {
	conversationID, err := URLParamUUID(r, "conversation_id")
	if err != nil {
		return nil, err
	}

	messages, err := database.ListMessages(s.db, conversationID)
	if err != nil {
		slog.Error("error listing messages", "conversation_id", conversationID, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to list messages")
	}

	resp := api.ListMessagesResponse{Messages: make([]api.MessageItem, 0, len(messages))}
	for _, message := range messages {
		resp.Messages = append(resp.Messages, toMessageItem(message))
	}
	return resp, nil
}

func (s *ChatService) ExportConversation(r *http.Request) (any, error) {
	conversationID, err := URLParamUUID(r, "conversation_id")
	if err != nil {
		return nil, err
	}

	key, err := s.exporter.ExportConversation(r.Context(), conversationID)
	if errors.Is(err, storage.ErrConversationNotFound) {
		return nil, CodedErrorf(http.StatusNotFound, "conversation not found")
	}
	if err != nil {
		slog.Error("error exporting conversation", "conversation_id", conversationID, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to export conversation")
	}

	return api.ExportConversationResponse{Key: key}, nil
}

func (s *ChatService) GetApiKey(r *http.Request) (any, error) {
	key, err := loadAPIKey(s.db)
	if err != nil {
		slog.Error("error loading api key", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to load api key")
	}

	return api.ApiKey{ApiKey: key}, nil
}

func (s *ChatService) SetApiKey(r *http.Request) (any, error) {
	req, err := ParseRequest[api.ApiKey](r)
	if err != nil {
		return nil, err
	}

	value, err := json.Marshal(req.ApiKey)
	if err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to serialize api key")
	}
	if err := database.SetSetting(s.db, SettingAPIKey, datatypes.JSON(value)); err != nil {
		slog.Error("error persisting api key", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to persist api key")
	}

	s.gateway.SetCredential(req.ApiKey)

	return nil, nil
}

func (s *ChatService) ValidateApiKey(r *http.Request) (any, error) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	return api.ValidateKeyResponse{Valid: s.gateway.ValidateCredential(ctx)}, nil
}

func loadAPIKey(db *gorm.DB) (string, error) {
	value, err := database.GetSetting(db, SettingAPIKey)
	if err != nil || value == nil {
		return "", err
	}

	var key string
	if err := json.Unmarshal(value, &key); err != nil {
		return "", err
	}
	return key, nil
}
