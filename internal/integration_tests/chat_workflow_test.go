package integrationtests

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	internalapi "chat-backend/internal/api"
	"chat-backend/internal/dashboard"
	"chat-backend/internal/database"
	"chat-backend/internal/llm"
	"chat-backend/internal/storage"
	"chat-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLLMServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"id": "test-model"}},
		})
	})
	mux.HandleFunc("POST /v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []llm.ChatMessage `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Messages)

		last := req.Messages[len(req.Messages)-1]
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{
					"role":    "assistant",
					"content": "echo: " + last.Content,
				}},
			},
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestChatWorkflow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	uri := setupPostgresContainer(t, ctx)
	db, err := database.NewDatabase(uri)
	require.NoError(t, err)

	llmServer := newLLMServer(t)
	gateway := llm.NewGateway(llmServer.URL)

	objectStore, err := storage.NewLocalObjectStore(t.TempDir())
	require.NoError(t, err)

	r := chi.NewRouter()
	internalapi.NewChatService(db, gateway, storage.NewExporter(db, objectStore)).AddRoutes(r)
	internalapi.NewDashboardService(dashboard.NewStats(db), "").AddRoutes(r)

	require.NoError(t, httpRequest(r, http.MethodPost, "/chat/api-key", api.ApiKey{ApiKey: "sk-test"}, nil))

	var models api.ListModelsResponse
	require.NoError(t, httpRequest(r, http.MethodGet, "/chat/models", nil, &models))
	require.Len(t, models.Models, 1)
	assert.Equal(t, "test-model", models.Models[0].ID)

	var created api.CreateConversationResponse
	require.NoError(t, httpRequest(r, http.MethodPost, "/chat/conversations", nil, &created))

	base := fmt.Sprintf("/chat/conversations/%s", created.ConversationID)

	var sent api.SendMessageResponse
	require.NoError(t, httpRequest(r, http.MethodPost, base+"/messages", api.SendMessageRequest{
		Model:   "test-model",
		Message: "hello there",
	}, &sent))
	require.NotNil(t, sent.Reply)
	assert.Equal(t, "echo: hello there", sent.Reply.Content)

	var history api.ListMessagesResponse
	require.NoError(t, httpRequest(r, http.MethodGet, base+"/messages", nil, &history))
	require.Len(t, history.Messages, 2)
	assert.Equal(t, database.RoleUser, history.Messages[0].Role)
	assert.Equal(t, database.RoleAssistant, history.Messages[1].Role)

	var conversations api.ListConversationsResponse
	require.NoError(t, httpRequest(r, http.MethodGet, "/chat/conversations", nil, &conversations))
	require.Len(t, conversations.Conversations, 1)
	assert.Equal(t, "hello there", conversations.Conversations[0].Title)
	assert.Equal(t, "hello there", conversations.Conversations[0].Preview)

	require.NoError(t, httpRequest(r, http.MethodPost, base+"/rename", api.RenameConversationRequest{Title: "renamed"}, nil))

	var exported api.ExportConversationResponse
	require.NoError(t, httpRequest(r, http.MethodPost, base+"/export", nil, &exported))
	assert.NotEmpty(t, exported.Key)

	var overview api.DashboardOverview
	require.NoError(t, httpRequest(r, http.MethodGet, "/dashboard/overview", nil, &overview))
	assert.Equal(t, int64(1), overview.TotalConversations)
	assert.Equal(t, int64(2), overview.TotalMessages)
	assert.Equal(t, int64(1), overview.UserMessages)
	assert.Equal(t, int64(1), overview.AssistantMessages)

	require.NoError(t, httpRequest(r, http.MethodDelete, base, nil, nil))

	require.NoError(t, httpRequest(r, http.MethodGet, "/chat/conversations", nil, &conversations))
	assert.Empty(t, conversations.Conversations)
}
