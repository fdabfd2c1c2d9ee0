package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"chat-backend/internal/dashboard"
	"chat-backend/internal/database"
	pkgapi "chat-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newDashboardTestRouter(t *testing.T, authToken string) (chi.Router, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.GetMigrator(db).Migrate())

	service := NewDashboardService(dashboard.NewStats(db), authToken)
	router := chi.NewRouter()
	service.AddRoutes(router)
	return router, db
}

func seedTurn(t *testing.T, db *gorm.DB) {
	t.Helper()

	now := time.Now().UTC()
	conversation := database.Conversation{
		ID:           database.NewID(),
		Title:        "seeded",
		CreationTime: now,
		UpdatedAt:    now,
	}
	require.NoError(t, database.SaveConversation(db, &conversation))
	for _, role := range []string{database.RoleUser, database.RoleAssistant} {
		require.NoError(t, database.SaveMessage(db, &database.Message{
			ID:             database.NewID(),
			ConversationID: conversation.ID,
			Role:           role,
			Content:        "m",
			Timestamp:      now,
		}))
	}
}

func get(router chi.Router, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestDashboardEndpoints(t *testing.T) {
	router, db := newDashboardTestRouter(t, "")
	seedTurn(t, db)

	var overview pkgapi.DashboardOverview
	rec := doJSON(t, router, http.MethodGet, "/dashboard/overview", nil, &overview)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), overview.TotalConversations)
	assert.Equal(t, int64(2), overview.TotalMessages)

	var storage []pkgapi.ConversationStorageStats
	rec = doJSON(t, router, http.MethodGet, "/dashboard/conversations/storage?limit=5", nil, &storage)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, storage, 1)
	assert.Equal(t, int64(2), storage[0].MessageCount)

	var types []pkgapi.ContentTypeStats
	rec = doJSON(t, router, http.MethodGet, "/dashboard/content/types", nil, &types)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, types, 2)

	var series []pkgapi.TimeRangeStats
	rec = doJSON(t, router, http.MethodGet, "/dashboard/time-series?period=7d", nil, &series)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, series, 7)

	rec = doJSON(t, router, http.MethodGet, "/dashboard/time-series?period=1y", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboardBearerAuth(t *testing.T) {
	router, _ := newDashboardTestRouter(t, "dash-token")

	assert.Equal(t, http.StatusUnauthorized, get(router, "/dashboard/overview", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(router, "/dashboard/overview", "wrong").Code)
	assert.Equal(t, http.StatusOK, get(router, "/dashboard/overview", "dash-token").Code)
}

func TestDashboardClient(t *testing.T) {
	router, db := newDashboardTestRouter(t, "dash-token")
	seedTurn(t, db)

	server := httptest.NewServer(router)
	defer server.Close()

	client := dashboard.NewClient(server.URL, "dash-token")

	overview, err := client.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), overview.TotalConversations)

	storage, err := client.ConversationStorage(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, storage, 1)

	types, err := client.ContentTypes(context.Background())
	require.NoError(t, err)
	assert.Len(t, types, 2)

	series, err := client.TimeSeries(context.Background(), "30d")
	require.NoError(t, err)
	assert.Len(t, series, 30)

	// A client with the wrong token gets a status-bearing error.
	_, err = dashboard.NewClient(server.URL, "wrong").Overview(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
