package integrationtests

import (
	"context"
	"testing"
	"time"

	"chat-backend/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The unit tests cover the store against SQLite; this checks the same
// contract holds on Postgres, migrations included.
func TestPostgresStore(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	uri := setupPostgresContainer(t, ctx)

	db, err := database.NewDatabase(uri)
	require.NoError(t, err)

	conversation := database.Conversation{
		ID:           database.NewID(),
		Title:        database.DefaultTitle,
		CreationTime: time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	require.NoError(t, database.SaveConversation(db, &conversation))

	// Upsert by primary key, last write wins.
	conversation.Title = "updated"
	require.NoError(t, database.SaveConversation(db, &conversation))

	fetched, err := database.GetConversation(db, conversation.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, "updated", fetched.Title)

	base := time.Now().UTC()
	for i, content := range []string{"first", "second"} {
		require.NoError(t, database.SaveMessage(db, &database.Message{
			ID:             database.NewID(),
			ConversationID: conversation.ID,
			Role:           database.RoleUser,
			Content:        content,
			Timestamp:      base.Add(time.Duration(i) * time.Second),
		}))
	}

	messages, err := database.ListMessages(db, conversation.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "first", messages[0].Content)

	// Atomic cascade delete.
	require.NoError(t, database.DeleteConversation(db, conversation.ID))

	fetched, err = database.GetConversation(db, conversation.ID)
	require.NoError(t, err)
	assert.Nil(t, fetched)

	messages, err = database.ListMessages(db, conversation.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)
}
