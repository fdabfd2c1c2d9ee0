package llm_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"chat-backend/internal/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletionChoicesShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"X"}}]}`)) //nolint:errcheck
	}))
	defer server.Close()

	gateway := llm.NewGateway(server.URL)
	gateway.SetCredential("secret")

	var calls []string
	err := gateway.Completion(context.Background(), []llm.ChatMessage{{Role: "user", Content: "hi"}}, "m1", func(content string) {
		calls = append(calls, content)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"X"}, calls)
}

func TestCompletionSingleMessageShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":{"role":"assistant","content":"Y"}}`)) //nolint:errcheck
	}))
	defer server.Close()

	gateway := llm.NewGateway(server.URL)

	var calls []string
	err := gateway.Completion(context.Background(), nil, "m1", func(content string) {
		calls = append(calls, content)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Y"}, calls)
}

func TestCompletionUnrecognizedShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	}))
	defer server.Close()

	gateway := llm.NewGateway(server.URL)

	calls := 0
	err := gateway.Completion(context.Background(), nil, "m1", func(string) { calls++ })
	assert.ErrorIs(t, err, llm.ErrNoContent)
	assert.Zero(t, calls)
}

func TestCompletionHTTPErrorIncludesStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer server.Close()

	gateway := llm.NewGateway(server.URL)

	err := gateway.Completion(context.Background(), nil, "m1", func(string) {
		t.Fatal("callback must not fire on failure")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestListModelsPrimaryEndpoint(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Equal(t, "/v1/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"id":"m1"},{"id":"m2","name":"Model Two"}]}`)) //nolint:errcheck
	}))
	defer server.Close()

	gateway := llm.NewGateway(server.URL)

	models := gateway.ListModels(context.Background())
	assert.Equal(t, []llm.ModelInfo{{ID: "m1", Name: "m1"}, {ID: "m2", Name: "Model Two"}}, models)

	// Second call is served from the cache.
	gateway.ListModels(context.Background())
	assert.Equal(t, 1, requests)

	// Changing the credential drops the cache.
	gateway.SetCredential("new-token")
	gateway.ListModels(context.Background())
	assert.Equal(t, 2, requests)
}

func TestListModelsFallbackEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/models" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"models":[{"name":"llama3","model":"llama3:latest"}]}`)) //nolint:errcheck
	}))
	defer server.Close()

	gateway := llm.NewGateway(server.URL)

	models := gateway.ListModels(context.Background())
	assert.Equal(t, []llm.ModelInfo{{ID: "llama3:latest", Name: "llama3"}}, models)
}

func TestListModelsTotalFailureReturnsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	gateway := llm.NewGateway(server.URL)

	models := gateway.ListModels(context.Background())
	assert.Empty(t, models)
}

func TestValidateCredential(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"data":[]}`)) //nolint:errcheck
	}))
	defer server.Close()

	gateway := llm.NewGateway(server.URL)

	gateway.SetCredential("good")
	assert.True(t, gateway.ValidateCredential(context.Background()))

	gateway.SetCredential("bad")
	assert.False(t, gateway.ValidateCredential(context.Background()))

	unreachable := llm.NewGateway("http://127.0.0.1:1")
	assert.False(t, unreachable.ValidateCredential(context.Background()))
}
