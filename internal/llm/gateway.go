package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-resty/resty/v2"
)

// ErrNoContent is returned by Completion when the response matches neither of
// the known payload shapes.
var ErrNoContent = errors.New("no content in completion response")

type ModelInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer is the part of the gateway the chat controller depends on.
type Completer interface {
	Completion(ctx context.Context, history []ChatMessage, modelID string, onContent func(string)) error
}

// Gateway talks to an OpenAI-compatible completion service at a fixed base
// URL. The bearer credential lives in memory only; persisting it is the
// caller's business. There is no retry, every call is one request.
type Gateway struct {
	client *resty.Client

	mu     sync.Mutex
	token  string
	models []ModelInfo
}

var _ Completer = (*Gateway)(nil)

func NewGateway(baseURL string) *Gateway {
	return &Gateway{client: resty.New().SetBaseURL(baseURL)}
}

// SetCredential stores the bearer token used on subsequent calls. The cached
// model list is dropped since another credential may see different models.
func (g *Gateway) SetCredential(token string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.token = token
	g.models = nil
}

func (g *Gateway) request(ctx context.Context) *resty.Request {
	g.mu.Lock()
	token := g.token
	g.mu.Unlock()

	req := g.client.R().SetContext(ctx)
	if token != "" {
		req.SetAuthToken(token)
	}
	return req
}

type openAIModelList struct {
	Data []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"data"`
}

type ollamaModelList struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

// ListModels queries the primary model-listing endpoint and falls back to the
// ollama-style endpoint if that fails. The result is cached in memory after
// the first success. Total failure yields an empty list rather than an error
// so callers stay usable without models.
func (g *Gateway) ListModels(ctx context.Context) []ModelInfo {
	g.mu.Lock()
	cached := g.models
	g.mu.Unlock()
	if cached != nil {
		return cached
	}

	models, err := g.listOpenAIModels(ctx)
	if err != nil {
		slog.Warn("primary model listing failed, trying fallback endpoint", "error", err)
		models, err = g.listOllamaModels(ctx)
	}
	if err != nil {
		slog.Error("model listing failed on both endpoints", "error", err)
		return []ModelInfo{}
	}

	g.mu.Lock()
	g.models = models
	g.mu.Unlock()

	return models
}

func (g *Gateway) listOpenAIModels(ctx context.Context) ([]ModelInfo, error) {
	var body openAIModelList
	res, err := g.request(ctx).SetResult(&body).Get("/v1/models")
	if err != nil {
		return nil, fmt.Errorf("model listing request failed: %w", err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("model listing failed with status %d", res.StatusCode())
	}
	if body.Data == nil {
		return nil, fmt.Errorf("model listing response has unexpected shape")
	}

	models := make([]ModelInfo, 0, len(body.Data))
	for _, m := range body.Data {
		name := m.Name
		if name == "" {
			name = m.ID
		}
		models = append(models, ModelInfo{ID: m.ID, Name: name})
	}
	return models, nil
}

func (g *Gateway) listOllamaModels(ctx context.Context) ([]ModelInfo, error) {
	var body ollamaModelList
	res, err := g.request(ctx).SetResult(&body).Get("/api/tags")
	if err != nil {
		return nil, fmt.Errorf("fallback model listing request failed: %w", err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("fallback model listing failed with status %d", res.StatusCode())
	}
	if body.Models == nil {
		return nil, fmt.Errorf("fallback model listing response has unexpected shape")
	}

	models := make([]ModelInfo, 0, len(body.Models))
	for _, m := range body.Models {
		id := m.Model
		if id == "" {
			id = m.Name
		}
		models = append(models, ModelInfo{ID: id, Name: m.Name})
	}
	return models, nil
}

type completionRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// completionResponse is a union of the two dialects the service is known to
// speak: the choices-array form and the bare single-message form. It is
// decoded once here; callers never probe response fields themselves.
type completionResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
	Message *ChatMessage `json:"message"`
}

// Completion submits the full ordered history as one non-streaming request
// and invokes onContent exactly once with the reply text.
func (g *Gateway) Completion(ctx context.Context, history []ChatMessage, modelID string, onContent func(string)) error {
	var body completionResponse
	res, err := g.request(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(completionRequest{Model: modelID, Messages: history, Stream: false}).
		SetResult(&body).
		Post("/v1/chat/completions")
	if err != nil {
		return fmt.Errorf("completion request failed: %w", err)
	}
	if res.IsError() {
		return fmt.Errorf("completion request failed with status %d: %s", res.StatusCode(), res.String())
	}

	switch {
	case len(body.Choices) > 0:
		onContent(body.Choices[0].Message.Content)
	case body.Message != nil:
		onContent(body.Message.Content)
	default:
		return ErrNoContent
	}

	return nil
}

// ValidateCredential checks whether the current credential is accepted by the
// service, reusing the model-listing endpoint as a liveness probe. Transport
// errors count as a rejected credential.
func (g *Gateway) ValidateCredential(ctx context.Context) bool {
	res, err := g.request(ctx).Get("/v1/models")
	return err == nil && !res.IsError()
}
