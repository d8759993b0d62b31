package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultCallTimeout = 60 * time.Second
	embedCacheSize     = 2048
)

// Request describes one judge completion call. Credentials travel with the
// request because each evaluator config names its own key env var and
// endpoint.
type Request struct {
	APIKey      string
	BaseURL     string
	Model       string
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// EmbedRequest describes one embedding call.
type EmbedRequest struct {
	APIKey  string
	BaseURL string
	Model   string
	Text    string
}

// Client is the provider capability the network-bound evaluators depend on.
// Both calls are bounded by a per-call timeout; a stalled provider never
// blocks the rest of the run.
type Client interface {
	Call(ctx context.Context, req Request) (string, error)
	Embed(ctx context.Context, req EmbedRequest) ([]float64, error)
}

// OpenAI talks to the OpenAI API (or any compatible endpoint via BaseURL).
// Embedding vectors are cached for the process lifetime so repeated texts
// cost one call.
type OpenAI struct {
	Timeout time.Duration

	mu      sync.Mutex
	clients map[string]*openai.Client
	embeds  *lru.Cache[string, []float64]
}

func NewOpenAI() *OpenAI {
	embeds, _ := lru.New[string, []float64](embedCacheSize)
	return &OpenAI{
		Timeout: defaultCallTimeout,
		clients: make(map[string]*openai.Client),
		embeds:  embeds,
	}
}

func (o *OpenAI) Call(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout())
	defer cancel()

	slog.Debug("judge call", "model", req.Model)
	resp, err := o.client(req.APIKey, req.BaseURL).CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("provider returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAI) Embed(ctx context.Context, req EmbedRequest) ([]float64, error) {
	cacheKey := req.Model + "\x00" + req.Text
	if vec, ok := o.embeds.Get(cacheKey); ok {
		return vec, nil
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout())
	defer cancel()

	resp, err := o.client(req.APIKey, req.BaseURL).CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(req.Model),
		Input: []string{req.Text},
	})
	if err != nil {
		return nil, fmt.Errorf("embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("provider returned no embedding")
	}
	vec := make([]float64, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float64(v)
	}
	o.embeds.Add(cacheKey, vec)
	return vec, nil
}

func (o *OpenAI) timeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return defaultCallTimeout
}

func (o *OpenAI) client(apiKey, baseURL string) *openai.Client {
	o.mu.Lock()
	defer o.mu.Unlock()
	key := apiKey + "\x00" + baseURL
	if c, ok := o.clients[key]; ok {
		return c
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	c := openai.NewClientWithConfig(cfg)
	o.clients[key] = c
	return c
}
