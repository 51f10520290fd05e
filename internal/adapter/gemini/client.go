// Package gemini adapts the Gemini API to the embedding and generation
// capabilities the ingestion and chat features consume.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"doculens/internal/fault"
)

const (
	embeddingModel = "gemini-embedding-001"
	// EmbeddingDims is the fixed dimensionality of the embedding model. The
	// index schema must match it.
	EmbeddingDims = 768

	generationModel = "gemini-flash-latest"
)

type Client struct {
	apiKey     string
	clientOpts []option.ClientOption

	mu     sync.Mutex
	client *genai.Client
}

func NewClient(apiKey string, opts ...option.ClientOption) *Client {
	return &Client{apiKey: apiKey, clientOpts: opts}
}

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "embedding content", "model", embeddingModel, "length", len(text))
	em := client.EmbeddingModel(embeddingModel)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fault.Upstream(fmt.Errorf("embed content: %w", err))
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fault.Upstreamf("empty embedding received")
	}
	return res.Embedding.Values, nil
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return "", err
	}

	model := client.GenerativeModel(generationModel)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fault.Upstream(fmt.Errorf("generate content: %w", err))
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fault.Upstreamf("no candidates in generation response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}

func (c *Client) getClient(ctx context.Context) (*genai.Client, error) {
	if c.apiKey == "" {
		return nil, fault.Configurationf("gemini api key not configured")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}

	opts := append([]option.ClientOption{option.WithAPIKey(c.apiKey)}, c.clientOpts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	c.client = client
	return client, nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}
