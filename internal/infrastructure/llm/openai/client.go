package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/verirag/verirag/internal/core/domain"
	"github.com/verirag/verirag/internal/infrastructure/resilience"
)

const (
	defaultEmbeddingModel  = "text-embedding-3-small"
	defaultGenerationModel = "gpt-4o-mini"
	defaultTimeout         = 60 * time.Second
)

// Settings is validated once at construction; the same embedding model serves
// ingestion and query time so indexed and query vectors stay comparable.
type Settings struct {
	APIKey          string
	BaseURL         string
	EmbeddingModel  string
	GenerationModel string
	Timeout         time.Duration
}

type Client struct {
	api             *goopenai.Client
	embeddingModel  string
	generationModel string
	timeout         time.Duration
	executor        *resilience.Executor
}

func New(settings Settings, executor *resilience.Executor) (*Client, error) {
	if strings.TrimSpace(settings.APIKey) == "" {
		return nil, domain.WrapError(domain.ErrConfiguration, "openai client", errors.New("api key is required"))
	}
	if settings.EmbeddingModel == "" {
		settings.EmbeddingModel = defaultEmbeddingModel
	}
	if settings.GenerationModel == "" {
		settings.GenerationModel = defaultGenerationModel
	}
	if settings.Timeout <= 0 {
		settings.Timeout = defaultTimeout
	}

	cfg := goopenai.DefaultConfig(settings.APIKey)
	if settings.BaseURL != "" {
		cfg.BaseURL = settings.BaseURL
	}

	return &Client{
		api:             goopenai.NewClientWithConfig(cfg),
		embeddingModel:  settings.EmbeddingModel,
		generationModel: settings.GenerationModel,
		timeout:         settings.Timeout,
		executor:        executor,
	}, nil
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var resp goopenai.EmbeddingResponse
	call := func(callCtx context.Context) error {
		callCtx, cancel := context.WithTimeout(callCtx, e.client.timeout)
		defer cancel()

		var err error
		resp, err = e.client.api.CreateEmbeddings(callCtx, goopenai.EmbeddingRequest{
			Model: goopenai.EmbeddingModel(e.client.embeddingModel),
			Input: texts,
		})
		return err
	}

	if err := e.client.execute(ctx, "openai.embed", call); err != nil {
		return nil, wrapUpstream("embed", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response size mismatch: %d/%d", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, item := range resp.Data {
		vec := make([]float32, len(item.Embedding))
		for j, x := range item.Embedding {
			vec[j] = float32(x)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

const verifierSystemPrompt = `You are a document question-answering assistant that must ground every answer in the supplied context and honestly score its own faithfulness. Respond with a single JSON object and nothing else.`

// GenerateVerified runs one chat completion in JSON mode and returns the raw
// structured payload text for the verifier to parse.
func (g *Generator) GenerateVerified(ctx context.Context, prompt string) (string, error) {
	var resp goopenai.ChatCompletionResponse
	call := func(callCtx context.Context) error {
		callCtx, cancel := context.WithTimeout(callCtx, g.client.timeout)
		defer cancel()

		var err error
		resp, err = g.client.api.CreateChatCompletion(callCtx, goopenai.ChatCompletionRequest{
			Model: g.client.generationModel,
			ResponseFormat: &goopenai.ChatCompletionResponseFormat{
				Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
			},
			Messages: []goopenai.ChatCompletionMessage{
				{Role: goopenai.ChatMessageRoleSystem, Content: verifierSystemPrompt},
				{Role: goopenai.ChatMessageRoleUser, Content: prompt},
			},
		})
		return err
	}

	if err := g.client.execute(ctx, "openai.generate", call); err != nil {
		return "", wrapUpstream("generate", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty chat completion response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *Client) execute(ctx context.Context, operation string, call func(context.Context) error) error {
	if c.executor == nil {
		return call(ctx)
	}
	return c.executor.Execute(ctx, operation, call, classifyAPIError)
}
