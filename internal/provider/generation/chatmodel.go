package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

type chatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// ChatBackend generates text through an eino chat model (OpenAI compatible or DeepSeek).
type ChatBackend struct {
	name      string
	model     chatModel
	modelName string
}

// NewOpenAI creates an OpenAI chat backend. An empty baseURL uses the public endpoint.
func NewOpenAI(ctx context.Context, apiKey, baseURL, modelName string, maxTokens int) (*ChatBackend, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	cfg := &openai.ChatModelConfig{
		APIKey:  apiKey,
		BaseURL: baseURL,
		Model:   modelName,
	}
	if maxTokens > 0 {
		cfg.MaxTokens = &maxTokens
	}
	cm, err := openai.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create openai chat model: %w", err)
	}
	return &ChatBackend{name: "openai", model: cm, modelName: modelName}, nil
}

// NewDeepSeek creates a DeepSeek chat backend.
func NewDeepSeek(ctx context.Context, apiKey, modelName string, maxTokens int) (*ChatBackend, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("deepseek api key is required")
	}
	cm, err := deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
		APIKey:    apiKey,
		Model:     modelName,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("create deepseek chat model: %w", err)
	}
	return &ChatBackend{name: "deepseek", model: cm, modelName: modelName}, nil
}

func (c *ChatBackend) Name() string { return c.name }

// Model returns the configured model name.
func (c *ChatBackend) Model() string { return c.modelName }

func (c *ChatBackend) Invoke(ctx context.Context, req Request) (string, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}
	msgs := make([]*schema.Message, 0, 2)
	if sys := strings.TrimSpace(req.Persona.SystemPrompt); sys != "" {
		msgs = append(msgs, schema.SystemMessage(sys))
	}
	msgs = append(msgs, schema.UserMessage(prompt))

	out, err := c.model.Generate(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("%s generate: %w", c.name, err)
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return "", fmt.Errorf("%s returned empty response", c.name)
	}
	return strings.TrimSpace(out.Content), nil
}
