package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient 基于go-openai的大模型客户端
type OpenAIClient struct {
	client *openai.Client
	config *Config
}

// NewOpenAIClient 创建OpenAI客户端
func NewOpenAIClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)
	if cfg.APIKey == "" {
		return nil, NewLLMError(ErrCodeInvalidAPIKey, "API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
	}, nil
}

// Name 返回模型名称
func (c *OpenAIClient) Name() string {
	return c.config.Model
}

// Generate 调用Chat Completions接口生成回答
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, options ...GenerateOption) (*Response, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, NewLLMError(ErrCodeEmptyPrompt, "prompt cannot be empty")
	}

	opts := &GenerateOptions{}
	for _, opt := range options {
		opt(opts)
	}

	maxTokens := c.config.MaxTokens
	if opts.MaxTokens != nil {
		maxTokens = *opts.MaxTokens
	}
	temperature := c.config.Temperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if opts.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: opts.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return nil, classifyError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, NewLLMError(ErrCodeEmptyResponse, "no choices returned")
	}

	return &Response{
		Text:       strings.TrimSpace(resp.Choices[0].Message.Content),
		TokenCount: resp.Usage.TotalTokens,
		ModelName:  resp.Model,
		FinishTime: time.Now(),
	}, nil
}

// classifyError 将go-openai返回的错误映射为LLMError
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewLLMError(ErrCodeTimeout, err.Error())
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized:
			return NewLLMError(ErrCodeInvalidAPIKey, apiErr.Message)
		case http.StatusTooManyRequests:
			return NewLLMError(ErrCodeRateLimited, apiErr.Message)
		case http.StatusBadRequest:
			return NewLLMError(ErrCodeInvalidRequest, apiErr.Message)
		}
		if apiErr.HTTPStatusCode >= 500 {
			return NewLLMError(ErrCodeServerError, apiErr.Message)
		}
	}

	return WrapError(err, ErrCodeNetworkError)
}

func init() {
	RegisterClient("openai", NewOpenAIClient)
}
