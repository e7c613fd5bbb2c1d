package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fyerfyer/doc-context/internal/serializer"
)

// CitationSystemPrompt 引用模式下的系统提示词
const CitationSystemPrompt = `You answer questions using ONLY the provided CONTEXT.
Each chunk in the context starts with an identifier such as [C1].
Every factual claim in your answer must cite the supporting chunk identifiers, for example [C1] or [C2, C3].
If the context does not contain the answer, say that you don't know. Do not guess.`

// DefaultRAGTemplate 默认RAG提示词模板
// 包含变量：
// {{.Question}} - 用户问题
// {{.Context}} - 序列化后的上下文
const DefaultRAGTemplate = `CONTEXT:
{{.Context}}

QUESTION: {{.Question}}`

// RAGConfig 检索增强生成配置
type RAGConfig struct {
	// 提示词模板
	Template string
	// 系统提示词
	SystemPrompt string
	// 最大Token数
	MaxTokens int
	// 温度参数
	Temperature float32
	// 超时时间
	Timeout time.Duration
	// 是否使用带引用ID的上下文
	WithCitations bool
}

// DefaultRAGConfig 默认RAG配置
func DefaultRAGConfig() *RAGConfig {
	return &RAGConfig{
		Template:      DefaultRAGTemplate,
		SystemPrompt:  CitationSystemPrompt,
		MaxTokens:     1024,
		Temperature:   0.2,
		Timeout:       30 * time.Second,
		WithCitations: true,
	}
}

// RAGService 基于引用上下文的问答服务
type RAGService struct {
	Client Client       // 大模型客户端
	config *RAGConfig   // 配置
	mu     sync.RWMutex // 配置互斥锁
}

// NewRAG 创建新的检索增强生成服务
func NewRAG(client Client, opts ...RAGOption) *RAGService {
	cfg := DefaultRAGConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return &RAGService{
		Client: client,
		config: cfg,
	}
}

// RAGOption RAG配置选项函数类型
type RAGOption func(*RAGConfig)

// WithTemplate 设置提示词模板
func WithTemplate(template string) RAGOption {
	return func(c *RAGConfig) {
		c.Template = template
	}
}

// WithRAGSystemPrompt 设置系统提示词
func WithRAGSystemPrompt(prompt string) RAGOption {
	return func(c *RAGConfig) {
		c.SystemPrompt = prompt
	}
}

// WithRAGMaxTokens 设置最大Token数
func WithRAGMaxTokens(tokens int) RAGOption {
	return func(c *RAGConfig) {
		c.MaxTokens = tokens
	}
}

// WithRAGTemperature 设置温度参数
func WithRAGTemperature(temp float32) RAGOption {
	return func(c *RAGConfig) {
		c.Temperature = temp
	}
}

// WithRAGTimeout 设置请求超时时间
func WithRAGTimeout(timeout time.Duration) RAGOption {
	return func(c *RAGConfig) {
		c.Timeout = timeout
	}
}

// WithPlainContext 使用不带引用ID的上下文，不解析引用
func WithPlainContext() RAGOption {
	return func(c *RAGConfig) {
		c.WithCitations = false
		c.SystemPrompt = ""
	}
}

// Answer 根据段落和问题生成回答
func (r *RAGService) Answer(ctx context.Context, question string, passages []serializer.Passage) (*RAGResponse, error) {
	if strings.TrimSpace(question) == "" {
		return nil, NewLLMError(ErrCodeEmptyPrompt, "question cannot be empty")
	}

	r.mu.RLock()
	cfg := *r.config
	r.mu.RUnlock()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	resp := newRAGResponse(cfg.WithCitations, passages)

	options := []GenerateOption{
		WithGenerateMaxTokens(cfg.MaxTokens),
		WithGenerateTemperature(cfg.Temperature),
	}
	if cfg.SystemPrompt != "" {
		options = append(options, WithSystemPrompt(cfg.SystemPrompt))
	}

	response, err := r.Client.Generate(ctxWithTimeout, buildPrompt(cfg.Template, question, resp.Context), options...)
	if err != nil {
		return nil, fmt.Errorf("failed to generate response: %w", err)
	}
	resp.attachAnswer(response.Text)

	return resp, nil
}

// BuildResponse 根据已有的回答文本重建响应，不调用模型
// 用于缓存命中时按当前段落重新生成上下文和引用
func (r *RAGService) BuildResponse(passages []serializer.Passage, answer string) *RAGResponse {
	r.mu.RLock()
	withCitations := r.config.WithCitations
	r.mu.RUnlock()

	resp := newRAGResponse(withCitations, passages)
	resp.attachAnswer(answer)
	return resp
}

// newRAGResponse 序列化段落，生成未填充回答的响应
func newRAGResponse(withCitations bool, passages []serializer.Passage) *RAGResponse {
	resp := &RAGResponse{
		Sources: []serializer.ResolvedCitation{},
		Unknown: []string{},
	}

	if withCitations {
		cited := serializer.SerializeChunksWithIDs(passages)
		resp.Context = cited.Context
		resp.Citations = cited.Citations
	} else {
		resp.Context = serializer.SerializeChunks(passages)
	}
	return resp
}

// attachAnswer 填充回答并解析其中的引用
func (resp *RAGResponse) attachAnswer(answer string) {
	resp.Answer = answer
	if resp.Citations != nil {
		resp.Sources, resp.Unknown = resp.Citations.Resolve(answer)
	}
}

// buildPrompt 构建增强提示词
func buildPrompt(template, question, contextText string) string {
	prompt := strings.ReplaceAll(template, "{{.Question}}", question)
	return strings.ReplaceAll(prompt, "{{.Context}}", contextText)
}

// SetTemplate 设置自定义提示词模板
func (r *RAGService) SetTemplate(template string) *RAGService {
	r.mu.Lock()
	r.config.Template = template
	r.mu.Unlock()
	return r
}
