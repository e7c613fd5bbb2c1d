package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fyerfyer/doc-context/internal/cache"
	"github.com/fyerfyer/doc-context/internal/llm"
	"github.com/fyerfyer/doc-context/internal/serializer"
	"github.com/sirupsen/logrus"
)

// NoContextAnswer 没有任何段落时的固定回答
const NoContextAnswer = "Sorry, no relevant information was provided to answer this question."

// QAService 问答服务
// 将调用方提供的段落交给RAG生成带引用的回答
type QAService struct {
	rag      *llm.RAGService // RAG服务
	cache    cache.Cache     // 缓存，可为nil
	cacheTTL time.Duration   // 缓存有效期
	logger   *logrus.Logger  // 日志记录器
}

// QAOption 问答服务配置选项
type QAOption func(*QAService)

// NewQAService 创建问答服务实例
func NewQAService(rag *llm.RAGService, c cache.Cache, opts ...QAOption) *QAService {
	service := &QAService{
		rag:      rag,
		cache:    c,
		cacheTTL: 24 * time.Hour,
		logger:   logrus.New(),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service
}

// WithCacheTTL 设置缓存时间
func WithCacheTTL(ttl time.Duration) QAOption {
	return func(s *QAService) {
		s.cacheTTL = ttl
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) QAOption {
	return func(s *QAService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Answer 基于段落回答问题
func (s *QAService) Answer(ctx context.Context, question string, passages []serializer.Passage) (*llm.RAGResponse, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question cannot be empty")
	}

	if len(passages) == 0 {
		return &llm.RAGResponse{
			Answer:    NoContextAnswer,
			Citations: serializer.NewCitations(),
			Sources:   []serializer.ResolvedCitation{},
			Unknown:   []string{},
		}, nil
	}

	// 1. 尝试从缓存获取回答文本，上下文和引用按当前段落重建
	cacheKey := s.cacheKey(question, passages)
	if cacheKey != "" {
		if cached, found, err := s.cache.Get(cacheKey); err == nil && found {
			s.logger.WithField("question", question).Debug("Answer served from cache")
			return s.rag.BuildResponse(passages, cached), nil
		} else if err != nil {
			s.logger.WithError(err).Warn("Cache lookup failed")
		}
	}

	// 2. 使用RAG生成回答
	resp, err := s.rag.Answer(ctx, question, passages)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	if len(resp.Unknown) > 0 {
		s.logger.WithFields(logrus.Fields{
			"question": question,
			"unknown":  resp.Unknown,
		}).Warn("Answer cites chunks that were not in the context")
	}

	// 3. 缓存回答文本
	if cacheKey != "" {
		if err := s.cache.Set(cacheKey, resp.Answer, s.cacheTTL); err != nil {
			s.logger.WithError(err).Warn("Failed to cache answer")
		}
	}

	return resp, nil
}

// cacheKey 根据问题和段落生成缓存键
func (s *QAService) cacheKey(question string, passages []serializer.Passage) string {
	if s.cache == nil {
		return ""
	}
	parts := append([]string{question}, passageParts(passages)...)
	return cache.GenerateCacheKey("qa", cache.HashKey(parts...))
}
