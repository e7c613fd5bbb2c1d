package services

import (
	"context"
	"fmt"
	"time"

	"github.com/fyerfyer/doc-context/internal/cache"
	"github.com/fyerfyer/doc-context/internal/serializer"
	"github.com/sirupsen/logrus"
)

// ContextService 上下文序列化服务
// 在序列化器外层增加缓存和日志
type ContextService struct {
	cache    cache.Cache    // 缓存，可为nil
	cacheTTL time.Duration  // 缓存有效期
	logger   *logrus.Logger // 日志记录器
}

// ContextOption 上下文服务配置选项
type ContextOption func(*ContextService)

// NewContextService 创建上下文服务
func NewContextService(c cache.Cache, opts ...ContextOption) *ContextService {
	service := &ContextService{
		cache:    c,
		cacheTTL: time.Hour,
		logger:   logrus.New(),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service
}

// WithContextCacheTTL 设置缓存时间
func WithContextCacheTTL(ttl time.Duration) ContextOption {
	return func(s *ContextService) {
		s.cacheTTL = ttl
	}
}

// WithContextLogger 设置日志记录器
func WithContextLogger(logger *logrus.Logger) ContextOption {
	return func(s *ContextService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Serialize 生成普通格式的上下文
func (s *ContextService) Serialize(ctx context.Context, passages []serializer.Passage) string {
	key := s.cacheKey("ctx", passages)
	if cached, ok := s.lookup(key); ok {
		return cached
	}

	text := serializer.SerializeChunks(passages)
	s.store(key, text)

	s.logger.WithFields(logrus.Fields{
		"passages": len(passages),
		"length":   len(text),
	}).Debug("Serialized context")

	return text
}

// SerializeWithCitations 生成带引用ID的上下文和引用表
// 引用记录保留元数据的原始值类型，结果不经过缓存
func (s *ContextService) SerializeWithCitations(ctx context.Context, passages []serializer.Passage) serializer.CitedContext {
	result := serializer.SerializeChunksWithIDs(passages)

	s.logger.WithFields(logrus.Fields{
		"passages":  len(passages),
		"citations": result.Citations.Len(),
	}).Debug("Serialized context with citations")

	return result
}

// cacheKey 根据段落内容生成缓存键，缓存不可用时返回空字符串
func (s *ContextService) cacheKey(prefix string, passages []serializer.Passage) string {
	if s.cache == nil {
		return ""
	}
	return cache.GenerateCacheKey(prefix, cache.HashKey(passageParts(passages)...))
}

// passageParts 将段落展开为参与摘要的原始字节串
// 元数据按键排序输出，字符串中的非法UTF-8以转义形式保留
func passageParts(passages []serializer.Passage) []string {
	parts := make([]string, 0, len(passages)*2)
	for _, p := range passages {
		parts = append(parts, p.Content, fmt.Sprintf("%#v", map[string]interface{}(p.Metadata)))
	}
	return parts
}

// lookup 从缓存读取，出错时只记录日志
func (s *ContextService) lookup(key string) (string, bool) {
	if key == "" {
		return "", false
	}
	value, found, err := s.cache.Get(key)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Cache lookup failed")
		return "", false
	}
	return value, found
}

// store 原样写入缓存，出错时只记录日志
func (s *ContextService) store(key, value string) {
	if key == "" {
		return
	}
	if err := s.cache.Set(key, value, s.cacheTTL); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Cache write failed")
	}
}
