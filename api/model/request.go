package model

import (
	"github.com/fyerfyer/doc-context/internal/serializer"
)

// 上下文输出格式
const (
	FormatText = "text"
	FormatHTML = "html"
)

// ContextRequest 上下文序列化请求
type ContextRequest struct {
	Passages []serializer.Passage `json:"passages" binding:"required"`                // 检索得到的段落，按顺序排列
	Format   string               `json:"format" binding:"omitempty,oneof=text html"` // 输出格式，默认text
}

// GetFormat 获取输出格式，默认为text
func (r *ContextRequest) GetFormat() string {
	if r.Format == "" {
		return FormatText
	}
	return r.Format
}

// ResolveRequest 引用解析请求
type ResolveRequest struct {
	Answer    string                `json:"answer"`                       // 模型生成的回答，可为空
	Citations *serializer.Citations `json:"citations" binding:"required"` // 序列化时返回的引用表
}

// QARequest 问答请求
type QARequest struct {
	Question string               `json:"question" binding:"required"` // 问题内容
	Passages []serializer.Passage `json:"passages" binding:"required"` // 作为上下文的段落
}
