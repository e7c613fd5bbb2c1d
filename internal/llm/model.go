package llm

import (
	"time"

	"github.com/fyerfyer/doc-context/internal/serializer"
)

// Response 统一的响应结构
type Response struct {
	Text       string    // 生成的文本
	TokenCount int       // 使用的token数
	ModelName  string    // 使用的模型名称
	FinishTime time.Time // 完成时间
}

// RAGResponse RAG响应结构
type RAGResponse struct {
	Answer    string                        `json:"answer"`              // 回答内容
	Context   string                        `json:"context"`             // 发送给模型的上下文
	Citations *serializer.Citations         `json:"citations,omitempty"` // 本次调用生成的引用表
	Sources   []serializer.ResolvedCitation `json:"sources"`             // 回答中实际引用的段落
	Unknown   []string                      `json:"unknown"`             // 回答中出现但引用表中不存在的ID
}

// 常用模型名称
const (
	ModelGPT4oMini = "gpt-4o-mini"
	ModelGPT4o     = "gpt-4o"
)
