package model

import (
	"github.com/fyerfyer/doc-context/internal/serializer"
)

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`               // 响应状态码，0表示成功
	Message string      `json:"message"`            // 响应消息
	Data    interface{} `json:"data,omitempty"`     // 响应数据，可能为空
	TraceID string      `json:"trace_id,omitempty"` // 调用链追踪ID
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, message string) *Response {
	return &Response{
		Code:    code,
		Message: message,
	}
}

// ContextResponse 上下文序列化响应
type ContextResponse struct {
	Context string `json:"context"` // 序列化后的上下文
	Format  string `json:"format"`  // 输出格式
	Chunks  int    `json:"chunks"`  // 段落数量
}

// CitedContextResponse 带引用的上下文响应
type CitedContextResponse struct {
	Context   string                `json:"context"`   // 带引用ID的上下文
	Citations *serializer.Citations `json:"citations"` // 引用表，键顺序与段落顺序一致
}

// ResolveResponse 引用解析响应
type ResolveResponse struct {
	Sources []serializer.ResolvedCitation `json:"sources"` // 回答中引用的段落
	Unknown []string                      `json:"unknown"` // 引用表中不存在的ID
}

// QAResponse 问答响应
type QAResponse struct {
	Question string                        `json:"question"` // 用户问题
	Answer   string                        `json:"answer"`   // AI生成的回答
	Sources  []serializer.ResolvedCitation `json:"sources"`  // 回答中引用的段落
	Unknown  []string                      `json:"unknown"`  // 引用表中不存在的ID
}
