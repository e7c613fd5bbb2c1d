// Package serializer 将检索到的文本段落格式化为供大模型使用的上下文
package serializer

import (
	"fmt"
	"strings"
)

const (
	// UnknownValue 元数据缺失时使用的默认值
	UnknownValue = "unknown"
	// SnippetLength 引用摘要截取的字符数
	SnippetLength = 100
	// SnippetSuffix 引用摘要后缀，始终追加
	SnippetSuffix = "..."

	blockSeparator = "\n\n"
)

// Passage 检索得到的文本段落
type Passage struct {
	Content  string   `json:"content"`  // 段落文本
	Metadata Metadata `json:"metadata"` // 附加元数据：page、page_number、source 等
}

// CitedContext 带引用ID的上下文及其引用表
type CitedContext struct {
	Context   string     `json:"context"`
	Citations *Citations `json:"citations"`
}

// ResolvePage 解析段落页码
// 优先使用page，page为假值(如0)时回退到page_number，都没有则为unknown
func ResolvePage(md Metadata) interface{} {
	if page, ok := md.Get("page"); ok && Truthy(page) {
		return page
	}
	return md.GetOr("page_number", UnknownValue)
}

// ResolveSource 解析段落来源
func ResolveSource(md Metadata) interface{} {
	return md.GetOr("source", UnknownValue)
}

// CitationID 生成第i个段落(从1开始)的引用ID
func CitationID(i int) string {
	return fmt.Sprintf("C%d", i)
}

// Snippet 截取内容前100个字符并追加省略号
func Snippet(content string) string {
	runes := []rune(strings.TrimSpace(content))
	if len(runes) > SnippetLength {
		runes = runes[:SnippetLength]
	}
	return string(runes) + SnippetSuffix
}

// SerializeChunks 将段落序列化为上下文字符串
// 每个段落格式为 "Chunk <i> (page=<p>):\n<content>"，段落之间以空行分隔
func SerializeChunks(passages []Passage) string {
	parts := make([]string, 0, len(passages))

	for i, p := range passages {
		header := fmt.Sprintf("Chunk %d (page=%s):", i+1, display(ResolvePage(p.Metadata)))
		parts = append(parts, header+"\n"+strings.TrimSpace(p.Content))
	}

	return strings.Join(parts, blockSeparator)
}

// SerializeChunksWithIDs 将段落序列化为带引用ID的上下文，并生成引用表
// 每个段落格式为 "[C<i>] Chunk from page <p>:\n<content>"
func SerializeChunksWithIDs(passages []Passage) CitedContext {
	parts := make([]string, 0, len(passages))
	citations := NewCitations()

	for i, p := range passages {
		id := CitationID(i + 1)
		page := ResolvePage(p.Metadata)
		content := strings.TrimSpace(p.Content)

		parts = append(parts, fmt.Sprintf("[%s] Chunk from page %s:\n%s", id, display(page), content))

		citations.Add(id, CitationRecord{
			Page:    page,
			Source:  ResolveSource(p.Metadata),
			Snippet: Snippet(content),
		})
	}

	return CitedContext{
		Context:   strings.Join(parts, blockSeparator),
		Citations: citations,
	}
}
