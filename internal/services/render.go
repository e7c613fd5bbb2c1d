package services

import (
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// RenderHTML 将上下文文本渲染为HTML，用于向终端用户展示
// 段落中的原始HTML会被丢弃
func RenderHTML(text string) string {
	if text == "" {
		return ""
	}

	// parser不可复用，每次渲染单独创建
	mdParser := parser.NewWithExtensions(parser.CommonExtensions | parser.HardLineBreak)
	doc := mdParser.Parse([]byte(text))

	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.SkipHTML | html.HrefTargetBlank,
	})
	return string(markdown.Render(doc, renderer))
}
