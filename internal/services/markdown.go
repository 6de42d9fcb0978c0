package services

import (
	"bytes"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

// mdRenderer drops raw HTML from its input, leaving a "raw HTML omitted"
// comment in its place (WithUnsafe is not set).
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

var insightPolicy = bluemonday.UGCPolicy()

// RenderMarkdown turns AI-generated markdown into sanitised HTML.
func RenderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(insightPolicy.SanitizeBytes(buf.Bytes()))
}
