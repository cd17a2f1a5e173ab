// Package markup handles novel body text: it converts Markdown source into
// HTML using goldmark and derives plain-text excerpts from marked-up bodies.
package markup

import (
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"

	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// EllipsisMarker is appended to excerpts cut short of the full body.
const EllipsisMarker = "..."

// md is the configured goldmark instance, reused across calls.
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,         // tables, strikethrough, autolinks, task lists
		extension.Typographer, // smart quotes and dashes
		highlighting.NewHighlighting( // fenced code blocks, rare in novels but harmless
			highlighting.WithStyle("monokai"),
			highlighting.WithFormatOptions(),
		),
	),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
	goldmark.WithRendererOptions(
		html.WithUnsafe(), // rich-text bodies predate the Markdown editor; raw HTML must pass through
	),
)

// tagPattern matches HTML tags, including ones spanning multiple lines.
var tagPattern = regexp.MustCompile(`(?s)<[^>]*>`)

// ToHTML converts Markdown source into HTML. Raw HTML embedded in the
// Markdown is passed through unchanged (WithUnsafe).
func ToHTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// StripTags removes all HTML tags from s, leaving only the text content.
func StripTags(s string) string {
	return tagPattern.ReplaceAllString(s, "")
}

// Excerpt derives a preview from a marked-up body: tags are stripped and the
// remaining text is cut to at most limit characters, with EllipsisMarker
// appended when the text was shortened.
func Excerpt(body string, limit int) string {
	text := StripTags(body)
	if utf8.RuneCountInString(text) <= limit {
		return text
	}

	runes := []rune(text)
	return strings.TrimRight(string(runes[:limit]), " \t\n") + EllipsisMarker
}
