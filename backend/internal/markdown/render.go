// Package markdown renders notification markdown to sanitized HTML.
package markdown

import (
	"bytes"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func New() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.Table, extension.Strikethrough),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)

	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("align").OnElements("td", "th")

	return &Renderer{md: md, policy: policy}
}

// Render converts markdown to HTML. Raw HTML in the input is dropped by goldmark and the
// result is passed through the sanitizer regardless.
func (r *Renderer) Render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return strings.TrimSpace(r.policy.Sanitize(buf.String())), nil
}

var escaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", `*`, `\*`, `_`, `\_`, `[`, `\[`, `]`, `\]`,
	`#`, `\#`, `|`, `\|`, `<`, `\<`, `>`, `\>`, `!`, `\!`, `~`, `\~`,
)

// Escape makes user supplied text render literally inside markdown.
func Escape(text string) string {
	return escaper.Replace(strings.ReplaceAll(text, "\n", " "))
}
