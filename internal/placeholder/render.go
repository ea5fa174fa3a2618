package placeholder

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/charmbracelet/glamour"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

var htmlMarkdown = goldmark.New(
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
		renderer.WithNodeRenderers(util.Prioritized(&chipRenderer{}, 100)),
	),
)

// RenderHTML converts markdown to HTML. Placeholder links become
// <span class="placeholder-chip"> elements instead of anchors.
func RenderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := htmlMarkdown.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.String(), nil
}

// chipRenderer overrides link rendering of the default HTML renderer
type chipRenderer struct{}

func (r *chipRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindLink, r.renderLink)
}

func (r *chipRenderer) renderLink(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*ast.Link)

	if p, ok := fromLink(n, source); ok {
		if entering {
			name := util.EscapeHTML([]byte(p.Name()))
			_, _ = w.WriteString(`<span class="placeholder-chip" data-placeholder="`)
			_, _ = w.Write(name)
			_, _ = w.WriteString(`">{{`)
			_, _ = w.Write(name)
			_, _ = w.WriteString(`}}</span>`)
		}
		return ast.WalkSkipChildren, nil
	}

	// Malformed names still never become anchors
	if string(n.Destination) == Href {
		if entering {
			_, _ = w.WriteString(`<span class="placeholder-chip placeholder-invalid">`)
			_, _ = w.Write(util.EscapeHTML([]byte(nodeText(n, source))))
			_, _ = w.WriteString(`</span>`)
		}
		return ast.WalkSkipChildren, nil
	}

	if !entering {
		_, _ = w.WriteString("</a>")
		return ast.WalkContinue, nil
	}
	_, _ = w.WriteString(`<a href="`)
	if !html.IsDangerousURL(n.Destination) {
		_, _ = w.Write(util.EscapeHTML(util.URLEscape(n.Destination, true)))
	}
	_ = w.WriteByte('"')
	if n.Title != nil {
		_, _ = w.WriteString(` title="`)
		_, _ = w.Write(util.EscapeHTML(n.Title))
		_ = w.WriteByte('"')
	}
	_ = w.WriteByte('>')
	return ast.WalkContinue, nil
}

// RenderTerminal renders markdown for a terminal using glamour. Placeholders
// are shown as inline code so they stand out from the prose.
func RenderTerminal(markdown string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create terminal renderer: %w", err)
	}

	out, err := r.Render(chipsAsCode(markdown))
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}

var looseTokenRe = regexp.MustCompile(`\[([^\]\n]*)\]\(placeholder\)`)

func chipsAsCode(markdown string) string {
	markdown = tokenRe.ReplaceAllString(markdown, "`{{$1.$2}}`")
	return looseTokenRe.ReplaceAllString(markdown, "`$1`")
}
