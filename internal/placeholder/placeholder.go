// Package placeholder handles template variables embedded in step bodies.
//
// A variable is written as a markdown link whose destination is the literal
// string "placeholder" and whose text is the mustache-style name:
//
//	Hi [{{lead.first_name}}](placeholder), saw your post.
//
// Renderers must show these links as variable chips, and rewriting
// (AI enhancement) must keep them byte-for-byte.
package placeholder

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Href is the link destination that marks a placeholder
const Href = "placeholder"

var (
	nameRe  = regexp.MustCompile(`^\{\{\s*([\w-]+)\.([\w.-]+)\s*\}\}$`)
	tokenRe = regexp.MustCompile(`\[\{\{\s*([\w-]+)\.([\w.-]+)\s*\}\}\]\(placeholder\)`)
)

// Placeholder is a single namespace.key variable reference
type Placeholder struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
}

// Name returns "namespace.key"
func (p Placeholder) Name() string {
	return p.Namespace + "." + p.Key
}

// String returns the markdown token for p
func (p Placeholder) String() string {
	return Token(p.Namespace, p.Key)
}

// Token builds the markdown token inserted by the editor
func Token(namespace, key string) string {
	return fmt.Sprintf("[{{%s.%s}}](%s)", namespace, key, Href)
}

// ParseName parses link text of the form {{namespace.key}}
func ParseName(s string) (Placeholder, bool) {
	m := nameRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Placeholder{}, false
	}
	return Placeholder{Namespace: m[1], Key: m[2]}, true
}

// Extract returns the placeholders referenced in markdown, in document order
// and without duplicates. Tokens inside code spans or fenced blocks are not
// links and are ignored.
func Extract(markdown string) []Placeholder {
	src := []byte(markdown)
	doc := goldmark.DefaultParser().Parse(text.NewReader(src))

	var out []Placeholder
	seen := make(map[string]bool)
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		link, ok := n.(*ast.Link)
		if !ok {
			return ast.WalkContinue, nil
		}
		if p, ok := fromLink(link, src); ok && !seen[p.Name()] {
			seen[p.Name()] = true
			out = append(out, p)
		}
		return ast.WalkSkipChildren, nil
	})
	return out
}

func fromLink(link *ast.Link, src []byte) (Placeholder, bool) {
	if string(link.Destination) != Href {
		return Placeholder{}, false
	}
	return ParseName(nodeText(link, src))
}

// nodeText concatenates the literal text below n. goldmark splits text at
// delimiter characters such as '_', so a single name may span several nodes.
func nodeText(n ast.Node, src []byte) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(src))
		case *ast.String:
			sb.Write(t.Value)
		default:
			sb.WriteString(nodeText(c, src))
		}
	}
	return sb.String()
}

// Missing lists placeholders present in original but absent from rewritten
func Missing(original, rewritten string) []Placeholder {
	kept := make(map[string]bool)
	for _, p := range scan(rewritten) {
		kept[p.Name()] = true
	}

	var missing []Placeholder
	for _, p := range scan(original) {
		if !kept[p.Name()] {
			missing = append(missing, p)
		}
	}
	return missing
}

// scan finds raw tokens without parsing markdown, so it also sees tokens that
// a rewrite placed inside code.
func scan(s string) []Placeholder {
	var out []Placeholder
	seen := make(map[string]bool)
	for _, m := range tokenRe.FindAllStringSubmatch(s, -1) {
		p := Placeholder{Namespace: m[1], Key: m[2]}
		if !seen[p.Name()] {
			seen[p.Name()] = true
			out = append(out, p)
		}
	}
	return out
}
