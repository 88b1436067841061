package chunking

import (
	"strings"

	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"
)

// MarkdownSplitter splits markdown into heading-bounded sections so a heading
// and the content under it land in adjacent chunk positions. Sections larger
// than the window are sub-split with the plain rune-window splitter, keeping
// the heading as its own leading chunk. Text without any heading falls back
// to the plain splitter entirely.
type MarkdownSplitter struct {
	fallback *Splitter
}

func NewMarkdownSplitter(chunkSize, overlap int) *MarkdownSplitter {
	return &MarkdownSplitter{fallback: NewSplitter(chunkSize, overlap)}
}

type section struct {
	heading string
	content []string
}

func (s *MarkdownSplitter) Split(text string) []string {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	doc := p.Parse([]byte(text))

	var sections []section
	current := section{}
	for _, node := range doc.GetChildren() {
		if heading, ok := node.(*ast.Heading); ok {
			if current.heading != "" || len(current.content) > 0 {
				sections = append(sections, current)
			}
			current = section{heading: headingText(heading)}
			continue
		}
		if body := nodeText(node); body != "" {
			current.content = append(current.content, body)
		}
	}
	if current.heading != "" || len(current.content) > 0 {
		sections = append(sections, current)
	}

	if !hasHeading(sections) {
		return s.fallback.Split(text)
	}

	var out []string
	for _, sec := range sections {
		out = append(out, s.splitSection(sec)...)
	}
	return out
}

func (s *MarkdownSplitter) splitSection(sec section) []string {
	body := strings.TrimSpace(strings.Join(sec.content, "\n\n"))
	if sec.heading == "" {
		return s.fallback.Split(body)
	}
	if body == "" {
		return []string{sec.heading}
	}

	combined := sec.heading + "\n" + body
	if len([]rune(combined)) <= s.fallback.size {
		return []string{combined}
	}
	return append([]string{sec.heading}, s.fallback.Split(body)...)
}

func hasHeading(sections []section) bool {
	for _, sec := range sections {
		if sec.heading != "" {
			return true
		}
	}
	return false
}

func headingText(heading *ast.Heading) string {
	return strings.TrimSpace(nodeText(heading))
}

// nodeText flattens a block node to plain text; markup is irrelevant for
// retrieval scoring.
func nodeText(node ast.Node) string {
	var b strings.Builder
	ast.WalkFunc(node, func(n ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		if leaf := n.AsLeaf(); leaf != nil && len(leaf.Literal) > 0 {
			if b.Len() > 0 {
				b.WriteString(" ")
			}
			b.Write(leaf.Literal)
		}
		return ast.GoToNext
	})
	return strings.TrimSpace(b.String())
}
