package parser

import (
	"io"

	"github.com/dgallion1/docoutline/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark. Heading levels map to
// synthetic font sizes, strong emphasis to bold spans, and each thematic
// break (---) starts a new page, matching the page separator used when
// paginated documents are exported to Markdown.
type MarkdownParser struct{}

const markdownFamily = "markdown"

func (p *MarkdownParser) Parse(r io.Reader, filename string) ([]doctree.Block, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	m := &markdownWalker{src: src, page: 1}
	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.ThematicBreak:
			m.page++
			return ast.WalkSkipChildren, nil
		case *ast.Heading:
			m.inline(node, doctree.FontSpan{Size: headingSize(node.Level), Family: markdownFamily, Flags: doctree.FlagBold})
			m.flush()
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph, *ast.TextBlock:
			m.inline(node, m.body())
			m.flush()
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			m.codeLines(node)
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	return m.blocks, nil
}

type markdownWalker struct {
	src    []byte
	page   int
	line   lineBuilder
	blocks []doctree.Block
}

func (m *markdownWalker) body() doctree.FontSpan {
	return doctree.FontSpan{Size: doctree.SizeFromPoints(bodyPt), Family: markdownFamily}
}

func (m *markdownWalker) flush() {
	m.blocks = m.line.flush(m.blocks, m.page)
}

// inline emits the inline children of n with the given span, splitting lines
// at soft and hard line breaks.
func (m *markdownWalker) inline(n ast.Node, span doctree.FontSpan) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			m.line.add(string(node.Segment.Value(m.src)), span)
			if node.SoftLineBreak() || node.HardLineBreak() {
				m.flush()
			}
		case *ast.String:
			m.line.add(string(node.Value), span)
		case *ast.Emphasis:
			s := span
			if node.Level >= 2 {
				s.Flags |= doctree.FlagBold
			} else {
				s.Flags |= doctree.FlagItalic
			}
			m.inline(node, s)
		case *ast.CodeSpan:
			s := span
			s.Flags |= doctree.FlagMonospace
			m.inline(node, s)
		case *ast.RawHTML, *ast.Image:
			// Not part of the visible line text.
		default:
			m.inline(node, span)
		}
	}
}

func (m *markdownWalker) codeLines(n ast.Node) {
	span := m.body()
	span.Flags |= doctree.FlagMonospace
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		m.line.add(string(seg.Value(m.src)), span)
		m.flush()
	}
}
