package parser

import (
	"fmt"
	"io"

	"github.com/dgallion1/docoutline/internal/doctree"
	"golang.org/x/net/html"
)

// HTMLParser handles HTML files. The <title> element, heading tags and
// <b>/<strong> markup are mapped onto synthetic typography so the outline
// builder can rank them like any typeset document. Everything is on page 1.
type HTMLParser struct{}

const htmlFamily = "html"

func (p *HTMLParser) Parse(r io.Reader, filename string) ([]doctree.Block, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	w := &htmlWalker{}
	if title := findElement(doc, "title"); title != nil {
		w.inline(title, doctree.FontSpan{Size: doctree.SizeFromPoints(titlePt), Family: htmlFamily, Flags: doctree.FlagBold})
		w.flush()
	}

	root := findElement(doc, "body")
	if root == nil {
		root = doc
	}
	w.walk(root)
	w.flush()

	return w.blocks, nil
}

type htmlWalker struct {
	line   lineBuilder
	blocks []doctree.Block
}

func (w *htmlWalker) flush() {
	w.blocks = w.line.flush(w.blocks, 1)
}

func (w *htmlWalker) body() doctree.FontSpan {
	return doctree.FontSpan{Size: doctree.SizeFromPoints(bodyPt), Family: htmlFamily}
}

func (w *htmlWalker) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		if level := headingLevel(n.Data); level > 0 {
			w.flush()
			w.inline(n, doctree.FontSpan{Size: headingSize(level), Family: htmlFamily, Flags: doctree.FlagBold})
			w.flush()
			return
		}

		switch n.Data {
		case "script", "style", "nav", "footer", "header", "head", "noscript", "template":
			return
		case "p", "li", "td", "th", "dt", "dd", "blockquote", "caption", "pre", "figcaption":
			w.flush()
			w.inline(n, w.body())
			w.flush()
			return
		case "br":
			w.flush()
			return
		}
	}

	if n.Type == html.TextNode {
		// Bare text directly inside a container such as <div>.
		w.line.add(n.Data, w.body())
		return
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
	if n.Type == html.ElementNode && isHTMLBlock(n.Data) {
		w.flush()
	}
}

// inline emits the text beneath n as one or more lines, splitting at <br>
// and nested block elements.
func (w *htmlWalker) inline(n *html.Node, span doctree.FontSpan) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			w.line.add(c.Data, span)
		case html.ElementNode:
			switch c.Data {
			case "script", "style", "noscript", "template":
				continue
			case "br":
				w.flush()
				continue
			}
			s := span
			switch c.Data {
			case "b", "strong":
				s.Flags |= doctree.FlagBold
			case "i", "em":
				s.Flags |= doctree.FlagItalic
			case "code", "kbd", "samp", "tt":
				s.Flags |= doctree.FlagMonospace
			case "sup":
				s.Flags |= doctree.FlagSuperscript
			}
			if isHTMLBlock(c.Data) {
				w.flush()
				w.inline(c, s)
				w.flush()
				continue
			}
			w.inline(c, s)
		}
	}
}

func isHTMLBlock(tag string) bool {
	switch tag {
	case "p", "div", "li", "ul", "ol", "table", "tr", "td", "th", "dl", "dt", "dd",
		"blockquote", "section", "article", "main", "aside", "pre", "figure", "figcaption", "caption":
		return true
	}
	return false
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}
