package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/docoutline/internal/doctree"
)

func TestHTMLParser_TitleHeadingsAndInlineBold(t *testing.T) {
	input := `<html><head><title>Annual Report</title><style>p { color: red }</style></head>
<body>
<nav>Menu</nav>
<h1>Overview</h1>
<p>Some <b>bold</b> text<br>next line</p>
<h3>Details</h3>
<div>Loose text</div>
<script>track()</script>
</body></html>`

	p := &HTMLParser{}
	blocks, err := p.Parse(strings.NewReader(input), "report.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body := span(11, htmlFamily, 0)
	assertBlocks(t, blocks, []doctree.Block{
		{Text: "Annual Report", Fonts: []doctree.FontSpan{span(28, htmlFamily, doctree.FlagBold)}, Page: 1},
		{Text: "Overview", Fonts: []doctree.FontSpan{span(24, htmlFamily, doctree.FlagBold)}, Page: 1},
		{Text: "Some bold text", Fonts: []doctree.FontSpan{body, span(11, htmlFamily, doctree.FlagBold), body}, Page: 1},
		{Text: "next line", Fonts: []doctree.FontSpan{body}, Page: 1},
		{Text: "Details", Fonts: []doctree.FontSpan{span(15, htmlFamily, doctree.FlagBold)}, Page: 1},
		{Text: "Loose text", Fonts: []doctree.FontSpan{body}, Page: 1},
	})
}

func TestHTMLParser_ListAndTableCells(t *testing.T) {
	input := `<ul><li>first</li><li>second</li></ul><table><tr><th>Name</th><td>Value</td></tr></table>`
	p := &HTMLParser{}
	blocks, err := p.Parse(strings.NewReader(input), "list.htm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"first", "second", "Name", "Value"}
	if len(blocks) != len(want) {
		t.Fatalf("expected %d blocks, got %d: %+v", len(want), len(blocks), blocks)
	}
	for i, w := range want {
		if blocks[i].Text != w {
			t.Errorf("block[%d]: expected %q, got %q", i, w, blocks[i].Text)
		}
	}
}

func TestHTMLParser_NoBody(t *testing.T) {
	p := &HTMLParser{}
	blocks, err := p.Parse(strings.NewReader(""), "empty.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocks) != 0 {
		t.Errorf("expected 0 blocks, got %d", len(blocks))
	}
}
