package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/docoutline/internal/doctree"
)

func TestTextParser_FirstLineIsCaption(t *testing.T) {
	input := "Quarterly Notes\nfirst body line\n\n   second    body  \n"
	p := &TextParser{}
	blocks, err := p.Parse(strings.NewReader(input), "notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body := span(11, textFamily, 0)
	assertBlocks(t, blocks, []doctree.Block{
		{Text: "Quarterly Notes", Fonts: []doctree.FontSpan{span(14, textFamily, doctree.FlagBold)}, Page: 1},
		{Text: "first body line", Fonts: []doctree.FontSpan{body}, Page: 1},
		{Text: "second body", Fonts: []doctree.FontSpan{body}, Page: 1},
	})
}

func TestTextParser_FormFeedStartsPage(t *testing.T) {
	input := "Heading\none\n\ftwo\nthree\fafter"
	p := &TextParser{}
	blocks, err := p.Parse(strings.NewReader(input), "paged.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantText := []string{"Heading", "one", "two", "three", "after"}
	wantPage := []int{1, 1, 2, 2, 3}
	if len(blocks) != len(wantText) {
		t.Fatalf("expected %d blocks, got %d: %+v", len(wantText), len(blocks), blocks)
	}
	for i := range wantText {
		if blocks[i].Text != wantText[i] || blocks[i].Page != wantPage[i] {
			t.Errorf("block[%d]: expected %q on page %d, got %q on page %d",
				i, wantText[i], wantPage[i], blocks[i].Text, blocks[i].Page)
		}
	}
}

func TestTextParser_EmptyInput(t *testing.T) {
	p := &TextParser{}
	blocks, err := p.Parse(strings.NewReader(""), "empty.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocks) != 0 {
		t.Errorf("expected 0 blocks for empty input, got %d", len(blocks))
	}
}

func TestTextParser_WhitespaceOnlyLines(t *testing.T) {
	input := "Para one.\n   \n\t\nPara two."
	p := &TextParser{}
	blocks, err := p.Parse(strings.NewReader(input), "ws.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
}
