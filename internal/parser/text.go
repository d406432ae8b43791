package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/docoutline/internal/doctree"
)

// TextParser handles plain text files. Each non-empty line is a block; the
// first one is treated as a bold 14pt caption so an untitled file still ranks
// a title above its body. A form feed starts a new page.
type TextParser struct{}

const (
	textFamily  = "text"
	textTitlePt = 14
)

func (p *TextParser) Parse(r io.Reader, filename string) ([]doctree.Block, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		blocks []doctree.Block
		page   = 1
	)
	for scanner.Scan() {
		segments := strings.Split(scanner.Text(), "\f")
		for i, seg := range segments {
			if i > 0 {
				page++
			}
			text := collapseSpace(seg)
			if text == "" {
				continue
			}
			span := doctree.FontSpan{Size: doctree.SizeFromPoints(bodyPt), Family: textFamily}
			if len(blocks) == 0 {
				span = doctree.FontSpan{Size: doctree.SizeFromPoints(textTitlePt), Family: textFamily, Flags: doctree.FlagBold}
			}
			blocks = append(blocks, doctree.Block{Text: text, Fonts: []doctree.FontSpan{span}, Page: page})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return blocks, nil
}
