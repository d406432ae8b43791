package parser

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dgallion1/docoutline/internal/doctree"
	"github.com/fumiama/go-docx"
)

// DOCXParser handles .docx files. Word documents carry no page layout, so
// every block is reported on page 1.
type DOCXParser struct{}

const docxFamily = "docx"

func (p *DOCXParser) Parse(r io.Reader, filename string) ([]doctree.Block, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}

	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	var blocks []doctree.Block
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}

		style := docxParagraphStyle(para)
		var line lineBuilder
		for _, child := range para.Children {
			run, ok := child.(*docx.Run)
			if !ok {
				continue
			}
			text := docxRunText(run)
			if text == "" {
				continue
			}
			line.add(text, docxRunSpan(run, style))
		}
		blocks = line.flush(blocks, 1)
	}
	return blocks, nil
}

// docxStyle is the typography implied by a paragraph style.
type docxStyle struct {
	size doctree.Size
	bold bool
}

func docxParagraphStyle(para *docx.Paragraph) docxStyle {
	body := docxStyle{size: doctree.SizeFromPoints(bodyPt)}
	if para.Properties == nil || para.Properties.Style == nil {
		return body
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	switch {
	case style == "title":
		return docxStyle{size: doctree.SizeFromPoints(titlePt), bold: true}
	case strings.HasPrefix(style, "heading"):
		level, err := strconv.Atoi(strings.TrimPrefix(style, "heading"))
		if err != nil {
			return body
		}
		return docxStyle{size: headingSize(level), bold: true}
	}
	return body
}

// docxRunSpan prefers explicit run properties over the paragraph style.
// w:sz is measured in half points.
func docxRunSpan(run *docx.Run, style docxStyle) doctree.FontSpan {
	span := doctree.FontSpan{Size: style.size, Family: docxFamily, Flags: styleFlags(style.bold, false)}

	props := run.RunProperties
	if props == nil {
		return span
	}
	if props.Size != nil {
		if half, err := strconv.ParseFloat(props.Size.Val, 64); err == nil && half > 0 {
			span.Size = doctree.SizeFromPoints(half / 2)
		}
	}
	if props.Bold != nil {
		span.Flags |= doctree.FlagBold
	}
	if props.Italic != nil {
		span.Flags |= doctree.FlagItalic
	}
	if props.Fonts != nil && props.Fonts.ASCII != "" {
		span.Family = props.Fonts.ASCII
	}
	return span
}

func docxRunText(run *docx.Run) string {
	var buf strings.Builder
	for _, rc := range run.Children {
		if t, ok := rc.(*docx.Text); ok {
			buf.WriteString(t.Text)
		}
	}
	return buf.String()
}
