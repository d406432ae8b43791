// Package parser extracts typeset text lines from source documents. Every
// parser yields blocks in reading order: one block per physical line, each
// carrying the font spans that compose it.
package parser

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docoutline/internal/doctree"
)

// ErrUnsupported is returned by ForFile for unknown extensions.
var ErrUnsupported = errors.New("unsupported file extension")

// Parser converts raw document bytes into an ordered block list.
type Parser interface {
	Parse(r io.Reader, filename string) ([]doctree.Block, error)
}

// Options tunes format-specific behaviour.
type Options struct {
	// PDFFallbackPdftohtml enables poppler's pdftohtml when the Go PDF reader
	// fails or finds no text.
	PDFFallbackPdftohtml bool
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftohtml: opts.PDFFallbackPdftohtml}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// Synthetic point sizes for formats that carry structure instead of
// typography. Heading levels map onto sizes that rank above body text.
const (
	titlePt = 28
	bodyPt  = 11
)

var headingPt = [...]float64{0, 24, 18, 15, 13, 12, 11}

func headingSize(level int) doctree.Size {
	if level < 1 || level >= len(headingPt) {
		return doctree.SizeFromPoints(bodyPt)
	}
	return doctree.SizeFromPoints(headingPt[level])
}

// lineBuilder accumulates runs of text into a single block. Consecutive runs
// with identical font attributes share one span.
type lineBuilder struct {
	text  strings.Builder
	fonts []doctree.FontSpan
}

func (l *lineBuilder) add(s string, span doctree.FontSpan) {
	l.text.WriteString(s)
	if strings.TrimSpace(s) == "" {
		return
	}
	if n := len(l.fonts); n > 0 && l.fonts[n-1] == span {
		return
	}
	l.fonts = append(l.fonts, span)
}

// flush appends the accumulated line to blocks when it has visible text and
// resets the builder.
func (l *lineBuilder) flush(blocks []doctree.Block, page int) []doctree.Block {
	text := collapseSpace(l.text.String())
	if text != "" {
		blocks = append(blocks, doctree.Block{Text: text, Fonts: l.fonts, Page: page})
	}
	l.text.Reset()
	l.fonts = nil
	return blocks
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func styleFlags(bold, italic bool) doctree.StyleFlags {
	var f doctree.StyleFlags
	if bold {
		f |= doctree.FlagBold
	}
	if italic {
		f |= doctree.FlagItalic
	}
	return f
}
