package parser

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"github.com/dgallion1/docoutline/internal/doctree"
	pdflib "github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// PDFParser handles PDF files. It tries the Go library first,
// then falls back to pdftohtml if enabled.
type PDFParser struct {
	FallbackPdftohtml bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) ([]doctree.Block, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	blocks, err := extractPDFBlocks(data)
	if (err != nil || len(blocks) == 0) && p.FallbackPdftohtml {
		fallback, ferr := extractPdftohtml(data)
		switch {
		case ferr == nil:
			return fallback, nil
		case err == nil:
			// The document simply has no text layer.
			return blocks, nil
		default:
			err = fmt.Errorf("%w (pdftohtml: %v)", err, ferr)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}
	return blocks, nil
}

func extractPDFBlocks(data []byte) (blocks []doctree.Block, err error) {
	// ledongthuc/pdf panics on some malformed content streams.
	defer func() {
		if rec := recover(); rec != nil {
			blocks, err = nil, fmt.Errorf("pdf reader: %v", rec)
		}
	}()

	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		blocks = append(blocks, pdfPageLines(page.Content().Text, i)...)
	}
	return blocks, nil
}

// pdfRun is a contiguous run of glyphs sharing a font and size.
type pdfRun struct {
	font string
	size float64
	text strings.Builder
	end  float64 // x of the right edge of the last glyph
}

// pdfPageLines groups glyphs in content-stream order into lines. A new line
// starts when the baseline moves by more than half the font size; a new run
// starts when the font or size changes.
func pdfPageLines(texts []pdflib.Text, page int) []doctree.Block {
	var (
		blocks []doctree.Block
		line   []*pdfRun
		lineY  float64
	)

	flush := func() {
		var parts []string
		var fonts []doctree.FontSpan
		for _, run := range line {
			t := strings.TrimSpace(norm.NFKC.String(run.text.String()))
			if t == "" {
				continue
			}
			parts = append(parts, t)
			fonts = append(fonts, pdfSpan(run.font, run.size))
		}
		if len(parts) > 0 {
			blocks = append(blocks, doctree.Block{
				Text:  collapseSpace(strings.Join(parts, " ")),
				Fonts: fonts,
				Page:  page,
			})
		}
		line = nil
	}

	for _, t := range texts {
		if t.S == "" {
			continue
		}
		if t.S == "\n" || t.S == "\r" {
			flush()
			continue
		}

		tolerance := math.Max(t.FontSize*0.5, 2)
		if len(line) == 0 || math.Abs(t.Y-lineY) > tolerance {
			flush()
			lineY = t.Y
			line = append(line, &pdfRun{font: t.Font, size: t.FontSize, end: t.X})
		}

		run := line[len(line)-1]
		if run.font != t.Font || run.size != t.FontSize {
			run = &pdfRun{font: t.Font, size: t.FontSize, end: t.X}
			line = append(line, run)
		}

		gap := t.X - run.end
		if run.text.Len() > 0 && gap > t.FontSize*0.2 && t.S != " " {
			run.text.WriteByte(' ')
		}
		run.text.WriteString(t.S)
		run.end = t.X + t.W
	}
	flush()

	return blocks
}

// pdfSpan derives span attributes from a PDF base font name such as
// "ABCDEF+Arial-BoldItalicMT".
func pdfSpan(font string, size float64) doctree.FontSpan {
	family := stripSubsetPrefix(font)
	lower := strings.ToLower(family)
	bold := strings.Contains(lower, "bold") || strings.Contains(lower, "black") || strings.Contains(lower, "heavy")
	italic := strings.Contains(lower, "italic") || strings.Contains(lower, "oblique")

	flags := styleFlags(bold, italic)
	if strings.Contains(lower, "mono") || strings.Contains(lower, "courier") {
		flags |= doctree.FlagMonospace
	}
	return doctree.FontSpan{Size: doctree.SizeFromPoints(size), Family: family, Flags: flags}
}

// stripSubsetPrefix removes the six-letter tag that PDF writers prepend to
// subsetted font names.
func stripSubsetPrefix(font string) string {
	if len(font) > 7 && font[6] == '+' {
		for i := 0; i < 6; i++ {
			if font[i] < 'A' || font[i] > 'Z' {
				return font
			}
		}
		return font[7:]
	}
	return font
}

// pdf2xml mirrors the subset of poppler's `pdftohtml -xml` output we use.
type pdf2xml struct {
	Pages []struct {
		Number int `xml:"number,attr"`
		Fonts  []struct {
			ID     string  `xml:"id,attr"`
			Size   float64 `xml:"size,attr"`
			Family string  `xml:"family,attr"`
		} `xml:"fontspec"`
		Texts []struct {
			Font  string `xml:"font,attr"`
			Inner string `xml:",innerxml"`
		} `xml:"text"`
	} `xml:"page"`
}

var xmlTag = regexp.MustCompile(`<[^>]*>`)

func extractPdftohtml(data []byte) ([]doctree.Block, error) {
	// pdftohtml reads from a path, so we write to a temp file.
	tmp, err := os.CreateTemp("", "docoutline-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	cmd := exec.Command("pdftohtml", "-xml", "-i", "-q", "-stdout", tmpPath)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("pdftohtml: %w", err)
	}
	return parsePdf2XML(out)
}

func parsePdf2XML(data []byte) ([]doctree.Block, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false

	var doc pdf2xml
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode pdftohtml xml: %w", err)
	}

	type fontspec struct {
		size   float64
		family string
	}
	// Font ids are document-wide; a fontspec is emitted on the first page
	// that uses it.
	fonts := make(map[string]fontspec)

	var blocks []doctree.Block
	for _, page := range doc.Pages {
		for _, f := range page.Fonts {
			fonts[f.ID] = fontspec{size: f.Size, family: f.Family}
		}
		for _, t := range page.Texts {
			text := collapseSpace(html.UnescapeString(xmlTag.ReplaceAllString(t.Inner, "")))
			if text == "" {
				continue
			}
			spec := fonts[t.Font]
			span := pdfSpan(spec.family, spec.size)
			if strings.Contains(t.Inner, "<b>") {
				span.Flags |= doctree.FlagBold
			}
			if strings.Contains(t.Inner, "<i>") {
				span.Flags |= doctree.FlagItalic
			}
			blocks = append(blocks, doctree.Block{
				Text:  norm.NFKC.String(text),
				Fonts: []doctree.FontSpan{span},
				Page:  page.Number,
			})
		}
	}
	return blocks, nil
}
