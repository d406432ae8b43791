package chunker

import (
	"strings"

	"github.com/dgallion1/docoutline/internal/doctree"
)

// Config controls chunking behavior.
type Config struct {
	ChunkSize    int // Target chunk size in tokens.
	ChunkOverlap int // Overlap between consecutive chunks in tokens.
	MinChunk     int // Minimum chunk size to emit.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    1500,
		ChunkOverlap: 200,
		MinChunk:     20,
	}
}

// Section is the body text between one outline heading and the next.
type Section struct {
	Heading    string   `json:"heading,omitempty"`
	Level      string   `json:"level,omitempty"`
	Breadcrumb []string `json:"breadcrumb"`
	Text       string   `json:"text"`
	PageStart  int      `json:"page_start"`
	PageEnd    int      `json:"page_end"`
}

// Sections splits blocks at the outline's headings. Lines before the first
// heading form a preamble section with an empty breadcrumb. Each heading's
// breadcrumb is the path of its enclosing H1, H2 and H3 headings.
func Sections(blocks []doctree.Block, outline doctree.Outline) []Section {
	headings := make(map[int]doctree.HeadingEntry, len(outline.Entries))
	for _, e := range outline.Entries {
		headings[e.Block] = e
	}

	var (
		sections []Section
		path     [3]string
		cur      = &Section{}
		lastPage int
		body     strings.Builder
	)

	finish := func() {
		cur.Text = strings.TrimSpace(body.String())
		if cur.Heading != "" || cur.Text != "" {
			sections = append(sections, *cur)
		}
		body.Reset()
		lastPage = 0
	}

	for i, b := range blocks {
		if b.Page < 1 || strings.TrimSpace(b.Text) == "" {
			continue
		}

		if e, ok := headings[i]; ok && e.Level.Depth() > 0 {
			finish()
			d := e.Level.Depth()
			path[d-1] = e.Text
			for j := d; j < len(path); j++ {
				path[j] = ""
			}
			cur = &Section{
				Heading:    e.Text,
				Level:      e.Level.String(),
				Breadcrumb: breadcrumbOf(path),
				PageStart:  e.Page,
				PageEnd:    e.Page,
			}
			continue
		}

		switch {
		case body.Len() == 0:
		case b.Page != lastPage:
			body.WriteString("\n\n")
		default:
			body.WriteString("\n")
		}
		body.WriteString(b.Text)
		lastPage = b.Page
		if cur.PageStart == 0 {
			cur.PageStart = b.Page
		}
		if b.Page > cur.PageEnd {
			cur.PageEnd = b.Page
		}
	}
	finish()

	return sections
}

func breadcrumbOf(path [3]string) []string {
	var bc []string
	for _, p := range path {
		if p != "" {
			bc = append(bc, p)
		}
	}
	return bc
}

// ChunkDocument splits each section's body into token-sized chunks that
// carry the section breadcrumb and page range.
func ChunkDocument(blocks []doctree.Block, outline doctree.Outline, cfg Config) []doctree.Chunk {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1500
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = 200
	}
	if cfg.MinChunk <= 0 {
		cfg.MinChunk = 20
	}

	var chunks []doctree.Chunk
	for _, sec := range Sections(blocks, outline) {
		if sec.Text == "" {
			continue
		}
		parts := []string{sec.Text}
		if EstimateTokens(sec.Text) > cfg.ChunkSize {
			parts = splitText(sec.Text, cfg.ChunkSize, cfg.ChunkOverlap)
		}
		for _, part := range parts {
			if EstimateTokens(part) < cfg.MinChunk {
				continue
			}
			chunks = append(chunks, doctree.Chunk{
				Text:       part,
				Index:      len(chunks),
				Breadcrumb: copyBreadcrumb(sec.Breadcrumb),
				PageStart:  sec.PageStart,
				PageEnd:    sec.PageEnd,
			})
		}
	}
	return chunks
}

// splitText breaks text into chunks of approximately targetTokens, with overlap.
func splitText(text string, targetTokens, overlapTokens int) []string {
	// Split by paragraphs first.
	paragraphs := splitByParagraphs(text)

	var result []string
	var current strings.Builder
	currentTokens := 0

	for _, para := range paragraphs {
		paraTokens := EstimateTokens(para)

		// If a single paragraph exceeds the target, split it further.
		if paraTokens > targetTokens {
			// Flush current buffer.
			if currentTokens > 0 {
				result = append(result, current.String())
				current.Reset()
				currentTokens = 0
			}
			// Split the large paragraph by sentences.
			subParts := splitBySentences(para, targetTokens, overlapTokens)
			result = append(result, subParts...)
			continue
		}

		// Would adding this paragraph exceed the target?
		if currentTokens+paraTokens > targetTokens && currentTokens > 0 {
			result = append(result, current.String())

			// Start next chunk with overlap from end of current.
			overlap := getOverlapText(current.String(), overlapTokens)
			current.Reset()
			currentTokens = 0
			if overlap != "" {
				current.WriteString(overlap)
				currentTokens = EstimateTokens(overlap)
			}
		}

		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
		currentTokens += paraTokens
	}

	if currentTokens > 0 {
		result = append(result, current.String())
	}

	return result
}

// splitByParagraphs splits on blank lines, which Sections emits at page
// boundaries.
func splitByParagraphs(text string) []string {
	parts := strings.Split(text, "\n\n")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// splitBySentences breaks a large paragraph into sentence-based chunks.
func splitBySentences(text string, targetTokens, overlapTokens int) []string {
	sentences := splitSentences(text)

	var result []string
	var current strings.Builder
	currentTokens := 0

	for _, sent := range sentences {
		sentTokens := EstimateTokens(sent)

		if currentTokens+sentTokens > targetTokens && currentTokens > 0 {
			result = append(result, current.String())
			overlap := getOverlapText(current.String(), overlapTokens)
			current.Reset()
			currentTokens = 0
			if overlap != "" {
				current.WriteString(overlap)
				currentTokens = EstimateTokens(overlap)
			}
		}

		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sent)
		currentTokens += sentTokens
	}

	if currentTokens > 0 {
		result = append(result, current.String())
	}

	return result
}

// splitSentences does basic sentence splitting.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(text) && text[i+1] == ' ' {
			sentences = append(sentences, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, strings.TrimSpace(current.String()))
	}

	return sentences
}

// getOverlapText extracts the last N tokens worth of text for overlap.
func getOverlapText(text string, targetTokens int) string {
	words := strings.Fields(text)
	// Approximate: 1.33 tokens per word.
	targetWords := int(float64(targetTokens) / 1.33)
	if targetWords <= 0 || len(words) <= targetWords {
		return ""
	}
	return strings.Join(words[len(words)-targetWords:], " ")
}

func copyBreadcrumb(bc []string) []string {
	if len(bc) == 0 {
		return nil
	}
	out := make([]string, len(bc))
	copy(out, bc)
	return out
}
