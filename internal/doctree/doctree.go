package doctree

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Size is a font size in tenths of a point. Sizes are compared as integers so
// that lookups by size never depend on float representation.
type Size int

// SizeFromPoints rounds a point size to one decimal.
func SizeFromPoints(pt float64) Size {
	return Size(math.Round(pt * 10))
}

// Points returns the size in points.
func (s Size) Points() float64 {
	return float64(s) / 10
}

func (s Size) String() string {
	return strconv.FormatFloat(s.Points(), 'f', 1, 64)
}

func (s Size) MarshalJSON() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Size) UnmarshalJSON(b []byte) error {
	var pt float64
	if err := json.Unmarshal(b, &pt); err != nil {
		return fmt.Errorf("font size: %w", err)
	}
	*s = SizeFromPoints(pt)
	return nil
}

// MeanSize averages span sizes, rounded to one decimal with exact halves
// going away from zero. Zero for no spans.
func MeanSize(fonts []FontSpan) Size {
	if len(fonts) == 0 {
		return 0
	}
	var sum int
	for _, f := range fonts {
		sum += int(f.Size)
	}
	return Size(math.Round(float64(sum) / float64(len(fonts))))
}

// StyleFlags is the style bitmask reported for a span.
type StyleFlags uint32

const (
	FlagSuperscript StyleFlags = 1 << iota
	FlagBold
	FlagItalic
	FlagMonospace
)

func (f StyleFlags) Has(flag StyleFlags) bool { return f&flag != 0 }
func (f StyleFlags) Bold() bool              { return f.Has(FlagBold) }

// FontSpan is one run of text sharing a size, family and style within a line.
type FontSpan struct {
	Size   Size       `json:"size"`
	Family string     `json:"font"`
	Flags  StyleFlags `json:"flags"`
}

// Block is one logical line of text on one page.
type Block struct {
	Text  string     `json:"text"`
	Fonts []FontSpan `json:"fonts"`
	Page  int        `json:"page"` // 1-based
}

// Usable reports whether the block can take part in title and heading
// inference. Blocks without spans, with a page below 1 or with blank text are
// kept in the raw list but never considered.
func (b Block) Usable() bool {
	return len(b.Fonts) > 0 && b.Page >= 1 && strings.TrimSpace(b.Text) != ""
}

// Bold reports the bold bit of the first span.
func (b Block) Bold() bool {
	return len(b.Fonts) > 0 && b.Fonts[0].Flags.Bold()
}

// Role is the semantic tag a font size maps to.
type Role int

const (
	RoleNone Role = iota
	RoleTitle
	RoleH1
	RoleH2
	RoleH3
)

func (r Role) String() string {
	switch r {
	case RoleTitle:
		return "TITLE"
	case RoleH1:
		return "H1"
	case RoleH2:
		return "H2"
	case RoleH3:
		return "H3"
	default:
		return "NONE"
	}
}

// Level is the hierarchical depth of an outline entry.
type Level int

const (
	LevelNone Level = iota
	H1
	H2
	H3
)

func (l Level) String() string {
	switch l {
	case H1:
		return "H1"
	case H2:
		return "H2"
	case H3:
		return "H3"
	default:
		return ""
	}
}

// Depth returns 1 for H1, 2 for H2, 3 for H3 and 0 otherwise.
func (l Level) Depth() int {
	if l < H1 || l > H3 {
		return 0
	}
	return int(l)
}

// ParseLevel parses "H1", "H2" or "H3" (case-insensitive).
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "H1":
		return H1, nil
	case "H2":
		return H2, nil
	case "H3":
		return H3, nil
	}
	return LevelNone, fmt.Errorf("unknown heading level %q", s)
}

func (l Level) MarshalJSON() ([]byte, error) {
	if l.Depth() == 0 {
		return nil, fmt.Errorf("cannot encode heading level %d", int(l))
	}
	return json.Marshal(l.String())
}

func (l *Level) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseLevel(s)
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// HeadingEntry is one line of the outline.
type HeadingEntry struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
	Page  int    `json:"page"`

	// Block is the index of the originating block in the input sequence.
	Block int `json:"-"`
}

// Key is the deduplication key: lowercased text and page.
func (h HeadingEntry) Key() string {
	return fmt.Sprintf("%s@%d", strings.ToLower(h.Text), h.Page)
}

// Outline is the title and ordered headings of one document. An empty Title
// means the document had no text and encodes as JSON null.
type Outline struct {
	Title   string         `json:"title"`
	Entries []HeadingEntry `json:"outline"`
}

// HasTitle reports whether a title was produced.
func (o Outline) HasTitle() bool { return o.Title != "" }

func (o Outline) MarshalJSON() ([]byte, error) {
	var title *string
	if o.HasTitle() {
		title = &o.Title
	}
	entries := o.Entries
	if entries == nil {
		entries = []HeadingEntry{}
	}
	return json.Marshal(struct {
		Title   *string        `json:"title"`
		Entries []HeadingEntry `json:"outline"`
	}{title, entries})
}

// Document is one processed source file.
type Document struct {
	ID          string    `json:"doc_id"`
	Filename    string    `json:"filename"`
	ContentHash string    `json:"content_hash"`
	Blocks      []Block   `json:"-"`
	Outline     Outline   `json:"outline"`
	CreatedAt   time.Time `json:"created_at"`
}

// Chunk is a sized text segment with structural context, ready for indexing.
type Chunk struct {
	Text       string   `json:"text"`
	Index      int      `json:"index"`
	Breadcrumb []string `json:"breadcrumb"` // Heading path, e.g. ["1 Introduction", "1.1 Background"]
	PageStart  int      `json:"page_start"`
	PageEnd    int      `json:"page_end"`
}
