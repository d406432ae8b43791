// Package outline infers a document outline (a title and H1-H3 headings) from
// the typeset lines of a single document.
//
// Inference runs in two passes over the document's own blocks: the font
// hierarchy is resolved from every span, then each block is classified once.
// No state is shared between documents, so callers may build outlines for many
// documents concurrently.
package outline

import (
	"strings"

	"github.com/dgallion1/docoutline/internal/doctree"
)

// Builder assembles outlines using a fixed Validator.
type Builder struct {
	validator *Validator
}

// NewBuilder returns a Builder using rules for heading validation.
func NewBuilder(rules Rules) *Builder {
	return &Builder{validator: NewValidator(rules)}
}

// Build resolves the font hierarchy of blocks and assembles the outline with
// DefaultRules.
func Build(blocks []doctree.Block) doctree.Outline {
	return NewBuilder(DefaultRules()).Build(blocks)
}

// Build resolves the font hierarchy of blocks and assembles the outline.
func (b *Builder) Build(blocks []doctree.Block) doctree.Outline {
	return b.Assemble(blocks, ResolveHierarchy(blocks))
}

// Assemble builds the title and heading list for blocks using an already
// resolved hierarchy. Entries keep document order; for each (lowercased text,
// page) pair only the first entry is kept. The title is never deduplicated.
func (b *Builder) Assemble(blocks []doctree.Block, h Hierarchy) doctree.Outline {
	var (
		out   doctree.Outline
		title []string
		seen  = make(map[string]struct{})
	)

	for i, blk := range blocks {
		if !blk.Usable() {
			continue
		}
		text := strings.TrimSpace(blk.Text)
		size := doctree.MeanSize(blk.Fonts)

		if h.RoleOf(size) == doctree.RoleTitle {
			title = append(title, text)
		}

		bold := blk.Bold()
		if !b.validator.IsProbableHeading(text, size, bold) {
			continue
		}
		level := classify(text, size, bold, h)
		if level == doctree.LevelNone {
			continue
		}

		entry := doctree.HeadingEntry{Level: level, Text: text, Page: blk.Page, Block: i}
		key := entry.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out.Entries = append(out.Entries, entry)
	}

	if len(title) > 0 {
		out.Title = strings.Join(title, " ")
	} else {
		out.Title = firstText(blocks)
	}
	return out
}

// classify prefers explicit numbering and falls back to the font hierarchy.
// Only the H1 size requires bold; H2 and H3 match on size alone.
func classify(text string, size doctree.Size, bold bool, h Hierarchy) doctree.Level {
	if level := ClassifyByNumbering(text); level != doctree.LevelNone {
		return level
	}
	if s, ok := h.SizeOf(doctree.RoleH1); ok && size == s && bold {
		return doctree.H1
	}
	if s, ok := h.SizeOf(doctree.RoleH2); ok && size == s {
		return doctree.H2
	}
	if s, ok := h.SizeOf(doctree.RoleH3); ok && size == s {
		return doctree.H3
	}
	return doctree.LevelNone
}

// firstText is the title fallback: the text of the first block that has any.
func firstText(blocks []doctree.Block) string {
	for _, b := range blocks {
		if t := strings.TrimSpace(b.Text); t != "" {
			return t
		}
	}
	return ""
}
