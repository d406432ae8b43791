package outline

import (
	"regexp"
	"strings"

	"github.com/dgallion1/docoutline/internal/doctree"
)

// numberedHeading matches "1 Intro", "1.2 Scope", "3.4.5: Limits", "2-Terms".
// Group 1 is the numeric prefix.
var numberedHeading = regexp.MustCompile(`^(\d+(?:\.\d+)*)[\s.:\-]*[A-Za-z]`)

// ClassifyByNumbering derives a level from an explicit numeric prefix: no
// dots is H1, one dot H2, two or more H3. Text without a numeric prefix
// followed by a letter yields LevelNone.
func ClassifyByNumbering(text string) doctree.Level {
	m := numberedHeading.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return doctree.LevelNone
	}
	switch strings.Count(m[1], ".") {
	case 0:
		return doctree.H1
	case 1:
		return doctree.H2
	default:
		return doctree.H3
	}
}
