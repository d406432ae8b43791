package outline

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/docoutline/internal/doctree"
)

// Rules configures the heading validator. A Rules value is copied into the
// Validator at construction, so later changes to the caller's copy have no
// effect on validators already built.
type Rules struct {
	MinRunes    int            // shorter text is rejected
	MaxWords    int            // more whitespace-delimited tokens are rejected
	MinBodySize doctree.Size   // non-bold text below this size is body text
	Blocklist   []string       // case-insensitive substrings that reject a line
	DatePattern *regexp.Regexp // matched against the whole line, case-insensitive
}

// DefaultRules returns the rules tuned for structured and official documents.
// The blocklist suppresses form labels such as "Name of the applicant" that are
// often set in bold or large type without being headings.
func DefaultRules() Rules {
	return Rules{
		MinRunes:    4,
		MaxWords:    20,
		MinBodySize: doctree.SizeFromPoints(10),
		Blocklist: []string{
			"name", "designation", "service", "pay", "whether", "permanent", "temporary",
			"amount", "required", "block", "home town", "husband", "wife", "age",
			"date", "fare", "advance", "signature", "persons", "relationship", "declare",
		},
		DatePattern: regexp.MustCompile(`(?i)^\d{1,2}\s+(JAN|FEB|MAR|APR|MAY|JUN|JUL|AUG|SEP|OCT|NOV|DEC)[A-Z]*\s+\d{4}$`),
	}
}

// Validator decides whether a line is plausibly a heading. It favours
// precision: a missed heading is preferred over a false one.
type Validator struct {
	minRunes    int
	maxWords    int
	minBodySize doctree.Size
	blocklist   []string
	date        *regexp.Regexp
}

// NewValidator builds a validator from rules. The blocklist is copied and
// lowercased.
func NewValidator(rules Rules) *Validator {
	block := make([]string, 0, len(rules.Blocklist))
	for _, w := range rules.Blocklist {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			block = append(block, w)
		}
	}
	return &Validator{
		minRunes:    rules.MinRunes,
		maxWords:    rules.MaxWords,
		minBodySize: rules.MinBodySize,
		blocklist:   block,
		date:        rules.DatePattern,
	}
}

// IsProbableHeading reports whether text, rendered at size with the given
// bold bit, survives every rejection rule.
func (v *Validator) IsProbableHeading(text string, size doctree.Size, bold bool) bool {
	text = strings.TrimSpace(text)

	if !bold && size < v.minBodySize {
		return false
	}
	if utf8.RuneCountInString(text) < v.minRunes || allDigits(text) {
		return false
	}
	first, _ := utf8.DecodeRuneInString(text)
	if unicode.IsLower(first) {
		return false
	}
	if v.maxWords > 0 && len(strings.Fields(text)) > v.maxWords {
		return false
	}

	lower := strings.ToLower(text)
	for _, w := range v.blocklist {
		if strings.Contains(lower, w) {
			return false
		}
	}

	if v.date != nil && v.date.MatchString(text) {
		return false
	}
	return true
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
