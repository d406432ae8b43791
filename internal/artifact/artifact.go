// Package artifact writes the per-document output files: the raw block dump,
// the structured outline (validated against a JSON Schema before it is
// written), and an XLSX summary workbook for a whole batch.
package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docoutline/internal/doctree"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const structuredSchemaJSON = `{
	"type": "object",
	"additionalProperties": false,
	"required": ["title", "outline"],
	"properties": {
		"title": {"type": ["string", "null"]},
		"outline": {
			"type": "array",
			"items": {
				"type": "object",
				"additionalProperties": false,
				"required": ["level", "text", "page"],
				"properties": {
					"level": {"enum": ["H1", "H2", "H3"]},
					"text": {"type": "string", "minLength": 1},
					"page": {"type": "integer", "minimum": 1}
				}
			}
		}
	}
}`

var structuredSchema = jsonschema.MustCompileString("structured.json", structuredSchemaJSON)

// BaseName strips the directory and extension from a source filename.
func BaseName(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Names picks the artifact name for each source path: the base name without
// extension, or with it when another source in the same directory shares
// that stem, so report.md and report.txt never write the same files.
func Names(paths []string) map[string]string {
	type key struct{ dir, stem string }
	count := make(map[key]int, len(paths))
	for _, p := range paths {
		count[key{filepath.Dir(p), strings.ToLower(BaseName(p))}]++
	}
	names := make(map[string]string, len(paths))
	for _, p := range paths {
		if count[key{filepath.Dir(p), strings.ToLower(BaseName(p))}] > 1 {
			names[p] = filepath.Base(p)
		} else {
			names[p] = BaseName(p)
		}
	}
	return names
}

// RawPath and StructuredPath name the two artifacts for an artifact name.
func RawPath(dir, name string) string {
	return filepath.Join(dir, name+"_raw.json")
}

func StructuredPath(dir, name string) string {
	return filepath.Join(dir, name+"_structured.json")
}

// MarshalIndent encodes v with two-space indentation and a trailing newline.
func MarshalIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteRaw writes the block list as <name>_raw.json and returns its path.
func WriteRaw(dir, name string, blocks []doctree.Block) (string, error) {
	if blocks == nil {
		blocks = []doctree.Block{}
	}
	data, err := MarshalIndent(blocks)
	if err != nil {
		return "", fmt.Errorf("encode blocks: %w", err)
	}
	path := RawPath(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// WriteStructured validates the outline and writes it as
// <name>_structured.json.
func WriteStructured(dir, name string, outline doctree.Outline) (string, error) {
	data, err := MarshalIndent(outline)
	if err != nil {
		return "", fmt.Errorf("encode outline: %w", err)
	}
	if err := ValidateStructured(data); err != nil {
		return "", err
	}
	path := StructuredPath(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// ValidateStructured checks a structured-outline document against the schema.
func ValidateStructured(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal outline: %w", err)
	}
	if err := structuredSchema.Validate(v); err != nil {
		return fmt.Errorf("outline does not match schema: %w", err)
	}
	return nil
}

// ReadStructured loads and validates a structured-outline file.
func ReadStructured(path string) (doctree.Outline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return doctree.Outline{}, err
	}
	if err := ValidateStructured(data); err != nil {
		return doctree.Outline{}, err
	}
	var out struct {
		Title   *string                `json:"title"`
		Entries []doctree.HeadingEntry `json:"outline"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return doctree.Outline{}, fmt.Errorf("decode outline: %w", err)
	}
	o := doctree.Outline{Entries: out.Entries}
	if out.Title != nil {
		o.Title = *out.Title
	}
	return o, nil
}
