package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/docoutline/internal/config"
	"github.com/dgallion1/docoutline/internal/doctree"
)

func TestShowCmd_PrintsOutline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.md")
	content := "# Annual Report\n\n## Overview\n\nthe overview body.\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := showCmd(config.Config{})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	var got doctree.Outline
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out.String())
	}
	if got.Title != "Annual Report" || len(got.Entries) != 1 || got.Entries[0].Text != "Overview" {
		t.Errorf("unexpected outline %+v", got)
	}
}

func TestShowCmd_UnsupportedFile(t *testing.T) {
	cmd := showCmd(config.Config{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"picture.png"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for unsupported file")
	}
}

func TestValidateCmd(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good_structured.json")
	bad := filepath.Join(dir, "bad_structured.json")
	os.WriteFile(good, []byte(`{"title": "Plan", "outline": [{"level": "H1", "text": "Scope", "page": 1}]}`), 0o644)
	os.WriteFile(bad, []byte(`{"title": "Plan", "outline": [{"level": "H4", "text": "Scope", "page": 1}]}`), 0o644)

	cmd := validateCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{good, bad})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "1 of 2") {
		t.Errorf("expected one invalid file, got %v", err)
	}
	if !strings.Contains(out.String(), "ok    "+good) || !strings.Contains(out.String(), "FAIL  "+bad) {
		t.Errorf("unexpected output %q", out.String())
	}
}
