package outline

import (
	"testing"

	"github.com/dgallion1/docoutline/internal/doctree"
)

func TestResolveHierarchy_AssignsLargestSizes(t *testing.T) {
	blocks := []doctree.Block{
		block("Body", 1, 10, false),
		block("Title", 1, 24, false),
		block("Body", 1, 10, false),
		block("Section", 1, 14, false),
		block("Chapter", 1, 16, false),
		block("Sub", 1, 12, false),
	}
	h := ResolveHierarchy(blocks)

	want := map[doctree.Role]float64{
		doctree.RoleTitle: 24,
		doctree.RoleH1:    16,
		doctree.RoleH2:    14,
		doctree.RoleH3:    12,
	}
	for role, pt := range want {
		got, ok := h.SizeOf(role)
		if !ok {
			t.Fatalf("expected %s to be assigned", role)
		}
		if got != doctree.SizeFromPoints(pt) {
			t.Errorf("%s: expected %v, got %v", role, pt, got)
		}
	}
	if r := h.RoleOf(doctree.SizeFromPoints(10)); r != doctree.RoleNone {
		t.Errorf("expected body size to have no role, got %s", r)
	}
	if h.Len() != 4 {
		t.Errorf("expected 4 roles, got %d", h.Len())
	}
}

func TestResolveHierarchy_FrequencyIgnored(t *testing.T) {
	var blocks []doctree.Block
	for i := 0; i < 50; i++ {
		blocks = append(blocks, block("Body", 1, 11, false))
	}
	blocks = append(blocks, block("Rare", 1, 11.5, false))

	h := ResolveHierarchy(blocks)
	if r := h.RoleOf(doctree.SizeFromPoints(11.5)); r != doctree.RoleTitle {
		t.Errorf("expected rare larger size to be TITLE, got %s", r)
	}
	if r := h.RoleOf(doctree.SizeFromPoints(11)); r != doctree.RoleH1 {
		t.Errorf("expected common size to be H1, got %s", r)
	}
}

func TestResolveHierarchy_PartialMapping(t *testing.T) {
	h := ResolveHierarchy([]doctree.Block{
		block("Big", 1, 20, false),
		block("Small", 1, 12, false),
	})
	if _, ok := h.SizeOf(doctree.RoleH2); ok {
		t.Error("expected no H2 with two distinct sizes")
	}
	if _, ok := h.SizeOf(doctree.RoleH3); ok {
		t.Error("expected no H3 with two distinct sizes")
	}
	if got := h.Map(); len(got) != 2 || got["TITLE"] != 20 || got["H1"] != 12 {
		t.Errorf("unexpected map %v", got)
	}
}

func TestResolveHierarchy_Empty(t *testing.T) {
	h := ResolveHierarchy(nil)
	if h.Len() != 0 {
		t.Errorf("expected empty hierarchy, got %d roles", h.Len())
	}
	if r := h.RoleOf(0); r != doctree.RoleNone {
		t.Errorf("expected RoleNone, got %s", r)
	}
	if _, ok := h.SizeOf(doctree.RoleTitle); ok {
		t.Error("expected no TITLE in empty hierarchy")
	}
}

func TestResolveHierarchy_RoundedSizesMerge(t *testing.T) {
	blocks := []doctree.Block{
		{Text: "A", Page: 1, Fonts: []doctree.FontSpan{{Size: doctree.SizeFromPoints(11.96)}}},
		{Text: "B", Page: 1, Fonts: []doctree.FontSpan{{Size: doctree.SizeFromPoints(12.04)}}},
	}
	h := ResolveHierarchy(blocks)
	if h.Len() != 1 {
		t.Errorf("expected sizes rounding to 12.0 to merge, got %d roles", h.Len())
	}
}
