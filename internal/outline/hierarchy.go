package outline

import (
	"sort"

	"github.com/dgallion1/docoutline/internal/doctree"
)

// roleOrder is the order in which distinct sizes, largest first, are assigned.
var roleOrder = [...]doctree.Role{doctree.RoleTitle, doctree.RoleH1, doctree.RoleH2, doctree.RoleH3}

// Hierarchy maps at most four distinct font sizes to semantic roles. The zero
// value is an empty hierarchy in which no size has a role.
type Hierarchy struct {
	sizes []doctree.Size // descending, index i holds roleOrder[i]
}

// ResolveHierarchy collects the span sizes of all usable blocks and assigns
// TITLE, H1, H2 and H3 to the largest distinct sizes in that order. Frequency
// plays no part in the ranking.
func ResolveHierarchy(blocks []doctree.Block) Hierarchy {
	seen := make(map[doctree.Size]struct{})
	for _, b := range blocks {
		if !b.Usable() {
			continue
		}
		for _, f := range b.Fonts {
			seen[f.Size] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return Hierarchy{}
	}

	distinct := make([]doctree.Size, 0, len(seen))
	for s := range seen {
		distinct = append(distinct, s)
	}
	sort.Sort(sort.Reverse(sizeSlice(distinct)))
	if len(distinct) > len(roleOrder) {
		distinct = distinct[:len(roleOrder)]
	}
	return Hierarchy{sizes: distinct}
}

// RoleOf returns the role assigned to size, or RoleNone.
func (h Hierarchy) RoleOf(size doctree.Size) doctree.Role {
	for i, s := range h.sizes {
		if s == size {
			return roleOrder[i]
		}
	}
	return doctree.RoleNone
}

// SizeOf returns the size assigned to role. ok is false when the document has
// too few distinct sizes for the role to exist.
func (h Hierarchy) SizeOf(role doctree.Role) (size doctree.Size, ok bool) {
	for i, r := range roleOrder {
		if r == role && i < len(h.sizes) {
			return h.sizes[i], true
		}
	}
	return 0, false
}

// Len returns the number of assigned roles.
func (h Hierarchy) Len() int { return len(h.sizes) }

// Map returns the hierarchy as role name -> size in points, for logging and
// debugging output.
func (h Hierarchy) Map() map[string]float64 {
	out := make(map[string]float64, len(h.sizes))
	for i, s := range h.sizes {
		out[roleOrder[i].String()] = s.Points()
	}
	return out
}

type sizeSlice []doctree.Size

func (s sizeSlice) Len() int           { return len(s) }
func (s sizeSlice) Less(i, j int) bool { return s[i] < s[j] }
func (s sizeSlice) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
