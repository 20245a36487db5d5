package backup

import (
	"sort"
)

// Op is a selection operation kind.
type Op int

const (
	OpSelect Op = iota
	OpDeselect
	OpSelectAll
	OpDeselectAll
)

// Action is one user selection step, scoped to an entity class. Index is
// ignored for the bulk operations.
type Action struct {
	Op    Op
	Class Class
	Index int
}

// Delta describes what one Action changed. Protected lists records a bulk
// deselection left selected because selected dependents still reference
// them.
type Delta struct {
	Added     []RecordRef
	Removed   []RecordRef
	Protected []RecordRef
}

// Selection is the per-class set of snapshot indices marked for import,
// plus the flag for the settings singleton. It is only ever mutated through
// Session.Apply, which enforces the dependency invariants.
type Selection struct {
	indices         map[Class]map[int]struct{}
	includeSettings bool
}

func newSelection() *Selection {
	return &Selection{indices: make(map[Class]map[int]struct{})}
}

// Has reports whether the record at index is selected.
func (s *Selection) Has(c Class, index int) bool {
	_, ok := s.indices[c][index]
	return ok
}

// Indices returns the selected indices for a class in ascending order.
func (s *Selection) Indices(c Class) []int {
	set := s.indices[c]
	if len(set) == 0 {
		return nil
	}

	out := make([]int, 0, len(set))
	for i := range set {
		out = append(out, i)
	}

	sort.Ints(out)

	return out
}

// Count returns how many records of a class are selected.
func (s *Selection) Count(c Class) int {
	return len(s.indices[c])
}

// IncludeSettings reports whether the settings singleton is marked for
// import.
func (s *Selection) IncludeSettings() bool {
	return s.includeSettings
}

func (s *Selection) add(c Class, index int) bool {
	set := s.indices[c]
	if set == nil {
		set = make(map[int]struct{})
		s.indices[c] = set
	}

	if _, ok := set[index]; ok {
		return false
	}

	set[index] = struct{}{}

	return true
}

func (s *Selection) remove(c Class, index int) bool {
	set := s.indices[c]
	if _, ok := set[index]; !ok {
		return false
	}

	delete(set, index)

	return true
}
