package iteration

import (
	"fmt"
	"sort"

	"github.com/vk/slotflow/internal/datatable"
)

// Step is one unit of work: the rows of each input slot a node invocation
// consumes, and the annotations merged from those rows.
type Step struct {
	Index int
	// Key is the matching key shared by the rows. Empty for implicit groups.
	Key string
	// Rows maps an input slot name to row indices of that slot's table.
	Rows  map[string][]int
	Texts []datatable.TextAnnotation
	Datas []datatable.DataAnnotation
}

// RowIndex returns the single row of slot in an Iterating step.
func (s *Step) RowIndex(slot string) (int, bool) {
	rows := s.Rows[slot]
	if len(rows) == 0 {
		return -1, false
	}
	return rows[0], true
}

// Slots returns the sorted names of slots with at least one row.
func (s *Step) Slots() []string {
	out := make([]string, 0, len(s.Rows))
	for name, rows := range s.Rows {
		if len(rows) > 0 {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Warning reports rows that did not make it into any step.
type Warning struct {
	Slot string
	Rows []int
	// Key lists the matching column values, e.g. "id=1, well=A1".
	Key    string
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("slot %q rows %v (key %q): %s", w.Slot, w.Rows, w.Key, w.Reason)
}

// AmbiguousMatchError is returned in Iterating mode when a key matches more
// than one row of a slot.
type AmbiguousMatchError struct {
	Key  string
	Slot string
	Rows []int
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("ambiguous match: key %q selects %d rows %v of slot %q", e.Key, len(e.Rows), e.Rows, e.Slot)
}

// Result is the outcome of Generate.
type Result struct {
	Steps    []*Step
	Warnings []Warning
}
