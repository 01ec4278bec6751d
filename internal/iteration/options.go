package iteration

import (
	"fmt"
	"strings"

	"github.com/vk/slotflow/internal/datatable"
)

// Mode selects how many rows per slot a step may hold.
type Mode int

const (
	// Iterating steps hold exactly one row per input slot.
	Iterating Mode = iota
	// Merging steps hold every row sharing a key.
	Merging
)

func (m Mode) String() string {
	if m == Merging {
		return "merging"
	}
	return "iterating"
}

// ParseMode converts a configuration string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "iterating":
		return Iterating, nil
	case "merging":
		return Merging, nil
	}
	return Iterating, fmt.Errorf("unknown iteration mode %q", s)
}

// Strategy selects which text annotation columns form the matching key.
type Strategy int

const (
	// Union uses every column present in at least two input slots.
	Union Strategy = iota
	// Intersection uses columns present in every input slot.
	Intersection
	// PrefixHashUnion is Union restricted to columns starting with "#".
	PrefixHashUnion
	// PrefixHashIntersection is Intersection restricted to "#" columns.
	PrefixHashIntersection
	// MergeAll puts every row into one group.
	MergeAll
	// SplitAll puts every row into its own group.
	SplitAll
	// Custom uses Options.Columns.
	Custom
)

var strategyNames = map[Strategy]string{
	Union:                  "union",
	Intersection:           "intersection",
	PrefixHashUnion:        "prefix_hash_union",
	PrefixHashIntersection: "prefix_hash_intersection",
	MergeAll:               "merge_all",
	SplitAll:               "split_all",
	Custom:                 "custom",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// ParseStrategy converts a configuration string into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	if s == "" {
		return Union, nil
	}
	for strategy, name := range strategyNames {
		if strings.EqualFold(name, s) {
			return strategy, nil
		}
	}
	return Union, fmt.Errorf("unknown column strategy %q", s)
}

// Options configure a Generator. The zero value iterates over rows matched
// by the Union strategy and merges annotations with datatable.Merge.
type Options struct {
	Mode     Mode
	Strategy Strategy
	// Columns are the matching columns for the Custom strategy. Setting
	// Columns with any other strategy implies Custom.
	Columns       []string
	MergeMode     datatable.MergeMode
	DataMergeMode datatable.MergeMode
	// SkipAmbiguous drops groups with several rows per slot in Iterating
	// mode instead of failing.
	SkipAmbiguous bool
}
