package datatable

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// MergeSeparator joins distinct values under the Merge mode.
const MergeSeparator = ";"

// TextAnnotation is a named string tag on a row.
type TextAnnotation struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// DataAnnotation is a named cty value attached to a row.
type DataAnnotation struct {
	Name  string
	Value cty.Value
}

// MergeMode selects how conflicting annotation values are resolved.
type MergeMode int

const (
	// Merge keeps all distinct values, joined by MergeSeparator.
	Merge MergeMode = iota
	// OverwriteExisting lets later values replace earlier ones.
	OverwriteExisting
	// SkipExisting keeps the first value seen.
	SkipExisting
	// Discard drops every annotation.
	Discard
	// ErrorOnConflict fails when two different values meet.
	ErrorOnConflict
)

var mergeModeNames = map[MergeMode]string{
	Merge:             "merge",
	OverwriteExisting: "overwrite",
	SkipExisting:      "skip",
	Discard:           "discard",
	ErrorOnConflict:   "error",
}

func (m MergeMode) String() string {
	if s, ok := mergeModeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("MergeMode(%d)", int(m))
}

// ParseMergeMode converts a configuration string into a MergeMode. The empty
// string yields the default, Merge.
func ParseMergeMode(s string) (MergeMode, error) {
	if s == "" {
		return Merge, nil
	}
	for mode, name := range mergeModeNames {
		if strings.EqualFold(name, s) {
			return mode, nil
		}
	}
	return Merge, fmt.Errorf("unknown annotation merge mode %q", s)
}

// AnnotationConflictError is returned by ErrorOnConflict merges.
type AnnotationConflictError struct {
	Name   string
	Values []string
}

func (e *AnnotationConflictError) Error() string {
	return fmt.Sprintf("conflicting values for annotation %q: %s", e.Name, strings.Join(e.Values, ", "))
}

// Texts builds a normalized annotation set from a map.
func Texts(m map[string]string) []TextAnnotation {
	out := make([]TextAnnotation, 0, len(m))
	for k, v := range m {
		out = append(out, TextAnnotation{Name: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// NormalizeTexts sorts by name and keeps the last value of duplicated names.
func NormalizeTexts(in []TextAnnotation) []TextAnnotation {
	byName := make(map[string]string, len(in))
	for _, a := range in {
		byName[a.Name] = a.Value
	}
	return Texts(byName)
}

// NormalizeDatas sorts by name and keeps the last value of duplicated names.
func NormalizeDatas(in []DataAnnotation) []DataAnnotation {
	byName := make(map[string]cty.Value, len(in))
	for _, a := range in {
		byName[a.Name] = a.Value
	}
	out := make([]DataAnnotation, 0, len(byName))
	for k, v := range byName {
		out = append(out, DataAnnotation{Name: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// MergeTexts combines several annotation sets into one according to mode.
// Sets are visited in order, which defines "earlier" and "later".
func MergeTexts(mode MergeMode, sets ...[]TextAnnotation) ([]TextAnnotation, error) {
	if mode == Discard {
		return nil, nil
	}
	values := make(map[string][]string)
	last := make(map[string]string)
	var order []string
	for _, set := range sets {
		for _, a := range set {
			seen, ok := values[a.Name]
			if !ok {
				order = append(order, a.Name)
			}
			last[a.Name] = a.Value
			if !containsString(seen, a.Value) {
				values[a.Name] = append(seen, a.Value)
			}
		}
	}

	out := make([]TextAnnotation, 0, len(order))
	for _, name := range order {
		vs := values[name]
		var v string
		switch mode {
		case OverwriteExisting:
			v = last[name]
		case SkipExisting:
			v = vs[0]
		case ErrorOnConflict:
			if len(vs) > 1 {
				return nil, &AnnotationConflictError{Name: name, Values: vs}
			}
			v = vs[0]
		default:
			v = strings.Join(vs, MergeSeparator)
		}
		out = append(out, TextAnnotation{Name: name, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// MergeDatas combines data annotation sets. Data values cannot be joined, so
// Merge behaves like OverwriteExisting.
func MergeDatas(mode MergeMode, sets ...[]DataAnnotation) ([]DataAnnotation, error) {
	if mode == Discard {
		return nil, nil
	}
	merged := make(map[string]cty.Value)
	for _, set := range sets {
		for _, a := range set {
			prev, ok := merged[a.Name]
			switch {
			case !ok:
				merged[a.Name] = a.Value
			case mode == SkipExisting:
			case mode == ErrorOnConflict && !prev.RawEquals(a.Value):
				return nil, &AnnotationConflictError{Name: a.Name, Values: []string{prev.GoString(), a.Value.GoString()}}
			default:
				merged[a.Name] = a.Value
			}
		}
	}
	out := make([]DataAnnotation, 0, len(merged))
	for k, v := range merged {
		out = append(out, DataAnnotation{Name: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
