// Package datatable holds the row-oriented, annotated tables that flow
// between node slots.
//
// # Immutability
//
// A Table is append-only while its producing node builds it. Once sealed it
// never changes again, so the same *Table can be handed to every downstream
// consumer without copying or locking. Rows are values; callers receive
// copies of the annotation slices.
//
// # Annotations
//
// Every row carries text annotations (string key/value pairs used for
// matching rows across slots) and data annotations (cty values attached for
// provenance). Both sets are kept sorted by name with unique names.
//
// When annotations from several rows are combined the MergeMode decides what
// happens to conflicting values. The zero value, Merge, keeps every distinct
// value joined by ";" in first-seen order.
package datatable
