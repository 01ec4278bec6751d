package datatable

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// ErrSealed is returned when appending to a published table.
var ErrSealed = errors.New("table is sealed")

// Kind names the type of data items a table or slot carries. Kinds and their
// assignability are defined by the registry.
type Kind string

// Lineage records where a row was produced.
type Lineage struct {
	NodeID uuid.UUID `json:"node_id"`
	// Step is the iteration step index, or -1 for rows not produced by a step.
	Step int `json:"step"`
}

// Row is one entry of a Table.
type Row struct {
	Item    cty.Value
	Texts   []TextAnnotation
	Datas   []DataAnnotation
	Lineage Lineage
}

// Text returns the value of the named text annotation.
func (r Row) Text(name string) (string, bool) {
	i := sort.Search(len(r.Texts), func(i int) bool { return r.Texts[i].Name >= name })
	if i < len(r.Texts) && r.Texts[i].Name == name {
		return r.Texts[i].Value, true
	}
	return "", false
}

// Data returns the value of the named data annotation.
func (r Row) Data(name string) (cty.Value, bool) {
	for _, d := range r.Datas {
		if d.Name == name {
			return d.Value, true
		}
	}
	return cty.NilVal, false
}

// Table is an ordered, append-only collection of rows of one Kind. Appends
// are serialized; reads are only safe once the table is sealed or when the
// caller owns the table exclusively.
type Table struct {
	kind   Kind
	mu     sync.Mutex
	rows   []Row
	sealed atomic.Bool
}

// NewTable returns an empty, writable table.
func NewTable(kind Kind) *Table {
	return &Table{kind: kind}
}

// Kind returns the kind of items stored in the table.
func (t *Table) Kind() Kind { return t.kind }

// Append adds a row and returns its index. Annotation sets are normalized.
func (t *Table) Append(item cty.Value, texts []TextAnnotation, datas []DataAnnotation, lineage Lineage) (int, error) {
	if t.sealed.Load() {
		return -1, ErrSealed
	}
	if item == cty.NilVal {
		item = cty.NullVal(cty.DynamicPseudoType)
	}
	row := Row{
		Item:    item,
		Texts:   NormalizeTexts(texts),
		Datas:   NormalizeDatas(datas),
		Lineage: lineage,
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = append(t.rows, row)
	return len(t.rows) - 1, nil
}

// AppendRow appends a copy of an existing row, keeping its lineage.
func (t *Table) AppendRow(r Row) (int, error) {
	return t.Append(r.Item, r.Texts, r.Datas, r.Lineage)
}

// Seal makes the table read-only and returns it for chaining.
func (t *Table) Seal() *Table {
	t.sealed.Store(true)
	return t
}

// Sealed reports whether the table is read-only.
func (t *Table) Sealed() bool { return t.sealed.Load() }

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Row returns the row at index i.
func (t *Table) Row(i int) Row {
	return t.rows[i]
}

// Rows returns a copy of the row slice. Row values share annotation slices
// with the table and must not be modified.
func (t *Table) Rows() []Row {
	if t == nil {
		return nil
	}
	out := make([]Row, len(t.rows))
	copy(out, t.rows)
	return out
}

// TextAnnotationColumns returns the sorted set of text annotation names used
// by any row.
func (t *Table) TextAnnotationColumns() []string {
	set := make(map[string]struct{})
	for _, r := range t.rows {
		for _, a := range r.Texts {
			set[a.Name] = struct{}{}
		}
	}
	cols := make([]string, 0, len(set))
	for c := range set {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// Digest returns a content hash of the table. Lineage is excluded so that
// the same content produced by different runs hashes equally.
func (t *Table) Digest() string {
	h := sha256.New()
	writeField(h, string(t.kind))
	writeInt(h, len(t.rows))
	for _, r := range t.rows {
		writeField(h, valueString(r.Item))
		writeInt(h, len(r.Texts))
		for _, a := range r.Texts {
			writeField(h, a.Name)
			writeField(h, a.Value)
		}
		writeInt(h, len(r.Datas))
		for _, a := range r.Datas {
			writeField(h, a.Name)
			writeField(h, valueString(a.Value))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Concat copies the rows of all tables, in order, into a new sealed table.
func Concat(kind Kind, tables ...*Table) *Table {
	out := NewTable(kind)
	for _, t := range tables {
		if t == nil {
			continue
		}
		out.rows = append(out.rows, t.rows...)
	}
	return out.Seal()
}

// Empty returns a sealed table with no rows.
func Empty(kind Kind) *Table {
	return NewTable(kind).Seal()
}

// String describes the table for logs.
func (t *Table) String() string {
	return fmt.Sprintf("Table(%s, %d rows)", t.kind, t.Len())
}

func valueString(v cty.Value) string {
	if v == cty.NilVal || v.IsNull() {
		return "null"
	}
	b, err := ctyjson.Marshal(v, cty.DynamicPseudoType)
	if err != nil {
		return v.GoString()
	}
	return string(b)
}

// writeField writes a length-prefixed string so that adjacent fields cannot
// collide.
func writeField(h hash.Hash, s string) {
	writeInt(h, len(s))
	h.Write([]byte(s))
}

func writeInt(h hash.Hash, n int) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(n))
	h.Write(buf[:])
}
