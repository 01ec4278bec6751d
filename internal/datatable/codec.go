package datatable

import (
	"encoding/json"
	"fmt"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

type wireData struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

type wireRow struct {
	Item    json.RawMessage  `json:"item"`
	Texts   []TextAnnotation `json:"texts,omitempty"`
	Datas   []wireData       `json:"datas,omitempty"`
	Lineage Lineage          `json:"lineage"`
}

type wireTable struct {
	Kind Kind      `json:"kind"`
	Rows []wireRow `json:"rows"`
}

// MarshalJSON encodes the table with typed cty values, so it can be restored
// by UnmarshalTable without a schema.
func (t *Table) MarshalJSON() ([]byte, error) {
	wt := wireTable{Kind: t.kind, Rows: make([]wireRow, 0, len(t.rows))}
	for i, r := range t.rows {
		item, err := marshalValue(r.Item)
		if err != nil {
			return nil, fmt.Errorf("row %d item: %w", i, err)
		}
		wr := wireRow{Item: item, Texts: r.Texts, Lineage: r.Lineage}
		for _, d := range r.Datas {
			v, err := marshalValue(d.Value)
			if err != nil {
				return nil, fmt.Errorf("row %d annotation %q: %w", i, d.Name, err)
			}
			wr.Datas = append(wr.Datas, wireData{Name: d.Name, Value: v})
		}
		wt.Rows = append(wt.Rows, wr)
	}
	return json.Marshal(wt)
}

// UnmarshalTable decodes a table written by MarshalJSON. The result is sealed.
func UnmarshalTable(data []byte) (*Table, error) {
	var wt wireTable
	if err := json.Unmarshal(data, &wt); err != nil {
		return nil, fmt.Errorf("failed to decode table: %w", err)
	}
	t := NewTable(wt.Kind)
	for i, wr := range wt.Rows {
		item, err := unmarshalValue(wr.Item)
		if err != nil {
			return nil, fmt.Errorf("row %d item: %w", i, err)
		}
		row := Row{Item: item, Texts: wr.Texts, Lineage: wr.Lineage}
		for _, d := range wr.Datas {
			v, err := unmarshalValue(d.Value)
			if err != nil {
				return nil, fmt.Errorf("row %d annotation %q: %w", i, d.Name, err)
			}
			row.Datas = append(row.Datas, DataAnnotation{Name: d.Name, Value: v})
		}
		t.rows = append(t.rows, row)
	}
	return t.Seal(), nil
}

func marshalValue(v cty.Value) (json.RawMessage, error) {
	if v == cty.NilVal || v.IsNull() {
		return json.RawMessage("null"), nil
	}
	return ctyjson.Marshal(v, cty.DynamicPseudoType)
}

func unmarshalValue(raw json.RawMessage) (cty.Value, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return cty.NullVal(cty.DynamicPseudoType), nil
	}
	return ctyjson.Unmarshal(raw, cty.DynamicPseudoType)
}
