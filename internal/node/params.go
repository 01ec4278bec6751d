package node

import (
	"fmt"
	"reflect"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Params is an immutable snapshot of a node's configuration, stored as a cty
// object. The zero value is an empty configuration.
type Params struct {
	v cty.Value
}

// NewParams builds params from attribute values.
func NewParams(attrs map[string]cty.Value) Params {
	if len(attrs) == 0 {
		return Params{v: cty.EmptyObjectVal}
	}
	return Params{v: cty.ObjectVal(attrs)}
}

// ParamsFromValue wraps an object or map value.
func ParamsFromValue(v cty.Value) (Params, error) {
	if v == cty.NilVal || v.IsNull() {
		return NewParams(nil), nil
	}
	ty := v.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return Params{}, fmt.Errorf("params must be an object, got %s", ty.FriendlyName())
	}
	if !v.IsWhollyKnown() {
		return Params{}, fmt.Errorf("params contain unknown values")
	}
	return NewParams(v.AsValueMap()), nil
}

// Value returns the params as a cty object.
func (p Params) Value() cty.Value {
	if p.v == cty.NilVal {
		return cty.EmptyObjectVal
	}
	return p.v
}

// Attrs returns a copy of the attribute map.
func (p Params) Attrs() map[string]cty.Value {
	return p.Value().AsValueMap()
}

// Get returns the named attribute.
func (p Params) Get(name string) (cty.Value, bool) {
	v := p.Value()
	if !v.Type().HasAttribute(name) {
		return cty.NilVal, false
	}
	return v.GetAttr(name), true
}

// With returns new params with one attribute replaced or added.
func (p Params) With(name string, value cty.Value) Params {
	attrs := p.Attrs()
	if attrs == nil {
		attrs = make(map[string]cty.Value, 1)
	}
	attrs[name] = value
	return NewParams(attrs)
}

// Merge returns params where attributes of other override those of p.
func (p Params) Merge(other Params) Params {
	attrs := p.Attrs()
	if attrs == nil {
		attrs = make(map[string]cty.Value)
	}
	for k, v := range other.Attrs() {
		attrs[k] = v
	}
	return NewParams(attrs)
}

// Decode converts the named attribute into target, which must be a pointer.
// A missing attribute leaves target untouched and returns false.
func (p Params) Decode(name string, target any) (bool, error) {
	v, ok := p.Get(name)
	if !ok || v.IsNull() {
		return false, nil
	}
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return false, fmt.Errorf("decode target for %q must be a non-nil pointer", name)
	}
	ty, err := gocty.ImpliedType(rv.Elem().Interface())
	if err != nil {
		return false, fmt.Errorf("param %q: %w", name, err)
	}
	converted, err := convert.Convert(v, ty)
	if err != nil {
		return false, fmt.Errorf("param %q: %w", name, err)
	}
	if err := gocty.FromCtyValue(converted, target); err != nil {
		return false, fmt.Errorf("param %q: %w", name, err)
	}
	return true, nil
}

// Snapshot returns a canonical, hashable encoding of the params. Object
// attributes are encoded in sorted order, so equal params give equal
// snapshots.
func (p Params) Snapshot() string {
	b, err := ctyjson.Marshal(p.Value(), cty.DynamicPseudoType)
	if err != nil {
		return p.Value().GoString()
	}
	return string(b)
}

// Equal reports whether two params hold the same configuration.
func (p Params) Equal(other Params) bool {
	return p.Snapshot() == other.Snapshot()
}
