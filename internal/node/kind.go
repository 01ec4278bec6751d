package node

import "strings"

// Kind is the capability set of a node. It replaces a type hierarchy: code
// asks what a node can do rather than what it is.
type Kind uint8

const (
	// KindPassThrough nodes forward inputs to same-named outputs.
	KindPassThrough Kind = 1 << iota
	// KindCompartmentBoundary nodes sit at the edge of a compartment and
	// expose its data to other compartments.
	KindCompartmentBoundary
	// KindUserDefinedOutput nodes are outputs whose slots the user edits.
	KindUserDefinedOutput
)

// Has reports whether all capabilities in c are present.
func (k Kind) Has(c Kind) bool {
	return k&c == c
}

func (k Kind) String() string {
	if k == 0 {
		return "none"
	}
	var parts []string
	if k.Has(KindPassThrough) {
		parts = append(parts, "pass_through")
	}
	if k.Has(KindCompartmentBoundary) {
		parts = append(parts, "compartment_boundary")
	}
	if k.Has(KindUserDefinedOutput) {
		parts = append(parts, "user_defined_output")
	}
	return strings.Join(parts, "|")
}
