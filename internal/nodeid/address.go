package nodeid

import "strings"

// Address names a node, or one slot of a node, by its declared names.
type Address struct {
	// Compartment is empty when the address is unqualified.
	Compartment string
	Node        string
	// Slot is empty when the address refers to the node itself.
	Slot string
}

// HasSlot reports whether the address points at a slot.
func (a Address) HasSlot() bool {
	return a.Slot != ""
}

// NodeAddress returns the address with the slot stripped.
func (a Address) NodeAddress() Address {
	return Address{Compartment: a.Compartment, Node: a.Node}
}

// String serializes the address into its canonical form.
func (a Address) String() string {
	var sb strings.Builder
	if a.Compartment != "" {
		sb.WriteString(a.Compartment)
		sb.WriteRune('/')
	}
	sb.WriteString(a.Node)
	if a.Slot != "" {
		sb.WriteRune('.')
		sb.WriteString(a.Slot)
	}
	return sb.String()
}
