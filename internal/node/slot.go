package node

import "github.com/vk/slotflow/internal/datatable"

// Direction tells input slots from output slots.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

// Slot is a named, typed port of a node.
type Slot struct {
	Name      string
	Direction Direction
	Kind      datatable.Kind
	// Multiple allows an input slot to receive more than one edge.
	Multiple bool
	// Optional inputs may stay unconnected without a validation error.
	Optional bool
}

// InputSlot is a convenience constructor for a single-source input.
func InputSlot(name string, kind datatable.Kind) Slot {
	return Slot{Name: name, Direction: Input, Kind: kind}
}

// OutputSlot is a convenience constructor for an output.
func OutputSlot(name string, kind datatable.Kind) Slot {
	return Slot{Name: name, Direction: Output, Kind: kind}
}
