package nodeid

import (
	"fmt"
	"regexp"
	"strings"
)

// nameRegex matches a single compartment, node or slot name.
var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9_-]*$`)

// Parse creates an Address from its canonical string representation.
func Parse(raw string) (Address, error) {
	if raw == "" {
		return Address{}, fmt.Errorf("address cannot be empty")
	}

	var addr Address
	rest := raw
	if i := strings.IndexRune(rest, '/'); i >= 0 {
		addr.Compartment = rest[:i]
		rest = rest[i+1:]
		if err := checkName("compartment", addr.Compartment); err != nil {
			return Address{}, err
		}
	}

	parts := strings.Split(rest, ".")
	if len(parts) > 2 {
		return Address{}, fmt.Errorf("invalid address %q: expected node or node.slot", raw)
	}
	addr.Node = parts[0]
	if err := checkName("node", addr.Node); err != nil {
		return Address{}, err
	}
	if len(parts) == 2 {
		addr.Slot = parts[1]
		if err := checkName("slot", addr.Slot); err != nil {
			return Address{}, err
		}
	}
	return addr, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// constant addresses.
func MustParse(raw string) Address {
	addr, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return addr
}

// ParseSlot parses an address that must point at a slot.
func ParseSlot(raw string) (Address, error) {
	addr, err := Parse(raw)
	if err != nil {
		return Address{}, err
	}
	if !addr.HasSlot() {
		return Address{}, fmt.Errorf("address %q does not name a slot", raw)
	}
	return addr, nil
}

func checkName(what, name string) error {
	if name == "" {
		return fmt.Errorf("%s name cannot be empty", what)
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("invalid %s name: %q", what, name)
	}
	return nil
}
