package nodeid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name         string
		raw          string
		expectErr    bool
		expectedAddr Address
	}{
		{
			name:         "node only",
			raw:          "source",
			expectedAddr: Address{Node: "source"},
		},
		{
			name:         "node and slot",
			raw:          "source.output",
			expectedAddr: Address{Node: "source", Slot: "output"},
		},
		{
			name:         "qualified",
			raw:          "prep/source.output",
			expectedAddr: Address{Compartment: "prep", Node: "source", Slot: "output"},
		},
		{
			name:         "dashes and digits",
			raw:          "step-2.out_1",
			expectedAddr: Address{Node: "step-2", Slot: "out_1"},
		},
		{name: "empty", raw: "", expectErr: true},
		{name: "too many segments", raw: "a.b.c", expectErr: true},
		{name: "empty slot", raw: "a.", expectErr: true},
		{name: "empty compartment", raw: "/a.b", expectErr: true},
		{name: "bad characters", raw: "a b.c", expectErr: true},
		{name: "leading dash", raw: "-a", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			addr, err := Parse(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedAddr, addr)
			assert.Equal(t, tc.raw, addr.String(), "String must round-trip the canonical form")
		})
	}
}

func TestParseSlot(t *testing.T) {
	_, err := ParseSlot("source")
	assert.Error(t, err)

	addr, err := ParseSlot("source.output")
	require.NoError(t, err)
	assert.Equal(t, Address{Node: "source"}, addr.NodeAddress())
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParse("a.b.c") })
}
