package executor

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"

	"github.com/vk/slotflow/internal/cache"
	"github.com/vk/slotflow/internal/graph"
	"github.com/vk/slotflow/internal/node"
)

// cacheState fingerprints everything that determines a node's outputs: its
// type, params, iteration options, slot layout, and for every input the
// connected source slots together with their nodes' states. Predecessors
// must already have a state.
func (r *run) cacheState(n *node.Node) cache.State {
	h := sha256.New()
	writeField(h, n.Type)
	if n.IsIdentity() {
		writeField(h, "identity")
	} else {
		writeField(h, n.Params.Snapshot())
		o := n.Iteration
		writeField(h, fmt.Sprintf("%s|%s|%s|%s|%s|%t", o.Mode, o.Strategy, strings.Join(o.Columns, ","), o.MergeMode, o.DataMergeMode, o.SkipAmbiguous))
	}
	for _, s := range n.Inputs {
		writeField(h, fmt.Sprintf("in:%s:%s:%t", s.Name, s.Kind, s.Multiple))
		for _, src := range r.graph.IncomingSourceSlots(graph.SlotRef{Node: n.ID, Slot: s.Name}) {
			writeField(h, src.Slot)
			writeField(h, string(r.result.States[src.Node]))
		}
	}
	for _, s := range n.Outputs {
		writeField(h, fmt.Sprintf("out:%s:%s", s.Name, s.Kind))
	}
	return cache.State(hex.EncodeToString(h.Sum(nil)))
}

// writeField writes a length-prefixed field so that adjacent fields cannot
// run into each other.
func writeField(h hash.Hash, s string) {
	fmt.Fprintf(h, "%d:%s", len(s), s)
}
