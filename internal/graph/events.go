package graph

import (
	"github.com/vk/slotflow/internal/node"
)

// Event is a typed notification of a graph change.
type Event interface {
	graphEvent()
}

// NodeAdded is published after a node is inserted.
type NodeAdded struct{ Node *node.Node }

// NodeRemoved is published after a node and its edges are removed.
type NodeRemoved struct {
	Node  *node.Node
	Edges []Edge
}

// EdgeAdded is published after a connection is made.
type EdgeAdded struct{ Edge Edge }

// EdgeRemoved is published after a connection is removed.
type EdgeRemoved struct{ Edge Edge }

// SlotsReconfigured is published after a node's slot layout changed.
// Dropped lists the edges that no longer fit the new layout.
type SlotsReconfigured struct {
	Node    *node.Node
	Dropped []Edge
}

// NodeChanged is published after params or flags of a node changed.
type NodeChanged struct {
	Node  *node.Node
	Field string
}

// CompartmentAdded is published after a compartment is created.
type CompartmentAdded struct{ Compartment *Compartment }

// CompartmentRemoved is published after a compartment and its members are removed.
type CompartmentRemoved struct{ Compartment *Compartment }

func (NodeAdded) graphEvent() {}
func (NodeRemoved) graphEvent() {}
func (EdgeAdded) graphEvent() {}
func (EdgeRemoved) graphEvent() {}
func (SlotsReconfigured) graphEvent() {}
func (NodeChanged) graphEvent() {}
func (CompartmentAdded) graphEvent() {}
func (CompartmentRemoved) graphEvent() {}

// Listener receives graph events.
type Listener interface {
	GraphChanged(Event)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(Event)

// GraphChanged implements Listener.
func (f ListenerFunc) GraphChanged(e Event) { f(e) }

// Subscribe registers a listener and returns a function removing it.
func (g *Graph) Subscribe(l Listener) (unsubscribe func()) {
	id := g.nextListener
	g.nextListener++
	g.listeners[id] = l
	g.listenerOrder = append(g.listenerOrder, id)
	return func() {
		delete(g.listeners, id)
	}
}

func (g *Graph) publish(e Event) {
	for _, id := range g.listenerOrder {
		if l, ok := g.listeners[id]; ok {
			l.GraphChanged(e)
		}
	}
}
