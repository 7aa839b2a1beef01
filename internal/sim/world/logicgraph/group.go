package logicgraph

import "wirecraft.ai/internal/sim/world/kernel/model"

// Group is one maximal connected component of same-colored wires and the
// ports they touch. It is the unit at which signals aggregate: every output
// port in the group contributes its value to one sum, and every input port
// reads that sum.
type Group struct {
	// wireColor is NoColor only for a group with no wires (two ports facing
	// each other directly).
	wireColor int

	// recentWire caches the position of the wire placed into this group most
	// recently. Searches check it before walking the wire network; a stale
	// entry falls through to the full walk, it never returns a wrong group.
	recentWire    model.Vec3i
	hasRecentWire bool

	producers map[Port]int
	consumers map[Port]struct{}
}

func newGroup(color int) *Group {
	return &Group{
		wireColor: color,
		producers: map[Port]int{},
		consumers: map[Port]struct{}{},
	}
}

// Signal is the sum of all producer values.
func (g *Group) Signal() int {
	sum := 0
	for _, v := range g.producers {
		sum += v
	}
	return sum
}

func (g *Group) On() bool { return g.Signal() != 0 }

func (g *Group) WireColor() int { return g.wireColor }

func (g *Group) RecentWire() (model.Vec3i, bool) { return g.recentWire, g.hasRecentWire }

// Producers returns a copy of the producer table.
func (g *Group) Producers() map[Port]int {
	out := make(map[Port]int, len(g.producers))
	for p, v := range g.producers {
		out[p] = v
	}
	return out
}

// Consumers returns the consumer ports in deterministic order.
func (g *Group) Consumers() []Port { return sortedPorts(g.consumers) }

func (g *Group) Empty() bool { return len(g.producers) == 0 && len(g.consumers) == 0 }

// updateProducer overwrites one producer's stored value. Consumers are
// notified only when the group aggregate actually changed: writing the same
// value twice, or two producers cancelling out, emits nothing.
func (g *Group) updateProducer(p Port, v int, outInput *[]InputEvent) {
	before := g.Signal()
	g.producers[p] = v
	if g.Signal() == before {
		return
	}
	g.notifyConsumers(outInput)
}

func (g *Group) notifyConsumers(outInput *[]InputEvent) {
	for _, p := range sortedPorts(g.consumers) {
		*outInput = append(*outInput, InputEvent{Port: p})
	}
}
