package logicgraph

import (
	"fmt"
	"sort"

	"wirecraft.ai/internal/sim/world/kernel/model"
)

// Graph owns every Group plus the two reverse indices mapping registered
// ports back to their group id. Group ids are monotonic and never reused, so
// a stale id held by a caller is detectably dead rather than silently
// aliasing an unrelated newer group.
//
// Not safe for concurrent use: the owning world loop must serialize all
// calls, and a whole tick's edits must be applied before the next tick's.
type Graph struct {
	nextGroupID uint64
	groups      map[uint64]*Group

	outputPortGroup map[Port]uint64
	inputPortGroup  map[Port]uint64
}

func NewGraph() *Graph {
	return &Graph{
		groups:          map[uint64]*Group{},
		outputPortGroup: map[Port]uint64{},
		inputPortGroup:  map[Port]uint64{},
	}
}

// NewGroup allocates the next id and inserts an empty group. wirePos, when
// non-nil, seeds the recent-wire search cache.
func (g *Graph) NewGroup(color int, wirePos *model.Vec3i) uint64 {
	id := g.nextGroupID
	g.nextGroupID++
	grp := newGroup(color)
	if wirePos != nil {
		grp.recentWire = *wirePos
		grp.hasRecentWire = true
	}
	g.groups[id] = grp
	return id
}

// RemoveGroup removes and returns the group. Removing an unknown id is a
// contract violation.
func (g *Graph) RemoveGroup(id uint64) *Group {
	grp, ok := g.groups[id]
	if !ok {
		panic(fmt.Sprintf("logicgraph: remove of unknown group %d", id))
	}
	delete(g.groups, id)
	return grp
}

// Group returns the group for id, or nil.
func (g *Graph) Group(id uint64) *Group { return g.groups[id] }

// GroupCount reports how many live groups exist.
func (g *Graph) GroupCount() int { return len(g.groups) }

// GroupIDs returns all live group ids in ascending order.
func (g *Graph) GroupIDs() []uint64 {
	out := make([]uint64, 0, len(g.groups))
	for id := range g.groups {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// GroupOf resolves the group currently owning a registered port. ok is false
// when the port is not registered.
func (g *Graph) GroupOf(p Port, t PortType) (id uint64, grp *Group, ok bool) {
	id, ok = g.reverseIndex(t)[p]
	if !ok {
		return 0, nil, false
	}
	return id, g.mustGroup(id), true
}

func (g *Graph) reverseIndex(t PortType) map[Port]uint64 {
	if t == PortOutput {
		return g.outputPortGroup
	}
	return g.inputPortGroup
}

// mustGroup resolves an id that a reverse index (or other internal
// bookkeeping) claims exists. A miss means the indices are corrupted.
func (g *Graph) mustGroup(id uint64) *Group {
	grp, ok := g.groups[id]
	if !ok {
		panic(fmt.Sprintf("logicgraph: index points at dead group %d", id))
	}
	return grp
}

// AddPort registers a port into an existing group. A new input is queued for
// an immediate re-evaluation so it picks up the group's current state; a new
// output is queued to push its value so the group picks up the new producer.
// signal seeds the producer entry for outputs and is ignored for inputs.
func (g *Graph) AddPort(p Port, groupID uint64, t PortType, signal int, outOutput *[]OutputEvent, outInput *[]InputEvent) {
	grp := g.mustGroup(groupID)
	switch t {
	case PortOutput:
		g.outputPortGroup[p] = groupID
		grp.producers[p] = signal
		*outOutput = append(*outOutput, OutputEvent{Port: p})
	default:
		g.inputPortGroup[p] = groupID
		grp.consumers[p] = struct{}{}
		*outInput = append(*outInput, InputEvent{Port: p})
	}
}

// RemovePort unregisters a port whose block is being removed. ctx must
// already see the removal (the overlay maps p.Pos to the replacement block),
// so the survival search from the neighboring cell cannot re-enter the
// removed block. If nothing else of the group is reachable from the
// neighbor, the whole group is deleted; otherwise only this port is dropped,
// and when it was an output the remaining consumers are notified since the
// aggregate lost a producer.
func (g *Graph) RemovePort(ctx *SearchContext, p Port, t PortType, outInput *[]InputEvent) {
	idx := g.reverseIndex(t)
	id, ok := idx[p]
	if !ok {
		panic(fmt.Sprintf("logicgraph: remove of unregistered %s port %v", t, p))
	}
	grp := g.mustGroup(id)

	neighbor := p.Pos.Step(p.Dir)
	if _, found := g.FindGroup(ctx, neighbor, p.Dir.Inverse(), grp.wireColor, false); !found {
		g.deleteGroup(id)
		return
	}

	delete(idx, p)
	if t == PortOutput {
		delete(grp.producers, p)
		grp.notifyConsumers(outInput)
	} else {
		delete(grp.consumers, p)
	}
}

// deleteGroup drops a group and every reverse-index entry pointing at it.
func (g *Graph) deleteGroup(id uint64) {
	grp := g.mustGroup(id)
	for p := range grp.producers {
		delete(g.outputPortGroup, p)
	}
	for p := range grp.consumers {
		delete(g.inputPortGroup, p)
	}
	delete(g.groups, id)
}

// MergeAdjacentGroups replaces the given same-colored groups with one fresh
// group after a bridge at wirePos joined them. wirePos seeds the recent-wire
// cache and must be a colored wire cell of the merged network; a bus bridge
// passes nil, since a bus cell must never resolve as the group's wire. Every
// consumer of the merged group is notified: its effective aggregate may have
// changed now that it sees the other halves' producers.
func (g *Graph) MergeAdjacentGroups(color int, ids []uint64, wirePos *model.Vec3i, outInput *[]InputEvent) uint64 {
	newID := g.NewGroup(color, wirePos)
	merged := g.groups[newID]
	for _, id := range ids {
		old := g.RemoveGroup(id)
		for p, v := range old.producers {
			merged.producers[p] = v
			g.outputPortGroup[p] = newID
		}
		for p := range old.consumers {
			merged.consumers[p] = struct{}{}
			g.inputPortGroup[p] = newID
		}
	}
	merged.notifyConsumers(outInput)
	return newID
}

// SetGroupRecentWire repoints the O(1) search cache after a wire was placed
// into an existing group.
func (g *Graph) SetGroupRecentWire(id uint64, pos model.Vec3i) {
	grp := g.mustGroup(id)
	grp.recentWire = pos
	grp.hasRecentWire = true
}

// ClearGroupRecentWire drops the search cache entry. The driver clears it on
// groups being dismantled by a split repair, whose cached wire may sit in a
// piece that has already been relabeled under a fresh id.
func (g *Graph) ClearGroupRecentWire(id uint64) {
	grp := g.mustGroup(id)
	grp.recentWire = model.Vec3i{}
	grp.hasRecentWire = false
}

// UpdateProducer stores a freshly computed output value. Pushing a value for
// an unregistered port is a contract violation.
func (g *Graph) UpdateProducer(p Port, v int, outInput *[]InputEvent) {
	id, ok := g.outputPortGroup[p]
	if !ok {
		panic(fmt.Sprintf("logicgraph: producer update for unregistered port %v", p))
	}
	g.mustGroup(id).updateProducer(p, v, outInput)
}
