package logicgraph

import (
	"fmt"

	"wirecraft.ai/internal/sim/world/kernel/model"
)

// SearchContext bundles the read-only collaborators a connectivity walk
// needs. Blocks should be an Overlay during an edit batch so the walk sees
// every pending edit of the current tick.
type SearchContext struct {
	Blocks BlockSource
	Logic  Registry
}

func (ctx *SearchContext) facesAt(pos model.Vec3i) (Faces, model.Rotation, bool) {
	faces, ok := ctx.Logic.LogicFaces(ctx.Blocks.BlockAt(pos))
	if !ok {
		return Faces{}, 0, false
	}
	return faces, ctx.Blocks.RotationAt(pos), true
}

// FindGroup determines which group, if any, governs the cell at pos when
// approached through its `approach` face (world space). color constrains the
// walk to wires carrying that color (NoColor means unconstrained); fromBus
// records whether the previous hop was a bus, since bus wires never connect
// directly to a port.
//
// The walk visits each (cell, approach-face) pair at most once; a cell may
// legitimately be entered through several distinct faces, so the visited set
// is keyed on both.
func (g *Graph) FindGroup(ctx *SearchContext, pos model.Vec3i, approach model.Direction, color int, fromBus bool) (uint64, bool) {
	return g.findGroup(ctx, map[Port]struct{}{}, pos, approach, color, fromBus)
}

// MustFindGroup is FindGroup for call sites that have already guaranteed a
// reachable group exists, e.g. right after placing a wire next to a
// known-connected cell.
func (g *Graph) MustFindGroup(ctx *SearchContext, pos model.Vec3i, approach model.Direction, color int, fromBus bool) uint64 {
	id, ok := g.findGroup(ctx, map[Port]struct{}{}, pos, approach, color, fromBus)
	if !ok {
		panic(fmt.Sprintf("logicgraph: no group reachable from %v via %s", pos, approach))
	}
	return id
}

func (g *Graph) findGroup(ctx *SearchContext, visited map[Port]struct{}, pos model.Vec3i, approach model.Direction, color int, fromBus bool) (uint64, bool) {
	key := Port{Pos: pos, Dir: approach}
	if _, seen := visited[key]; seen {
		return 0, false
	}
	visited[key] = struct{}{}

	faces, rot, ok := ctx.facesAt(pos)
	if !ok {
		return 0, false
	}

	conn := faces[rot.Local(approach)]
	switch conn.Kind {
	case ConnPort:
		if fromBus {
			// Only colored wires riding through a bus connect to ports.
			return 0, false
		}
		id, ok := g.reverseIndex(conn.Port)[key]
		return id, ok

	case ConnWire:
		nextColor := color
		nextFromBus := true
		if conn.Wire == WireColor {
			if color != NoColor && color != int(conn.Color) {
				return 0, false
			}
			nextColor = int(conn.Color)
			nextFromBus = false
			// Only colored wire cells consult the cache. A bus cell must take
			// the full walk: resolving it straight to a colored group would
			// let a port-side search connect through the bus.
			if id, ok := g.recentWireGroup(pos, nextColor); ok {
				return id, true
			}
		} else if color == NoColor && !fromBus {
			// An unconstrained search that has crossed neither a colored wire
			// nor a bus came straight off a port, and bus wires never connect
			// directly to a port.
			return 0, false
		}
		for _, lf := range model.Directions {
			if faces[lf].Kind != ConnWire {
				continue
			}
			gd := rot.Global(lf)
			if id, ok := g.findGroup(ctx, visited, pos.Step(gd), gd.Inverse(), nextColor, nextFromBus); ok {
				return id, true
			}
		}
	}
	return 0, false
}

// recentWireGroup is the fast path: a group whose most recently placed wire
// sits exactly at pos and whose color is compatible wins without walking the
// network. A stale cache entry simply fails the position check and the
// caller falls through to the full walk.
func (g *Graph) recentWireGroup(pos model.Vec3i, color int) (uint64, bool) {
	for id, grp := range g.groups {
		if !grp.hasRecentWire || grp.recentWire != pos {
			continue
		}
		if color != NoColor && grp.wireColor != color {
			continue
		}
		return id, true
	}
	return 0, false
}

// RenameGroup relabels the whole subgraph reachable from pos under newID.
// The driver calls it after a removal that may have split one group into
// disjoint pieces: each piece gets a fresh id. Output ports keep their prior
// producer value across the move, so nothing flickers purely from
// relabeling. Returns whether the seed cell was actually part of a live
// subgraph; on false the caller discards its freshly allocated id.
func (g *Graph) RenameGroup(ctx *SearchContext, newID uint64, pos model.Vec3i, approach model.Direction, color int, fromBus bool, outOutput *[]OutputEvent, outInput *[]InputEvent) bool {
	return g.renameGroup(ctx, map[Port]struct{}{}, newID, pos, approach, color, fromBus, outOutput, outInput)
}

func (g *Graph) renameGroup(ctx *SearchContext, visited map[Port]struct{}, newID uint64, pos model.Vec3i, approach model.Direction, color int, fromBus bool, outOutput *[]OutputEvent, outInput *[]InputEvent) bool {
	key := Port{Pos: pos, Dir: approach}
	if _, seen := visited[key]; seen {
		return false
	}
	visited[key] = struct{}{}

	faces, rot, ok := ctx.facesAt(pos)
	if !ok {
		return false
	}

	conn := faces[rot.Local(approach)]
	switch conn.Kind {
	case ConnPort:
		if fromBus {
			return false
		}
		idx := g.reverseIndex(conn.Port)
		oldID, ok := idx[key]
		if !ok {
			return false
		}
		old := g.mustGroup(oldID)
		signal := 0
		if conn.Port == PortOutput {
			signal = old.producers[key]
			delete(old.producers, key)
		} else {
			delete(old.consumers, key)
		}
		delete(idx, key)
		g.AddPort(key, newID, conn.Port, signal, outOutput, outInput)
		return true

	case ConnWire:
		found := false
		nextColor := color
		nextFromBus := true
		if conn.Wire == WireColor {
			if color != NoColor && color != int(conn.Color) {
				return false
			}
			nextColor = int(conn.Color)
			nextFromBus = false
			g.SetGroupRecentWire(newID, pos)
			found = true
		}
		for _, lf := range model.Directions {
			if faces[lf].Kind != ConnWire {
				continue
			}
			gd := rot.Global(lf)
			if g.renameGroup(ctx, visited, newID, pos.Step(gd), gd.Inverse(), nextColor, nextFromBus, outOutput, outInput) {
				found = true
			}
		}
		return found
	}
	return false
}
