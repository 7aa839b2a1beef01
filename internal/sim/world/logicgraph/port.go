package logicgraph

import (
	"sort"

	"wirecraft.ai/internal/sim/world/kernel/model"
)

// Port identifies one connection point: a block position plus the world-space
// face it sits on. Pure value type; two ports are equal iff both fields match.
type Port struct {
	Pos model.Vec3i
	Dir model.Direction
}

type PortType uint8

const (
	PortInput PortType = iota
	PortOutput
)

func (t PortType) String() string {
	if t == PortOutput {
		return "output"
	}
	return "input"
}

// WireKind distinguishes the colorless structural bus from colored wires.
type WireKind uint8

const (
	WireBus WireKind = iota
	WireColor
)

// NoColor marks a group that holds no wires (pure port-to-port group) and an
// unconstrained required color during a search.
const NoColor = -1

// Connection describes what one block-local face exposes to the logic graph.
type Connection struct {
	Kind ConnKind
	Port PortType // valid when Kind == ConnPort
	Wire WireKind // valid when Kind == ConnWire
	// Color of the wire, valid when Kind == ConnWire and Wire == WireColor.
	Color uint16
}

type ConnKind uint8

const (
	ConnNone ConnKind = iota
	ConnPort
	ConnWire
)

// Faces holds the connection for each block-local face, indexed by
// model.Direction.
type Faces [6]Connection

// Registry classifies blocks: which faces are ports or wires. Blocks without
// a logic definition are invisible to the graph.
type Registry interface {
	LogicFaces(block uint16) (Faces, bool)
}

// BlockSource is the voxel view a search runs against. During an edit batch
// this is an Overlay, so pending edits are seen consistently without mutating
// real storage mid-search.
type BlockSource interface {
	BlockAt(pos model.Vec3i) uint16
	RotationAt(pos model.Vec3i) model.Rotation
}

func sortedPorts(m map[Port]struct{}) []Port {
	out := make([]Port, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sortPorts(out)
	return out
}

func sortPorts(ps []Port) {
	sort.Slice(ps, func(i, j int) bool {
		a, b := ps[i], ps[j]
		if a.Pos.X != b.Pos.X {
			return a.Pos.X < b.Pos.X
		}
		if a.Pos.Y != b.Pos.Y {
			return a.Pos.Y < b.Pos.Y
		}
		if a.Pos.Z != b.Pos.Z {
			return a.Pos.Z < b.Pos.Z
		}
		return a.Dir < b.Dir
	})
}
