package world

import (
	"fmt"

	"wirecraft.ai/internal/sim/catalogs"
	modelpkg "wirecraft.ai/internal/sim/world/kernel/model"
	"wirecraft.ai/internal/sim/world/logicgraph"
)

// logicDefs is the compiled form of the logic catalog: per palette id, the
// face connection table the graph searches against plus the formula the
// driver evaluates. Implements logicgraph.Registry.
type logicDefs struct {
	faces    map[uint16]logicgraph.Faces
	formulas map[uint16]string
}

func compileLogicDefs(cats *catalogs.Catalogs) (*logicDefs, error) {
	d := &logicDefs{
		faces:    map[uint16]logicgraph.Faces{},
		formulas: map[uint16]string{},
	}
	for blockID, def := range cats.Logic.Defs {
		pid, ok := cats.Blocks.Index[blockID]
		if !ok {
			return nil, fmt.Errorf("logic def for unknown block %q", blockID)
		}
		var faces logicgraph.Faces
		for faceName, fd := range def.Faces {
			dir, ok := modelpkg.ParseDirection(faceName)
			if !ok {
				return nil, fmt.Errorf("%s: bad face %q", blockID, faceName)
			}
			conn, err := compileFace(fd)
			if err != nil {
				return nil, fmt.Errorf("%s/%s: %w", blockID, faceName, err)
			}
			faces[dir] = conn
		}
		d.faces[pid] = faces
		if def.Formula != "" {
			d.formulas[pid] = def.Formula
		}
	}
	return d, nil
}

func compileFace(fd catalogs.FaceDef) (logicgraph.Connection, error) {
	switch fd.Type {
	case "input":
		return logicgraph.Connection{Kind: logicgraph.ConnPort, Port: logicgraph.PortInput}, nil
	case "output":
		return logicgraph.Connection{Kind: logicgraph.ConnPort, Port: logicgraph.PortOutput}, nil
	case "wire":
		switch fd.Wire {
		case "bus":
			return logicgraph.Connection{Kind: logicgraph.ConnWire, Wire: logicgraph.WireBus}, nil
		case "color":
			return logicgraph.Connection{Kind: logicgraph.ConnWire, Wire: logicgraph.WireColor, Color: fd.Color}, nil
		}
		return logicgraph.Connection{}, fmt.Errorf("bad wire kind %q", fd.Wire)
	}
	return logicgraph.Connection{}, fmt.Errorf("bad face type %q", fd.Type)
}

func (d *logicDefs) LogicFaces(block uint16) (logicgraph.Faces, bool) {
	f, ok := d.faces[block]
	return f, ok
}

func (d *logicDefs) formula(block uint16) string { return d.formulas[block] }

// storeView adapts the chunk store plus the rotation table to the
// logicgraph.BlockSource the searches run against (wrapped in an Overlay
// while an edit batch is in flight).
type storeView struct{ w *World }

func (v storeView) BlockAt(pos Vec3i) uint16      { return v.w.chunks.GetBlock(pos) }
func (v storeView) RotationAt(pos Vec3i) Rotation { return v.w.rotations[pos] }
