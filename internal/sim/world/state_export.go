package world

import (
	"fmt"
	"sort"

	"wirecraft.ai/internal/sim/world/logicgraph"
)

// StateExport is the persistable slice of world state. The logic graph is
// deliberately absent: group ids are process-local and the graph is rebuilt
// deterministically from the voxel contents on restore.
type StateExport struct {
	Tick      uint64
	Chunks    []ChunkExport
	Rotations []RotationEntry
	Switches  []SwitchState
}

type ChunkExport struct {
	Key    ChunkKey
	Blocks []uint16
}

type RotationEntry struct {
	Pos Vec3i
	Rot Rotation
}

func sortRotations(rots []RotationEntry) {
	sort.Slice(rots, func(i, j int) bool { return lessVec(rots[i].Pos, rots[j].Pos) })
}

func (w *World) ExportState() StateExport {
	st := StateExport{Tick: w.tick}
	for _, k := range w.chunks.LoadedChunkKeys() {
		ch := w.chunks.Chunk(k)
		blocks := make([]uint16, len(ch.Blocks))
		copy(blocks, ch.Blocks)
		st.Chunks = append(st.Chunks, ChunkExport{Key: k, Blocks: blocks})
	}
	for p, r := range w.rotations {
		st.Rotations = append(st.Rotations, RotationEntry{Pos: p, Rot: r})
	}
	sortRotations(st.Rotations)
	st.Switches = w.SwitchStates()
	return st
}

// RestoreState installs a snapshot into a freshly constructed world and
// rebuilds the logic graph by re-attaching every logic block in
// deterministic order, then settling the notification cascade.
func (w *World) RestoreState(st StateExport) error {
	if len(w.chunks.chunks) != 0 || w.graph.GroupCount() != 0 {
		return fmt.Errorf("restore into a non-empty world")
	}
	w.tick = st.Tick
	for _, ce := range st.Chunks {
		if len(ce.Blocks) != chunkEdge*chunkEdge*chunkEdge {
			return fmt.Errorf("chunk %v: bad block count %d", ce.Key, len(ce.Blocks))
		}
		w.chunks.InstallChunk(ce.Key, ce.Blocks)
	}
	for _, re := range st.Rotations {
		w.rotations[re.Pos] = re.Rot
	}

	var positions []Vec3i
	for _, k := range w.chunks.LoadedChunkKeys() {
		ch := w.chunks.Chunk(k)
		base := Vec3i{X: k.CX * chunkEdge, Y: k.CY * chunkEdge, Z: k.CZ * chunkEdge}
		for y := 0; y < chunkEdge; y++ {
			for z := 0; z < chunkEdge; z++ {
				for x := 0; x < chunkEdge; x++ {
					b := ch.Get(x, y, z)
					if _, ok := w.defs.LogicFaces(b); !ok {
						continue
					}
					positions = append(positions, Vec3i{X: base.X + x, Y: base.Y + y, Z: base.Z + z})
				}
			}
		}
	}

	// Re-attach one block at a time with every later block still hidden by
	// the overlay, so the searches see the same incremental picture they
	// would during live placement.
	var outQ []logicgraph.OutputEvent
	var inQ []logicgraph.InputEvent
	overlay := logicgraph.NewOverlay(storeView{w})
	for _, pos := range positions {
		overlay.Stage(pos, w.chunks.air, 0)
	}
	ctx := &logicgraph.SearchContext{Blocks: overlay, Logic: w.defs}
	for _, pos := range positions {
		b := w.chunks.GetBlock(pos)
		rot := w.rotations[pos]
		w.initBlockState(pos, b)
		w.attachBlock(ctx, pos, b, rot, &outQ, &inQ)
		overlay.Stage(pos, b, rot)
	}
	for _, sw := range st.Switches {
		if _, ok := w.switches[sw.Pos]; ok {
			w.switches[sw.Pos] = sw.On
		}
	}

	entry := TickLogEntry{}
	w.drainLogic(&outQ, &inQ, &entry)
	return nil
}
