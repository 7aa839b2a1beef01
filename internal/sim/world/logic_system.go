package world

import (
	"sort"

	modelpkg "wirecraft.ai/internal/sim/world/kernel/model"
	"wirecraft.ai/internal/sim/world/logicgraph"
)

// applyEdits feeds one tick's batch of voxel edits through the logic graph.
// Edits are staged into a read-through overlay as they are processed, so
// every connectivity search sees the batch as-if-applied; the real chunk
// store is only written once the whole batch has been walked.
func (w *World) applyEdits(edits []BlockChangedEvent, outQ *[]logicgraph.OutputEvent, inQ *[]logicgraph.InputEvent) {
	if len(edits) == 0 {
		return
	}
	overlay := logicgraph.NewOverlay(storeView{w})
	ctx := &logicgraph.SearchContext{Blocks: overlay, Logic: w.defs}

	for _, e := range edits {
		if !w.chunks.inBounds(e.Pos) {
			continue
		}
		old := overlay.BlockAt(e.Pos)
		oldRot := overlay.RotationAt(e.Pos)
		if old == e.NewBlock && oldRot == e.Rotation {
			continue
		}
		// While this edit is being walked the cell is staged as air: the
		// removal searches must not re-enter the old block, and the
		// attachment searches must not cross the new one (a wire bridging
		// two groups has to see them as separate to merge them). Later
		// edits of the batch then see the new block.
		w.detachBlock(ctx, overlay, e.Pos, old, oldRot, outQ, inQ)
		w.attachBlock(ctx, e.Pos, e.NewBlock, e.Rotation, outQ, inQ)
		overlay.Stage(e.Pos, e.NewBlock, e.Rotation)
	}

	// Commit the batch to real storage and the per-block state tables.
	for _, e := range edits {
		if !w.chunks.inBounds(e.Pos) {
			continue
		}
		old := w.chunks.GetBlock(e.Pos)
		if old != e.NewBlock {
			w.dropBlockState(e.Pos, old)
			w.initBlockState(e.Pos, e.NewBlock)
		}
		w.chunks.SetBlock(e.Pos, e.NewBlock)
		if e.Rotation == 0 {
			delete(w.rotations, e.Pos)
		} else {
			w.rotations[e.Pos] = e.Rotation
		}
	}
}

func (w *World) dropBlockState(pos Vec3i, b uint16) {
	switch w.defs.formula(b) {
	case "SWITCH":
		delete(w.switches, pos)
	case "LAMP":
		delete(w.lamps, pos)
	}
}

func (w *World) initBlockState(pos Vec3i, b uint16) {
	switch w.defs.formula(b) {
	case "SWITCH":
		w.switches[pos] = false
	case "LAMP":
		w.lamps[pos] = false
	}
}

// detachBlock unregisters whatever the old block contributed to the graph.
// The old group of a removed wire must be resolved before the removal is
// staged (afterwards the cell no longer resolves); the port removals and the
// split repair must run after, so their searches cannot walk through the
// removed cell.
func (w *World) detachBlock(ctx *logicgraph.SearchContext, overlay *logicgraph.Overlay, pos Vec3i, old uint16, oldRot Rotation, outQ *[]logicgraph.OutputEvent, inQ *[]logicgraph.InputEvent) {
	faces, isLogic := w.defs.LogicFaces(old)
	if !isLogic {
		overlay.Stage(pos, w.chunks.air, 0)
		return
	}

	oldGroups := w.collectWireGroups(ctx, pos, faces, oldRot)
	overlay.Stage(pos, w.chunks.air, 0)

	for _, lf := range modelpkg.Directions {
		conn := faces[lf]
		if conn.Kind != logicgraph.ConnPort {
			continue
		}
		gd := oldRot.Global(lf)
		p := Port{Pos: pos, Dir: gd}
		if _, _, ok := w.graph.GroupOf(p, conn.Port); ok {
			w.graph.RemovePort(ctx, p, conn.Port, inQ)
		}
	}

	w.repairWireSplit(ctx, pos, faces, oldRot, oldGroups, outQ, inQ)
}

// collectWireGroups resolves, pre-removal, which groups the wire faces of the
// block at pos currently belong to (through a bus there can be one per face).
func (w *World) collectWireGroups(ctx *logicgraph.SearchContext, pos Vec3i, faces logicgraph.Faces, rot Rotation) []uint64 {
	var ids []uint64
	seen := map[uint64]struct{}{}
	add := func(id uint64) {
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for _, lf := range modelpkg.Directions {
		conn := faces[lf]
		if conn.Kind != logicgraph.ConnWire {
			continue
		}
		gd := rot.Global(lf)
		if conn.Wire == logicgraph.WireColor {
			if id, ok := w.graph.FindGroup(ctx, pos, gd, int(conn.Color), false); ok {
				add(id)
			}
		} else {
			// Through a bus, probe each neighbor's colored network.
			n := pos.Step(gd)
			if id, ok := w.graph.FindGroup(ctx, n, gd.Inverse(), logicgraph.NoColor, true); ok {
				add(id)
			}
		}
	}
	return ids
}

// repairWireSplit relabels each surviving piece of a removed wire's network
// under a fresh group id, then retires the groups the removal emptied.
func (w *World) repairWireSplit(ctx *logicgraph.SearchContext, pos Vec3i, faces logicgraph.Faces, rot Rotation, oldGroups []uint64, outQ *[]logicgraph.OutputEvent, inQ *[]logicgraph.InputEvent) {
	if len(oldGroups) == 0 {
		return
	}

	// Two neighbor faces of the removed cell can sit in the same surviving
	// piece (the network formed a cycle around it). A piece already relabeled
	// by an earlier face must not be renamed again: the second rename would
	// drain the first fresh group and leave it behind as a dead colored group
	// with a live recent-wire cache.
	claimed := map[uint64]struct{}{}

	// The old groups' caches point into the network being relabeled; a stale
	// hit would resolve cells of a claimed piece back to the old id.
	for _, id := range oldGroups {
		if w.graph.Group(id) != nil {
			w.graph.ClearGroupRecentWire(id)
		}
	}

	for _, lf := range modelpkg.Directions {
		if faces[lf].Kind != logicgraph.ConnWire {
			continue
		}
		gd := rot.Global(lf)
		n := pos.Step(gd)

		nConn, ok := w.connToward(ctx, n, gd.Inverse())
		if !ok {
			continue
		}
		switch {
		case nConn.Kind == logicgraph.ConnWire && nConn.Wire == logicgraph.WireColor:
			if id, found := w.graph.FindGroup(ctx, n, gd.Inverse(), int(nConn.Color), false); found {
				if _, done := claimed[id]; done {
					continue
				}
			}
			newID := w.graph.NewGroup(int(nConn.Color), nil)
			if !w.graph.RenameGroup(ctx, newID, n, gd.Inverse(), int(nConn.Color), false, outQ, inQ) {
				w.graph.RemoveGroup(newID)
			} else {
				claimed[newID] = struct{}{}
			}
		case nConn.Kind == logicgraph.ConnPort && faces[lf].Wire == logicgraph.WireColor:
			// A port whose only link was the removed wire keeps its old group
			// unless a wire-side rename already claimed it.
			p := Port{Pos: n, Dir: gd.Inverse()}
			id, _, registered := w.graph.GroupOf(p, nConn.Port)
			if registered && containsID(oldGroups, id) {
				newID := w.graph.NewGroup(logicgraph.NoColor, nil)
				if !w.graph.RenameGroup(ctx, newID, n, gd.Inverse(), logicgraph.NoColor, false, outQ, inQ) {
					w.graph.RemoveGroup(newID)
				}
			}
		}
	}

	for _, id := range oldGroups {
		if g := w.graph.Group(id); g != nil && g.Empty() {
			w.graph.RemoveGroup(id)
		}
	}
}

// connToward resolves the connection the block at pos exposes on its world
// face `face`.
func (w *World) connToward(ctx *logicgraph.SearchContext, pos Vec3i, face Direction) (logicgraph.Connection, bool) {
	faces, ok := w.defs.LogicFaces(ctx.Blocks.BlockAt(pos))
	if !ok {
		return logicgraph.Connection{}, false
	}
	conn := faces[ctx.Blocks.RotationAt(pos).Local(face)]
	if conn.Kind == logicgraph.ConnNone {
		return logicgraph.Connection{}, false
	}
	return conn, true
}

// attachBlock registers what the new block contributes: wires create, join or
// merge groups; ports register into whatever group their face touches.
func (w *World) attachBlock(ctx *logicgraph.SearchContext, pos Vec3i, b uint16, rot Rotation, outQ *[]logicgraph.OutputEvent, inQ *[]logicgraph.InputEvent) {
	faces, isLogic := w.defs.LogicFaces(b)
	if !isLogic {
		return
	}

	if color, ok := coloredWireOf(faces); ok {
		var ids []uint64
		seen := map[uint64]struct{}{}
		for _, lf := range modelpkg.Directions {
			if faces[lf].Kind != logicgraph.ConnWire {
				continue
			}
			gd := rot.Global(lf)
			n := pos.Step(gd)
			if id, found := w.graph.FindGroup(ctx, n, gd.Inverse(), color, false); found {
				if _, dup := seen[id]; !dup {
					seen[id] = struct{}{}
					ids = append(ids, id)
				}
			}
		}
		switch {
		case len(ids) == 0:
			w.graph.NewGroup(color, &pos)
		case len(ids) == 1 && w.graph.Group(ids[0]).WireColor() == color:
			w.graph.SetGroupRecentWire(ids[0], pos)
		default:
			// Several groups bridged, or a single port-only group that now
			// adopts this wire's color.
			w.graph.MergeAdjacentGroups(color, ids, &pos, inQ)
		}
	} else if hasBusFace(faces) {
		// A new bus can bridge previously separate same-colored networks.
		byColor := map[int][]uint64{}
		seen := map[uint64]struct{}{}
		for _, lf := range modelpkg.Directions {
			if faces[lf].Kind != logicgraph.ConnWire {
				continue
			}
			gd := rot.Global(lf)
			n := pos.Step(gd)
			id, found := w.graph.FindGroup(ctx, n, gd.Inverse(), logicgraph.NoColor, true)
			if !found {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			color := w.graph.Group(id).WireColor()
			byColor[color] = append(byColor[color], id)
		}
		colors := make([]int, 0, len(byColor))
		for c := range byColor {
			colors = append(colors, c)
		}
		sort.Ints(colors)
		for _, c := range colors {
			if c != logicgraph.NoColor && len(byColor[c]) > 1 {
				// The bus cell itself must not become the merged group's
				// recent wire; searches would then connect ports through it.
				w.graph.MergeAdjacentGroups(c, byColor[c], nil, inQ)
			}
		}
	}

	for _, lf := range modelpkg.Directions {
		conn := faces[lf]
		if conn.Kind != logicgraph.ConnPort {
			continue
		}
		gd := rot.Global(lf)
		n := pos.Step(gd)
		id, found := w.graph.FindGroup(ctx, n, gd.Inverse(), logicgraph.NoColor, false)
		if !found {
			id = w.graph.NewGroup(logicgraph.NoColor, nil)
		}
		w.graph.AddPort(Port{Pos: pos, Dir: gd}, id, conn.Port, 0, outQ, inQ)
	}
}

func coloredWireOf(faces logicgraph.Faces) (int, bool) {
	for _, c := range faces {
		if c.Kind == logicgraph.ConnWire && c.Wire == logicgraph.WireColor {
			return int(c.Color), true
		}
	}
	return 0, false
}

func hasBusFace(faces logicgraph.Faces) bool {
	for _, c := range faces {
		if c.Kind == logicgraph.ConnWire && c.Wire == logicgraph.WireBus {
			return true
		}
	}
	return false
}

func containsID(ids []uint64, id uint64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (w *World) applyToggles(toggles []SwitchToggle, outQ *[]logicgraph.OutputEvent) {
	for _, tg := range toggles {
		cur, ok := w.switches[tg.Pos]
		if !ok || cur == tg.On {
			continue
		}
		w.switches[tg.Pos] = tg.On
		w.queueOutputPorts(tg.Pos, outQ)
	}
}

// queueOutputPorts queues a value push for every registered output port of
// the block at pos.
func (w *World) queueOutputPorts(pos Vec3i, outQ *[]logicgraph.OutputEvent) {
	b := w.chunks.GetBlock(pos)
	faces, ok := w.defs.LogicFaces(b)
	if !ok {
		return
	}
	rot := w.rotations[pos]
	for _, lf := range modelpkg.Directions {
		conn := faces[lf]
		if conn.Kind != logicgraph.ConnPort || conn.Port != logicgraph.PortOutput {
			continue
		}
		p := Port{Pos: pos, Dir: rot.Global(lf)}
		if _, _, registered := w.graph.GroupOf(p, logicgraph.PortOutput); registered {
			*outQ = append(*outQ, logicgraph.OutputEvent{Port: p})
		}
	}
}

// drainLogic alternates output pushes and input re-evaluations until the
// queues settle or the cascade budget is exhausted. Gate feedback loops
// settle across ticks instead of spinning here.
func (w *World) drainLogic(outQ *[]logicgraph.OutputEvent, inQ *[]logicgraph.InputEvent, entry *TickLogEntry) {
	for round := 0; round < w.cfg.LogicBudget; round++ {
		if len(*outQ) == 0 && len(*inQ) == 0 {
			return
		}

		outs := dedupeOutputs(*outQ)
		*outQ = nil
		for _, ev := range outs {
			// The port may have been removed later in the same batch.
			if _, _, ok := w.graph.GroupOf(ev.Port, logicgraph.PortOutput); !ok {
				continue
			}
			w.graph.UpdateProducer(ev.Port, w.outputValue(ev.Port), inQ)
			entry.OutputsPushed++
		}

		ins := dedupeInputs(*inQ)
		*inQ = nil
		for _, ev := range ins {
			w.evalInput(ev.Port, outQ)
			entry.InputsEvaluated++
		}
	}
	if len(*outQ) > 0 || len(*inQ) > 0 {
		entry.Saturated = true
	}
}

// outputValue computes the value an output port pushes into its group.
func (w *World) outputValue(p Port) int {
	b := w.chunks.GetBlock(p.Pos)
	switch w.defs.formula(b) {
	case "SWITCH":
		if w.switches[p.Pos] {
			return 1
		}
		return 0
	case "AND", "OR", "XOR", "NOT":
		return w.gateValue(p.Pos, b)
	}
	return 0
}

// gateValue evaluates a gate's boolean formula over its input faces, in
// block-local face order so the result is deterministic.
func (w *World) gateValue(pos Vec3i, b uint16) int {
	faces, ok := w.defs.LogicFaces(b)
	if !ok {
		return 0
	}
	rot := w.rotations[pos]
	var inputs []bool
	for _, lf := range modelpkg.Directions {
		conn := faces[lf]
		if conn.Kind != logicgraph.ConnPort || conn.Port != logicgraph.PortInput {
			continue
		}
		p := Port{Pos: pos, Dir: rot.Global(lf)}
		_, grp, registered := w.graph.GroupOf(p, logicgraph.PortInput)
		inputs = append(inputs, registered && grp.On())
	}

	on := false
	switch w.defs.formula(b) {
	case "AND":
		on = len(inputs) > 0
		for _, v := range inputs {
			on = on && v
		}
	case "OR":
		for _, v := range inputs {
			on = on || v
		}
	case "XOR":
		n := 0
		for _, v := range inputs {
			if v {
				n++
			}
		}
		on = n == 1
	case "NOT":
		on = len(inputs) > 0 && !inputs[0]
	}
	if on {
		return 1
	}
	return 0
}

// evalInput reacts to a changed group aggregate at one input port.
func (w *World) evalInput(p Port, outQ *[]logicgraph.OutputEvent) {
	b := w.chunks.GetBlock(p.Pos)
	switch w.defs.formula(b) {
	case "LAMP":
		w.lamps[p.Pos] = w.anyInputOn(p.Pos, b)
	case "AND", "OR", "XOR", "NOT":
		w.queueOutputPorts(p.Pos, outQ)
	}
}

// anyInputOn reports whether any registered input port of the block at pos
// sits in a powered group.
func (w *World) anyInputOn(pos Vec3i, b uint16) bool {
	faces, ok := w.defs.LogicFaces(b)
	if !ok {
		return false
	}
	rot := w.rotations[pos]
	for _, lf := range modelpkg.Directions {
		conn := faces[lf]
		if conn.Kind != logicgraph.ConnPort || conn.Port != logicgraph.PortInput {
			continue
		}
		if _, grp, registered := w.graph.GroupOf(Port{Pos: pos, Dir: rot.Global(lf)}, logicgraph.PortInput); registered && grp.On() {
			return true
		}
	}
	return false
}

func dedupeOutputs(evs []logicgraph.OutputEvent) []logicgraph.OutputEvent {
	if len(evs) < 2 {
		return evs
	}
	sort.Slice(evs, func(i, j int) bool { return lessPort(evs[i].Port, evs[j].Port) })
	out := evs[:1]
	for _, ev := range evs[1:] {
		if ev.Port != out[len(out)-1].Port {
			out = append(out, ev)
		}
	}
	return out
}

func dedupeInputs(evs []logicgraph.InputEvent) []logicgraph.InputEvent {
	if len(evs) < 2 {
		return evs
	}
	sort.Slice(evs, func(i, j int) bool { return lessPort(evs[i].Port, evs[j].Port) })
	out := evs[:1]
	for _, ev := range evs[1:] {
		if ev.Port != out[len(out)-1].Port {
			out = append(out, ev)
		}
	}
	return out
}

func lessPort(a, b Port) bool {
	if a.Pos != b.Pos {
		return lessVec(a.Pos, b.Pos)
	}
	return a.Dir < b.Dir
}
