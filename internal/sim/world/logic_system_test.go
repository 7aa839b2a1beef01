package world

import (
	"testing"

	"wirecraft.ai/internal/sim/catalogs"
)

func testWorld(t *testing.T) *World {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	w, err := New(WorldConfig{ID: "test", Seed: 42, BoundaryR: 256}, cats)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	return w
}

func (w *World) placeEvent(t *testing.T, x, y, z int, block string, rot Rotation) BlockChangedEvent {
	t.Helper()
	id, ok := w.cats.Blocks.Index[block]
	if !ok {
		t.Fatalf("unknown block %q", block)
	}
	return BlockChangedEvent{Pos: Vec3i{X: x, Y: y, Z: z}, NewBlock: id, Rotation: rot}
}

func (w *World) lampAt(t *testing.T, x, y, z int) bool {
	t.Helper()
	on, ok := w.lamps[Vec3i{X: x, Y: y, Z: z}]
	if !ok {
		t.Fatalf("no lamp at (%d,%d,%d)", x, y, z)
	}
	return on
}

func TestStep_SwitchWireLamp(t *testing.T) {
	w := testWorld(t)
	w.Step([]BlockChangedEvent{
		w.placeEvent(t, 0, 0, 0, "SWITCH", 0),
		w.placeEvent(t, 1, 0, 0, "WIRE_RED", 0),
		w.placeEvent(t, 2, 0, 0, "WIRE_RED", 0),
		w.placeEvent(t, 3, 0, 0, "LAMP", 0),
	}, nil)

	if w.lampAt(t, 3, 0, 0) {
		t.Fatalf("lamp lit before the switch was flipped")
	}

	w.Step(nil, []SwitchToggle{{Pos: Vec3i{}, On: true}})
	if !w.lampAt(t, 3, 0, 0) {
		t.Fatalf("lamp dark with switch on")
	}

	w.Step(nil, []SwitchToggle{{Pos: Vec3i{}, On: false}})
	if w.lampAt(t, 3, 0, 0) {
		t.Fatalf("lamp stayed lit with switch off")
	}
}

func TestStep_AndGateCascade(t *testing.T) {
	w := testWorld(t)
	w.Step([]BlockChangedEvent{
		w.placeEvent(t, -2, 0, 0, "SWITCH", 0),
		w.placeEvent(t, -1, 0, 0, "WIRE_RED", 0),
		w.placeEvent(t, 0, 0, -2, "SWITCH", 0),
		w.placeEvent(t, 0, 0, -1, "WIRE_RED", 0),
		w.placeEvent(t, 0, 0, 0, "AND_GATE", 0),
		w.placeEvent(t, 1, 0, 0, "WIRE_RED", 0),
		w.placeEvent(t, 2, 0, 0, "LAMP", 0),
	}, nil)

	a := Vec3i{X: -2}
	b := Vec3i{Z: -2}

	w.Step(nil, []SwitchToggle{{Pos: a, On: true}})
	if w.lampAt(t, 2, 0, 0) {
		t.Fatalf("AND fired with one input")
	}

	w.Step(nil, []SwitchToggle{{Pos: b, On: true}})
	if !w.lampAt(t, 2, 0, 0) {
		t.Fatalf("AND dark with both inputs on")
	}

	w.Step(nil, []SwitchToggle{{Pos: a, On: false}})
	if w.lampAt(t, 2, 0, 0) {
		t.Fatalf("AND stayed on after losing an input")
	}
}

func TestStep_NotGateDefaultsOn(t *testing.T) {
	w := testWorld(t)
	w.Step([]BlockChangedEvent{
		w.placeEvent(t, 0, 0, 0, "NOT_GATE", 0),
		w.placeEvent(t, 1, 0, 0, "WIRE_RED", 0),
		w.placeEvent(t, 2, 0, 0, "LAMP", 0),
	}, nil)
	if !w.lampAt(t, 2, 0, 0) {
		t.Fatalf("NOT gate with open input should drive the lamp")
	}

	// Feed the input: the lamp goes dark.
	w.Step([]BlockChangedEvent{
		w.placeEvent(t, -2, 0, 0, "SWITCH", 0),
		w.placeEvent(t, -1, 0, 0, "WIRE_RED", 0),
	}, nil)
	w.Step(nil, []SwitchToggle{{Pos: Vec3i{X: -2}, On: true}})
	if w.lampAt(t, 2, 0, 0) {
		t.Fatalf("NOT gate still on with input high")
	}
}

func TestStep_WireRemovalSplitsGroup(t *testing.T) {
	w := testWorld(t)
	w.Step([]BlockChangedEvent{
		w.placeEvent(t, 0, 0, 0, "SWITCH", 0),
		w.placeEvent(t, 1, 0, 0, "WIRE_RED", 0),
		w.placeEvent(t, 2, 0, 0, "WIRE_RED", 0),
		w.placeEvent(t, 3, 0, 0, "WIRE_RED", 0),
		w.placeEvent(t, 4, 0, 0, "LAMP", 0),
	}, nil)
	w.Step(nil, []SwitchToggle{{Pos: Vec3i{}, On: true}})
	if !w.lampAt(t, 4, 0, 0) {
		t.Fatalf("lamp dark before split")
	}

	w.Step([]BlockChangedEvent{w.placeEvent(t, 2, 0, 0, "AIR", 0)}, nil)
	if w.lampAt(t, 4, 0, 0) {
		t.Fatalf("lamp survived losing its producer")
	}

	// Re-bridging merges the pieces back together and relights the lamp.
	w.Step([]BlockChangedEvent{w.placeEvent(t, 2, 0, 0, "WIRE_RED", 0)}, nil)
	if !w.lampAt(t, 4, 0, 0) {
		t.Fatalf("lamp dark after re-bridge")
	}
}

func TestStep_RingWireRemovalKeepsOneGroup(t *testing.T) {
	w := testWorld(t)
	w.Step([]BlockChangedEvent{
		w.placeEvent(t, 0, 0, 0, "SWITCH", 0),
		w.placeEvent(t, 1, 0, 0, "WIRE_RED", 0),
		w.placeEvent(t, 2, 0, 0, "WIRE_RED", 0),
		w.placeEvent(t, 1, 0, 1, "WIRE_RED", 0),
		w.placeEvent(t, 2, 0, 1, "WIRE_RED", 0),
	}, nil)

	// Breaking the ring leaves one connected arc: exactly one red group
	// survives, and no drained leftover keeps a live search cache.
	w.Step([]BlockChangedEvent{w.placeEvent(t, 1, 0, 1, "AIR", 0)}, nil)
	reds := 0
	for _, g := range w.GroupSummaries() {
		if g.Color != 1 {
			continue
		}
		reds++
		if g.Producers == 0 && g.Consumers == 0 {
			t.Fatalf("drained red group %d survived the ring break", g.ID)
		}
	}
	if reds != 1 {
		t.Fatalf("red groups after ring break = %d, want 1", reds)
	}

	// A lamp attached to the surviving arc follows the switch.
	w.Step([]BlockChangedEvent{w.placeEvent(t, 3, 0, 1, "LAMP", 0)}, nil)
	w.Step(nil, []SwitchToggle{{Pos: Vec3i{}, On: true}})
	if !w.lampAt(t, 3, 0, 1) {
		t.Fatalf("lamp on the surviving arc did not follow the switch")
	}
	w.Step(nil, []SwitchToggle{{Pos: Vec3i{}, On: false}})
	if w.lampAt(t, 3, 0, 1) {
		t.Fatalf("lamp stayed lit with switch off")
	}
}

func TestStep_LampOnBusFaceStaysDark(t *testing.T) {
	w := testWorld(t)
	w.Step([]BlockChangedEvent{
		w.placeEvent(t, 0, 0, 0, "SWITCH", 0),
		w.placeEvent(t, 1, 0, 0, "WIRE_RED", 0),
		w.placeEvent(t, 2, 0, 0, "BUS", 0),
		w.placeEvent(t, 3, 0, 0, "WIRE_RED", 0),
		w.placeEvent(t, 4, 0, 0, "LAMP", 0),
	}, nil)
	// This lamp touches the bus directly; buses never connect to ports.
	w.Step([]BlockChangedEvent{w.placeEvent(t, 2, 0, 1, "LAMP", 0)}, nil)

	w.Step(nil, []SwitchToggle{{Pos: Vec3i{}, On: true}})
	if !w.lampAt(t, 4, 0, 0) {
		t.Fatalf("signal did not ride the colored wire through the bus")
	}
	if w.lampAt(t, 2, 0, 1) {
		t.Fatalf("lamp on the bus face lit up")
	}
}

func TestStep_BusBridgesSameColorOnly(t *testing.T) {
	w := testWorld(t)
	// Red runs east-west through the bus; green dead-ends into it from the north.
	w.Step([]BlockChangedEvent{
		w.placeEvent(t, -2, 0, 0, "SWITCH", 0),
		w.placeEvent(t, -1, 0, 0, "WIRE_RED", 0),
		w.placeEvent(t, 1, 0, 0, "WIRE_RED", 0),
		w.placeEvent(t, 2, 0, 0, "LAMP", 0),
		w.placeEvent(t, 0, 0, 1, "WIRE_GREEN", 0),
		w.placeEvent(t, 0, 0, 2, "LAMP", 0),
		w.placeEvent(t, 0, 0, 0, "BUS", 0),
	}, nil)

	w.Step(nil, []SwitchToggle{{Pos: Vec3i{X: -2}, On: true}})
	if !w.lampAt(t, 2, 0, 0) {
		t.Fatalf("red signal did not ride through the bus")
	}
	if w.lampAt(t, 0, 0, 2) {
		t.Fatalf("green lamp lit from a red producer")
	}
}

func TestStep_RotatedGate(t *testing.T) {
	w := testWorld(t)
	// Two quarter-turns point the NOT gate's output at world negx.
	w.Step([]BlockChangedEvent{
		w.placeEvent(t, 0, 0, 0, "NOT_GATE", 2),
		w.placeEvent(t, -1, 0, 0, "WIRE_RED", 0),
		w.placeEvent(t, -2, 0, 0, "LAMP", 0),
	}, nil)
	if !w.lampAt(t, -2, 0, 0) {
		t.Fatalf("rotated NOT gate output not found on negx")
	}
	// Nothing connects on the old output side.
	w.Step([]BlockChangedEvent{
		w.placeEvent(t, 1, 0, 0, "WIRE_RED", 0),
		w.placeEvent(t, 2, 0, 0, "LAMP", 0),
	}, nil)
	if w.lampAt(t, 2, 0, 0) {
		t.Fatalf("rotated gate still drives its unrotated face")
	}
}

func TestStep_EditsAndTogglesAreIdempotentPerTick(t *testing.T) {
	w := testWorld(t)
	w.Step([]BlockChangedEvent{
		w.placeEvent(t, 0, 0, 0, "SWITCH", 0),
		w.placeEvent(t, 1, 0, 0, "WIRE_RED", 0),
		w.placeEvent(t, 2, 0, 0, "LAMP", 0),
	}, nil)
	w.Step(nil, []SwitchToggle{{Pos: Vec3i{}, On: true}})

	groups := w.graph.GroupCount()
	entry := w.Step(nil, []SwitchToggle{{Pos: Vec3i{}, On: true}})
	if entry.OutputsPushed != 0 {
		t.Fatalf("repeated toggle pushed %d outputs", entry.OutputsPushed)
	}
	entry = w.Step([]BlockChangedEvent{w.placeEvent(t, 1, 0, 0, "WIRE_RED", 0)}, nil)
	if w.graph.GroupCount() != groups {
		t.Fatalf("no-op edit changed group count %d -> %d", groups, w.graph.GroupCount())
	}
	if !w.lampAt(t, 2, 0, 0) {
		t.Fatalf("lamp state lost on no-op edit")
	}
}

func TestStep_MergeDistinctNetsByBridge(t *testing.T) {
	w := testWorld(t)
	w.Step([]BlockChangedEvent{
		w.placeEvent(t, 0, 0, 0, "SWITCH", 0),
		w.placeEvent(t, 1, 0, 0, "WIRE_RED", 0),
		w.placeEvent(t, 3, 0, 0, "WIRE_RED", 0),
		w.placeEvent(t, 4, 0, 0, "LAMP", 0),
	}, nil)
	w.Step(nil, []SwitchToggle{{Pos: Vec3i{}, On: true}})
	if w.lampAt(t, 4, 0, 0) {
		t.Fatalf("lamp lit across a gap")
	}

	before := w.GroupSummaries()
	w.Step([]BlockChangedEvent{w.placeEvent(t, 2, 0, 0, "WIRE_RED", 0)}, nil)
	if !w.lampAt(t, 4, 0, 0) {
		t.Fatalf("bridge did not power the lamp")
	}
	after := w.GroupSummaries()
	if len(after) >= len(before) {
		t.Fatalf("merge did not shrink group table: %d -> %d", len(before), len(after))
	}
	// Merged group ids are fresh, never reused.
	maxBefore := uint64(0)
	for _, g := range before {
		if g.ID > maxBefore {
			maxBefore = g.ID
		}
	}
	found := false
	for _, g := range after {
		if g.ID > maxBefore {
			found = true
		}
	}
	if !found {
		t.Fatalf("merged group did not get a fresh id")
	}
}
