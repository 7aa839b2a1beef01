package world

import (
	"testing"
)

func TestExportRestore_RebuildsLogicGraph(t *testing.T) {
	w := testWorld(t)
	w.Step([]BlockChangedEvent{
		w.placeEvent(t, 0, 0, 0, "SWITCH", 0),
		w.placeEvent(t, 1, 0, 0, "WIRE_RED", 0),
		w.placeEvent(t, 2, 0, 0, "WIRE_RED", 0),
		w.placeEvent(t, 3, 0, 0, "LAMP", 0),
		w.placeEvent(t, 0, 0, 2, "NOT_GATE", 2),
		w.placeEvent(t, -1, 0, 2, "WIRE_RED", 0),
		w.placeEvent(t, -2, 0, 2, "LAMP", 0),
	}, nil)
	w.Step(nil, []SwitchToggle{{Pos: Vec3i{}, On: true}})
	if !w.lampAt(t, 3, 0, 0) || !w.lampAt(t, -2, 0, 2) {
		t.Fatalf("unexpected pre-snapshot lamp states")
	}

	st := w.ExportState()

	w2 := testWorld(t)
	if err := w2.RestoreState(st); err != nil {
		t.Fatalf("restore: %v", err)
	}

	if w2.CurrentTick() != w.CurrentTick() {
		t.Fatalf("tick %d != %d", w2.CurrentTick(), w.CurrentTick())
	}
	if got := w2.BlockAt(Vec3i{X: 1}); got != w.BlockAt(Vec3i{X: 1}) {
		t.Fatalf("voxels diverged after restore")
	}
	if !w2.switches[Vec3i{}] {
		t.Fatalf("switch state lost")
	}
	if !w2.lampAt(t, 3, 0, 0) {
		t.Fatalf("restored lamp dark; signals not rebuilt")
	}
	if !w2.lampAt(t, -2, 0, 2) {
		t.Fatalf("restored NOT-gate lamp dark")
	}

	// The rebuilt graph behaves identically under further edits.
	w.Step(nil, []SwitchToggle{{Pos: Vec3i{}, On: false}})
	w2.Step(nil, []SwitchToggle{{Pos: Vec3i{}, On: false}})
	if w.lampAt(t, 3, 0, 0) != w2.lampAt(t, 3, 0, 0) {
		t.Fatalf("restored world diverged after toggle")
	}
}
