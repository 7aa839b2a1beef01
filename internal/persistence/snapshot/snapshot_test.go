package snapshot

import (
	"path/filepath"
	"testing"

	"wirecraft.ai/internal/sim/world"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	blocks := make([]uint16, chunkVolume)
	blocks[0] = 3
	blocks[1] = 3
	blocks[100] = 9

	st := world.StateExport{
		Tick: 42,
		Chunks: []world.ChunkExport{
			{Key: world.ChunkKey{CX: -1, CY: 0, CZ: 2}, Blocks: blocks},
		},
		Rotations: []world.RotationEntry{
			{Pos: world.Vec3i{X: 1, Y: 0, Z: 2}, Rot: 3},
		},
		Switches: []world.SwitchState{
			{Pos: world.Vec3i{X: 0, Y: 0, Z: 0}, On: true},
		},
	}

	snap := FromState("W1", 1337, 5, 4000, st)
	path := PathForTick(dir, st.Tick)
	if err := WriteSnapshot(path, snap); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Header.WorldID != "W1" || got.Header.Tick != 42 {
		t.Fatalf("bad header: %+v", got.Header)
	}

	st2, err := got.ToState()
	if err != nil {
		t.Fatalf("to state: %v", err)
	}
	if st2.Tick != 42 {
		t.Fatalf("tick = %d", st2.Tick)
	}
	if len(st2.Chunks) != 1 || st2.Chunks[0].Key != st.Chunks[0].Key {
		t.Fatalf("chunks = %+v", st2.Chunks)
	}
	for i, b := range st2.Chunks[0].Blocks {
		if b != blocks[i] {
			t.Fatalf("block %d = %d, want %d", i, b, blocks[i])
		}
	}
	if len(st2.Rotations) != 1 || st2.Rotations[0] != st.Rotations[0] {
		t.Fatalf("rotations = %+v", st2.Rotations)
	}
	if len(st2.Switches) != 1 || st2.Switches[0] != st.Switches[0] {
		t.Fatalf("switches = %+v", st2.Switches)
	}
}

func TestSnapshot_Latest(t *testing.T) {
	dir := t.TempDir()

	if p, err := Latest(dir); err != nil || p != "" {
		t.Fatalf("empty dir: %q, %v", p, err)
	}

	for _, tick := range []uint64{1500, 3000, 150} {
		snap := SnapshotV1{Header: Header{Version: 1, WorldID: "W1", Tick: tick}}
		if err := WriteSnapshot(PathForTick(dir, tick), snap); err != nil {
			t.Fatalf("write %d: %v", tick, err)
		}
	}

	p, err := Latest(dir)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if want := filepath.Join(dir, "snap-000000003000.json.zst"); p != want {
		t.Fatalf("latest = %q, want %q", p, want)
	}
	if tick, ok := TickFromPath(p); !ok || tick != 3000 {
		t.Fatalf("tick from path = %d, %v", tick, ok)
	}
}
