package indexdb

import (
	"database/sql"
	"path/filepath"
	"testing"

	"wirecraft.ai/internal/persistence/snapshot"
	"wirecraft.ai/internal/sim/world"
)

func TestSQLiteIndex_TicksAndSnapshots(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "world.sqlite")

	idx, err := OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	entry := world.TickLogEntry{
		WorldID: "w1",
		Tick:    7,
		Edits: []world.RecordedEdit{
			{Pos: [3]int{1, 0, 2}, NewBlock: 9, Rotation: 1},
			{Pos: [3]int{2, 0, 2}, NewBlock: 0},
		},
		Toggles:         []world.RecordedToggle{{Pos: [3]int{0, 0, 0}, On: true}},
		OutputsPushed:   3,
		InputsEvaluated: 2,
		Groups:          4,
		Digest:          "abc",
	}
	if err := idx.WriteTick(entry); err != nil {
		t.Fatalf("write tick: %v", err)
	}

	snap := snapshot.SnapshotV1{
		Header:   snapshot.Header{Version: 1, WorldID: "w1", Tick: 7},
		Seed:     1337,
		Chunks:   []snapshot.ChunkV1{{CX: 0, CY: 0, CZ: 0}},
		Switches: []snapshot.SwitchV1{{Pos: [3]int{0, 0, 0}, On: true}},
	}
	idx.RecordSnapshot("/tmp/snap-000000000007.json.zst", snap)

	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	// Close drains the writer queue, so the rows are visible here.
	var digest string
	var edits, toggles, groups int
	if err := db.QueryRow(`SELECT digest, edits, toggles, groups FROM ticks WHERE tick = 7`).Scan(&digest, &edits, &toggles, &groups); err != nil {
		t.Fatalf("query tick: %v", err)
	}
	if digest != "abc" || edits != 2 || toggles != 1 || groups != 4 {
		t.Fatalf("tick row = %s %d %d %d", digest, edits, toggles, groups)
	}

	var editRows int
	if err := db.QueryRow(`SELECT COUNT(*) FROM edits WHERE tick = 7`).Scan(&editRows); err != nil {
		t.Fatalf("query edits: %v", err)
	}
	if editRows != 2 {
		t.Fatalf("edit rows = %d", editRows)
	}

	var path string
	var chunks, switches int
	if err := db.QueryRow(`SELECT path, chunks, switches FROM snapshots WHERE tick = 7`).Scan(&path, &chunks, &switches); err != nil {
		t.Fatalf("query snapshot: %v", err)
	}
	if chunks != 1 || switches != 1 {
		t.Fatalf("snapshot row = %s %d %d", path, chunks, switches)
	}
}
