package log

import (
	"path/filepath"
	"testing"

	"wirecraft.ai/internal/sim/world"
)

func TestTickLogger_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	l := NewTickLogger(dir)
	for tick := uint64(1); tick <= 3; tick++ {
		entry := world.TickLogEntry{
			WorldID: "W1",
			Tick:    tick,
			Edits:   []world.RecordedEdit{{Pos: [3]int{int(tick), 0, 0}, NewBlock: 9}},
			Digest:  "d",
		}
		if err := l.WriteTick(entry); err != nil {
			t.Fatalf("write tick %d: %v", tick, err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := ListEventFiles(filepath.Join(dir, "events"))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("files = %v", files)
	}

	var got []world.TickLogEntry
	err = ForEachTick(files[0], func(e world.TickLogEntry) error {
		got = append(got, e)
		return nil
	})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("entries = %d", len(got))
	}
	for i, e := range got {
		if e.Tick != uint64(i+1) || e.WorldID != "W1" {
			t.Fatalf("entry %d = %+v", i, e)
		}
		if len(e.Edits) != 1 || e.Edits[0].NewBlock != 9 {
			t.Fatalf("entry %d edits = %+v", i, e.Edits)
		}
	}
}
