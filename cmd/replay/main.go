package main

import (
	"flag"
	"fmt"
	"os"

	persistlog "wirecraft.ai/internal/persistence/log"
	"wirecraft.ai/internal/persistence/snapshot"
	"wirecraft.ai/internal/sim/catalogs"
	"wirecraft.ai/internal/sim/world"
)

func main() {
	var (
		snapPath  = flag.String("snapshot", "", "path to .json.zst snapshot (optional; empty starts from an empty world)")
		eventsDir = flag.String("events", "", "events dir containing events-*.jsonl.zst")
		configDir = flag.String("configs", "./configs", "config directory")
		worldID   = flag.String("world", "world_1", "world id (fresh start only)")
		fromTick  = flag.Uint64("from_tick", 0, "start verifying from tick (inclusive, optional)")
		toTick    = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
	)
	flag.Parse()

	if *eventsDir == "" {
		fmt.Fprintln(os.Stderr, "missing -events")
		os.Exit(2)
	}

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}

	cfg := world.WorldConfig{ID: *worldID}
	var startState *world.StateExport
	if *snapPath != "" {
		snap, err := snapshot.ReadSnapshot(*snapPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read snapshot:", err)
			os.Exit(1)
		}
		fmt.Printf("snapshot v%d world=%s tick=%d seed=%d chunks=%d switches=%d\n",
			snap.Header.Version, snap.Header.WorldID, snap.Header.Tick, snap.Seed,
			len(snap.Chunks), len(snap.Switches))

		cfg.ID = snap.Header.WorldID
		cfg.TickRateHz = snap.TickRate
		cfg.Seed = snap.Seed
		cfg.BoundaryR = snap.BoundaryR
		st, err := snap.ToState()
		if err != nil {
			fmt.Fprintln(os.Stderr, "decode snapshot:", err)
			os.Exit(1)
		}
		startState = &st
	}

	w, err := world.New(cfg, cats)
	if err != nil {
		fmt.Fprintln(os.Stderr, "world:", err)
		os.Exit(1)
	}
	if startState != nil {
		if err := w.RestoreState(*startState); err != nil {
			fmt.Fprintln(os.Stderr, "restore snapshot:", err)
			os.Exit(1)
		}
	}

	startTick := w.CurrentTick()
	verifyFrom := *fromTick
	if verifyFrom == 0 {
		verifyFrom = startTick
	}

	files, err := persistlog.ListEventFiles(*eventsDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list events:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no events files found in", *eventsDir)
		os.Exit(1)
	}

	var checked uint64
	for _, path := range files {
		err := persistlog.ForEachTick(path, func(entry world.TickLogEntry) error {
			if entry.Tick <= startTick {
				return nil
			}
			if *toTick != 0 && entry.Tick > *toTick {
				return errStop
			}
			if entry.Tick != w.CurrentTick()+1 {
				return fmt.Errorf("tick gap: want=%d got=%d", w.CurrentTick()+1, entry.Tick)
			}

			edits := make([]world.BlockChangedEvent, 0, len(entry.Edits))
			for _, e := range entry.Edits {
				edits = append(edits, world.BlockChangedEvent{
					Pos:      world.Vec3i{X: e.Pos[0], Y: e.Pos[1], Z: e.Pos[2]},
					NewBlock: e.NewBlock,
					Rotation: world.Rotation(e.Rotation),
				})
			}
			toggles := make([]world.SwitchToggle, 0, len(entry.Toggles))
			for _, t := range entry.Toggles {
				toggles = append(toggles, world.SwitchToggle{
					Pos: world.Vec3i{X: t.Pos[0], Y: t.Pos[1], Z: t.Pos[2]},
					On:  t.On,
				})
			}

			got := w.Step(edits, toggles)
			if got.Tick >= verifyFrom {
				checked++
				if got.Digest != entry.Digest {
					return fmt.Errorf("digest mismatch at tick %d: got=%s want=%s", got.Tick, got.Digest, entry.Digest)
				}
			}
			return nil
		})
		if err == errStop {
			break
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, "replay:", err)
			os.Exit(1)
		}
		if *toTick != 0 && w.CurrentTick() >= *toTick {
			break
		}
	}

	fmt.Printf("replay ok: checked=%d ticks (ended at tick=%d)\n", checked, w.CurrentTick())
	for _, g := range w.GroupSummaries() {
		fmt.Printf("group id=%d color=%d signal=%d on=%v producers=%d consumers=%d\n",
			g.ID, g.Color, g.Signal, g.On, g.Producers, g.Consumers)
	}
}

var errStop = fmt.Errorf("stop")
