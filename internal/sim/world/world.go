package world

import (
	"fmt"
	"sort"

	"wirecraft.ai/internal/sim/catalogs"
	"wirecraft.ai/internal/sim/world/logicgraph"
)

// World owns the voxel store plus the logic graph and drives both once per
// tick. All methods must be called from a single goroutine (the world loop);
// nothing here locks.
type World struct {
	cfg  WorldConfig
	cats *catalogs.Catalogs
	defs *logicDefs

	chunks    *ChunkStore
	rotations map[Vec3i]Rotation

	graph *logicgraph.Graph

	// Per-block runtime state for the built-in logic formulas.
	switches map[Vec3i]bool
	lamps    map[Vec3i]bool

	tick uint64
}

// BlockChangedEvent is one voxel edit of the current tick's batch.
type BlockChangedEvent struct {
	Pos      Vec3i
	NewBlock uint16
	Rotation Rotation
}

// SwitchToggle flips a SWITCH block's stored state.
type SwitchToggle struct {
	Pos Vec3i
	On  bool
}

// EditRequest is what transports submit into the world loop.
type EditRequest struct {
	Edits   []BlockChangedEvent
	Toggles []SwitchToggle
}

// RecordedEdit is a voxel edit as written to the tick log.
type RecordedEdit struct {
	Pos      [3]int `json:"pos"`
	NewBlock uint16 `json:"new_block"`
	Rotation int    `json:"rotation,omitempty"`
}

// RecordedToggle is a switch toggle as written to the tick log.
type RecordedToggle struct {
	Pos [3]int `json:"pos"`
	On  bool   `json:"on"`
}

// TickLogEntry records one tick for the event log: the inputs that were
// applied plus a state digest, enough to replay and verify the tick later.
type TickLogEntry struct {
	WorldID         string           `json:"world_id"`
	Tick            uint64           `json:"tick"`
	Edits           []RecordedEdit   `json:"edits,omitempty"`
	Toggles         []RecordedToggle `json:"toggles,omitempty"`
	OutputsPushed   int              `json:"outputs_pushed"`
	InputsEvaluated int              `json:"inputs_evaluated"`
	Groups          int              `json:"groups"`
	Saturated       bool             `json:"saturated,omitempty"`
	Digest          string           `json:"digest"`
}

func New(cfg WorldConfig, cats *catalogs.Catalogs) (*World, error) {
	cfg.applyDefaults()
	defs, err := compileLogicDefs(cats)
	if err != nil {
		return nil, fmt.Errorf("compile logic defs: %w", err)
	}
	air, ok := cats.Blocks.Index["AIR"]
	if !ok {
		return nil, fmt.Errorf("block catalog has no AIR")
	}
	return &World{
		cfg:       cfg,
		cats:      cats,
		defs:      defs,
		chunks:    NewChunkStore(air, cfg.BoundaryR),
		rotations: map[Vec3i]Rotation{},
		graph:     logicgraph.NewGraph(),
		switches:  map[Vec3i]bool{},
		lamps:     map[Vec3i]bool{},
	}, nil
}

func (w *World) ID() string           { return w.cfg.ID }
func (w *World) CurrentTick() uint64  { return w.tick }
func (w *World) Catalogs() *catalogs.Catalogs { return w.cats }
func (w *World) BlockAt(pos Vec3i) uint16     { return w.chunks.GetBlock(pos) }

func (w *World) blockName(b uint16) string {
	if int(b) < len(w.cats.Blocks.Palette) {
		return w.cats.Blocks.Palette[b]
	}
	return ""
}

// Step runs one simulation tick: apply the batched voxel edits and switch
// toggles, then drain the logic notification queues until they settle or the
// cascade budget runs out.
func (w *World) Step(edits []BlockChangedEvent, toggles []SwitchToggle) TickLogEntry {
	w.tick++
	entry := TickLogEntry{WorldID: w.cfg.ID, Tick: w.tick}
	for _, e := range edits {
		entry.Edits = append(entry.Edits, RecordedEdit{Pos: e.Pos.ToArray(), NewBlock: e.NewBlock, Rotation: int(e.Rotation)})
	}
	for _, t := range toggles {
		entry.Toggles = append(entry.Toggles, RecordedToggle{Pos: t.Pos.ToArray(), On: t.On})
	}

	var outQ []logicgraph.OutputEvent
	var inQ []logicgraph.InputEvent

	w.applyEdits(edits, &outQ, &inQ)
	w.applyToggles(toggles, &outQ)
	w.drainLogic(&outQ, &inQ, &entry)

	entry.Groups = w.graph.GroupCount()
	entry.Digest = w.StateDigest()
	return entry
}

// GroupSummary is the externally visible shape of one logic group.
type GroupSummary struct {
	ID        uint64 `json:"id"`
	Color     int    `json:"color"`
	Signal    int    `json:"signal"`
	On        bool   `json:"on"`
	Producers int    `json:"producers"`
	Consumers int    `json:"consumers"`
}

func (w *World) GroupSummaries() []GroupSummary {
	ids := w.graph.GroupIDs()
	out := make([]GroupSummary, 0, len(ids))
	for _, id := range ids {
		g := w.graph.Group(id)
		out = append(out, GroupSummary{
			ID:        id,
			Color:     g.WireColor(),
			Signal:    g.Signal(),
			On:        g.On(),
			Producers: len(g.Producers()),
			Consumers: len(g.Consumers()),
		})
	}
	return out
}

// LampState reports whether a LAMP block is currently lit.
type LampState struct {
	Pos Vec3i `json:"pos"`
	On  bool  `json:"on"`
}

func (w *World) LampStates() []LampState {
	out := make([]LampState, 0, len(w.lamps))
	for p, on := range w.lamps {
		out = append(out, LampState{Pos: p, On: on})
	}
	sort.Slice(out, func(i, j int) bool { return lessVec(out[i].Pos, out[j].Pos) })
	return out
}

// SwitchState reports a SWITCH block's stored state.
type SwitchState struct {
	Pos Vec3i `json:"pos"`
	On  bool  `json:"on"`
}

func (w *World) SwitchStates() []SwitchState {
	out := make([]SwitchState, 0, len(w.switches))
	for p, on := range w.switches {
		out = append(out, SwitchState{Pos: p, On: on})
	}
	sort.Slice(out, func(i, j int) bool { return lessVec(out[i].Pos, out[j].Pos) })
	return out
}

func lessVec(a, b Vec3i) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.Z < b.Z
}
