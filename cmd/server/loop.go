package main

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"wirecraft.ai/internal/persistence/indexdb"
	persistlog "wirecraft.ai/internal/persistence/log"
	"wirecraft.ai/internal/persistence/snapshot"
	"wirecraft.ai/internal/protocol"
	"wirecraft.ai/internal/sim/catalogs"
	"wirecraft.ai/internal/sim/world"
	"wirecraft.ai/internal/transport/ws"
)

// worldLoop owns the World. All simulation access happens on its goroutine;
// the HTTP handlers read only the published status.
type worldLoop struct {
	world    *world.World
	cats     *catalogs.Catalogs
	ws       *ws.Server
	tickLog  *persistlog.TickLogger
	idx      *indexdb.SQLiteIndex
	logger   *log.Logger
	snapDir  string
	snapEach uint64
	seed     int64
	tickRate int
	boundary int

	status atomic.Value // loopStatus
}

type loopStatus struct {
	Tick   uint64
	Groups int
}

func (l *worldLoop) Status() loopStatus {
	if v := l.status.Load(); v != nil {
		return v.(loopStatus)
	}
	return loopStatus{}
}

func (l *worldLoop) run(ctx context.Context) {
	l.status.Store(loopStatus{Tick: l.world.CurrentTick()})

	interval := time.Second / time.Duration(l.tickRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pending []ws.ActEnvelope
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-l.ws.Inbox():
			pending = append(pending, env)
		case <-ticker.C:
			// Drain whatever else arrived this tick.
			for {
				select {
				case env := <-l.ws.Inbox():
					pending = append(pending, env)
					continue
				default:
				}
				break
			}
			l.step(pending)
			pending = pending[:0]
		}
	}
}

func (l *worldLoop) step(pending []ws.ActEnvelope) {
	var edits []world.BlockChangedEvent
	var toggles []world.SwitchToggle
	for _, env := range pending {
		for _, task := range env.Act.Tasks {
			e, t, ok := l.convertTask(task)
			if !ok {
				l.logger.Printf("observer %s: dropped task %s (%s)", env.ObserverID, task.ID, task.Type)
				continue
			}
			if t != nil {
				toggles = append(toggles, *t)
			} else {
				edits = append(edits, e)
			}
		}
	}

	entry := l.world.Step(edits, toggles)
	if err := l.tickLog.WriteTick(entry); err != nil {
		l.logger.Printf("tick log: %v", err)
	}
	_ = l.idx.WriteTick(entry)

	l.status.Store(loopStatus{Tick: entry.Tick, Groups: entry.Groups})

	obs := protocol.ObsMsg{
		Type:            protocol.TypeObs,
		ProtocolVersion: protocol.Version,
		Tick:            entry.Tick,
	}
	for _, g := range l.world.GroupSummaries() {
		obs.Groups = append(obs.Groups, protocol.GroupObs{
			ID:        g.ID,
			Color:     g.Color,
			Signal:    g.Signal,
			On:        g.On,
			Producers: g.Producers,
			Consumers: g.Consumers,
		})
	}
	for _, lp := range l.world.LampStates() {
		obs.Lamps = append(obs.Lamps, protocol.BlockState{Pos: lp.Pos.ToArray(), On: lp.On})
	}
	for _, sw := range l.world.SwitchStates() {
		obs.Switches = append(obs.Switches, protocol.BlockState{Pos: sw.Pos.ToArray(), On: sw.On})
	}
	l.ws.Broadcast(obs)

	if l.snapEach > 0 && entry.Tick%l.snapEach == 0 {
		l.writeSnapshot(entry.Tick)
	}
}

func (l *worldLoop) convertTask(task protocol.TaskReq) (world.BlockChangedEvent, *world.SwitchToggle, bool) {
	pos := world.Vec3i{X: task.BlockPos[0], Y: task.BlockPos[1], Z: task.BlockPos[2]}
	switch task.Type {
	case protocol.TaskToggle:
		return world.BlockChangedEvent{}, &world.SwitchToggle{Pos: pos, On: task.On}, true
	case protocol.TaskRemove:
		return world.BlockChangedEvent{Pos: pos, NewBlock: l.cats.Blocks.Index["AIR"]}, nil, true
	case protocol.TaskPlace:
		b, ok := l.cats.Blocks.Index[task.BlockID]
		if !ok {
			return world.BlockChangedEvent{}, nil, false
		}
		if task.Rotation < 0 || task.Rotation > 3 {
			return world.BlockChangedEvent{}, nil, false
		}
		return world.BlockChangedEvent{Pos: pos, NewBlock: b, Rotation: world.Rotation(task.Rotation)}, nil, true
	default:
		return world.BlockChangedEvent{}, nil, false
	}
}

func (l *worldLoop) writeSnapshot(tick uint64) {
	snap := snapshot.FromState(l.world.ID(), l.seed, l.tickRate, l.boundary, l.world.ExportState())
	path := snapshot.PathForTick(l.snapDir, tick)
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		l.logger.Printf("snapshot write: %v", err)
		return
	}
	l.idx.RecordSnapshot(path, snap)
	l.logger.Printf("snapshot written: tick=%d chunks=%d", tick, len(snap.Chunks))
}
