package snapshot

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"wirecraft.ai/internal/sim/encoding"
	"wirecraft.ai/internal/sim/world"
)

const chunkVolume = 16 * 16 * 16

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
}

// SnapshotV1 persists the voxel contents and derived block states. The
// logic graph is absent on purpose: group ids are process-local and the
// graph is rebuilt from the voxels on restore.
type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed      int64 `json:"seed"`
	TickRate  int   `json:"tick_rate_hz"`
	BoundaryR int   `json:"boundary_r"`

	Chunks    []ChunkV1    `json:"chunks"`
	Rotations []RotationV1 `json:"rotations,omitempty"`
	Switches  []SwitchV1   `json:"switches,omitempty"`
}

type ChunkV1 struct {
	CX     int    `json:"cx"`
	CY     int    `json:"cy"`
	CZ     int    `json:"cz"`
	Blocks string `json:"blocks"` // RLE, base64
}

type RotationV1 struct {
	Pos [3]int `json:"pos"`
	Rot int    `json:"rot"`
}

type SwitchV1 struct {
	Pos [3]int `json:"pos"`
	On  bool   `json:"on"`
}

// FromState converts a world export into the wire form.
func FromState(worldID string, seed int64, tickRate, boundaryR int, st world.StateExport) SnapshotV1 {
	snap := SnapshotV1{
		Header:    Header{Version: 1, WorldID: worldID, Tick: st.Tick},
		Seed:      seed,
		TickRate:  tickRate,
		BoundaryR: boundaryR,
	}
	for _, ce := range st.Chunks {
		snap.Chunks = append(snap.Chunks, ChunkV1{
			CX:     ce.Key.CX,
			CY:     ce.Key.CY,
			CZ:     ce.Key.CZ,
			Blocks: encoding.EncodeRLE(ce.Blocks),
		})
	}
	for _, re := range st.Rotations {
		snap.Rotations = append(snap.Rotations, RotationV1{Pos: re.Pos.ToArray(), Rot: int(re.Rot)})
	}
	for _, sw := range st.Switches {
		snap.Switches = append(snap.Switches, SwitchV1{Pos: sw.Pos.ToArray(), On: sw.On})
	}
	return snap
}

// ToState decodes the wire form back into a world export.
func (snap SnapshotV1) ToState() (world.StateExport, error) {
	st := world.StateExport{Tick: snap.Header.Tick}
	for _, c := range snap.Chunks {
		blocks, err := encoding.DecodeRLE(c.Blocks, chunkVolume)
		if err != nil {
			return st, fmt.Errorf("chunk (%d,%d,%d): %w", c.CX, c.CY, c.CZ, err)
		}
		st.Chunks = append(st.Chunks, world.ChunkExport{
			Key:    world.ChunkKey{CX: c.CX, CY: c.CY, CZ: c.CZ},
			Blocks: blocks,
		})
	}
	for _, r := range snap.Rotations {
		st.Rotations = append(st.Rotations, world.RotationEntry{
			Pos: world.Vec3i{X: r.Pos[0], Y: r.Pos[1], Z: r.Pos[2]},
			Rot: world.Rotation(r.Rot),
		})
	}
	for _, sw := range snap.Switches {
		st.Switches = append(st.Switches, world.SwitchState{
			Pos: world.Vec3i{X: sw.Pos[0], Y: sw.Pos[1], Z: sw.Pos[2]},
			On:  sw.On,
		})
	}
	return st, nil
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	if err := json.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	if err := json.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("json decode: %w", err)
	}
	return snap, nil
}

// PathForTick names snapshots so Latest can order them lexically.
func PathForTick(dir string, tick uint64) string {
	return filepath.Join(dir, fmt.Sprintf("snap-%012d.json.zst", tick))
}

// Latest returns the newest snapshot path in dir, or "" if none exist.
func Latest(dir string) (string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	var names []string
	for _, e := range ents {
		n := e.Name()
		if strings.HasPrefix(n, "snap-") && strings.HasSuffix(n, ".json.zst") {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return "", nil
	}
	sort.Strings(names)
	return filepath.Join(dir, names[len(names)-1]), nil
}

// TickFromPath parses the tick out of a snapshot filename.
func TickFromPath(path string) (uint64, bool) {
	n := filepath.Base(path)
	n = strings.TrimPrefix(n, "snap-")
	n = strings.TrimSuffix(n, ".json.zst")
	tick, err := strconv.ParseUint(n, 10, 64)
	if err != nil {
		return 0, false
	}
	return tick, true
}
