package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// StateDigest hashes the replay-stable world state: voxels, rotations and
// per-block logic state. Group ids are process-local and stay out of the
// digest so a world rebuilt from a snapshot hashes the same as the live one.
func (w *World) StateDigest() string {
	h := sha256.New()
	var buf [8]byte

	writeInt := func(v int) {
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(v)))
		h.Write(buf[:])
	}
	writeVec := func(p Vec3i) {
		writeInt(p.X)
		writeInt(p.Y)
		writeInt(p.Z)
	}
	writeBool := func(b bool) {
		if b {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
	}

	for _, k := range w.chunks.LoadedChunkKeys() {
		writeInt(k.CX)
		writeInt(k.CY)
		writeInt(k.CZ)
		d := w.chunks.Chunk(k).Digest()
		h.Write(d[:])
	}

	var rots []RotationEntry
	for p, r := range w.rotations {
		rots = append(rots, RotationEntry{Pos: p, Rot: r})
	}
	sortRotations(rots)
	for _, re := range rots {
		writeVec(re.Pos)
		writeInt(int(re.Rot))
	}

	for _, sw := range w.SwitchStates() {
		writeVec(sw.Pos)
		writeBool(sw.On)
	}
	for _, lp := range w.LampStates() {
		writeVec(lp.Pos)
		writeBool(lp.On)
	}

	return hex.EncodeToString(h.Sum(nil))
}
