package world

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"
)

const chunkEdge = 16

type ChunkKey struct {
	CX int
	CY int
	CZ int
}

type Chunk struct {
	CX, CY, CZ int
	Blocks     []uint16 // len = 16*16*16

	dirty bool
	hash  [32]byte
}

func (c *Chunk) index(x, y, z int) int {
	// x fastest, then z, then y
	return x + z*chunkEdge + y*chunkEdge*chunkEdge
}

func (c *Chunk) Get(x, y, z int) uint16 {
	return c.Blocks[c.index(x, y, z)]
}

func (c *Chunk) Set(x, y, z int, b uint16) {
	i := c.index(x, y, z)
	if c.Blocks[i] == b {
		return
	}
	c.Blocks[i] = b
	c.dirty = true
}

func (c *Chunk) Digest() [32]byte {
	if c.dirty || c.hash == ([32]byte{}) {
		h := sha256.New()
		var tmp [2]byte
		for _, v := range c.Blocks {
			binary.LittleEndian.PutUint16(tmp[:], v)
			h.Write(tmp[:])
		}
		copy(c.hash[:], h.Sum(nil))
		c.dirty = false
	}
	return c.hash
}

// ChunkStore is sparse voxel storage: chunks materialize on first write and
// start out all air (structures are built, never generated).
// Accessed only from the world loop goroutine.
type ChunkStore struct {
	air       uint16
	boundaryR int
	chunks    map[ChunkKey]*Chunk
}

func NewChunkStore(air uint16, boundaryR int) *ChunkStore {
	return &ChunkStore{
		air:       air,
		boundaryR: boundaryR,
		chunks:    map[ChunkKey]*Chunk{},
	}
}

func (s *ChunkStore) inBounds(pos Vec3i) bool {
	if s.boundaryR <= 0 {
		return true
	}
	r := s.boundaryR
	return pos.X >= -r && pos.X <= r && pos.Y >= -r && pos.Y <= r && pos.Z >= -r && pos.Z <= r
}

func (s *ChunkStore) LoadedChunkKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(s.chunks))
	for k := range s.chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		if keys[i].CY != keys[j].CY {
			return keys[i].CY < keys[j].CY
		}
		return keys[i].CZ < keys[j].CZ
	})
	return keys
}

func (s *ChunkStore) Chunk(k ChunkKey) *Chunk { return s.chunks[k] }

func (s *ChunkStore) GetBlock(pos Vec3i) uint16 {
	if !s.inBounds(pos) {
		return s.air
	}
	k := ChunkKey{CX: floorDiv(pos.X, chunkEdge), CY: floorDiv(pos.Y, chunkEdge), CZ: floorDiv(pos.Z, chunkEdge)}
	ch, ok := s.chunks[k]
	if !ok {
		return s.air
	}
	return ch.Get(mod(pos.X, chunkEdge), mod(pos.Y, chunkEdge), mod(pos.Z, chunkEdge))
}

func (s *ChunkStore) SetBlock(pos Vec3i, b uint16) {
	if !s.inBounds(pos) {
		return
	}
	k := ChunkKey{CX: floorDiv(pos.X, chunkEdge), CY: floorDiv(pos.Y, chunkEdge), CZ: floorDiv(pos.Z, chunkEdge)}
	ch, ok := s.chunks[k]
	if !ok {
		if b == s.air {
			return
		}
		ch = &Chunk{
			CX:     k.CX,
			CY:     k.CY,
			CZ:     k.CZ,
			Blocks: make([]uint16, chunkEdge*chunkEdge*chunkEdge),
		}
		if s.air != 0 {
			for i := range ch.Blocks {
				ch.Blocks[i] = s.air
			}
		}
		s.chunks[k] = ch
	}
	ch.Set(mod(pos.X, chunkEdge), mod(pos.Y, chunkEdge), mod(pos.Z, chunkEdge), b)
}

// InstallChunk replaces a whole chunk's contents, used by snapshot restore.
func (s *ChunkStore) InstallChunk(k ChunkKey, blocks []uint16) {
	ch := &Chunk{CX: k.CX, CY: k.CY, CZ: k.CZ, Blocks: blocks, dirty: true}
	_ = ch.Digest()
	s.chunks[k] = ch
}

func floorDiv(a, b int) int {
	// b > 0
	q := a / b
	r := a % b
	if r < 0 {
		q--
	}
	return q
}

func mod(a, b int) int {
	// b > 0
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
