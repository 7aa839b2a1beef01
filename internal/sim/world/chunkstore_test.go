package world

import "testing"

func TestChunkStore_SetGetAcrossChunkSeams(t *testing.T) {
	s := NewChunkStore(0, 0)
	cases := []Vec3i{
		{X: 0, Y: 0, Z: 0},
		{X: 15, Y: 15, Z: 15},
		{X: 16, Y: 0, Z: 0},
		{X: -1, Y: -1, Z: -1},
		{X: -17, Y: 33, Z: -48},
	}
	for i, pos := range cases {
		s.SetBlock(pos, uint16(i+1))
	}
	for i, pos := range cases {
		if got := s.GetBlock(pos); got != uint16(i+1) {
			t.Fatalf("get %v = %d, want %d", pos, got, i+1)
		}
	}
	if got := s.GetBlock(Vec3i{X: 100, Y: 100, Z: 100}); got != 0 {
		t.Fatalf("untouched cell = %d, want air", got)
	}
}

func TestChunkStore_Boundary(t *testing.T) {
	s := NewChunkStore(0, 8)
	in := Vec3i{X: 8, Y: -8, Z: 8}
	out := Vec3i{X: 9, Y: 0, Z: 0}
	s.SetBlock(in, 3)
	s.SetBlock(out, 3)
	if s.GetBlock(in) != 3 {
		t.Fatalf("in-bounds write lost")
	}
	if s.GetBlock(out) != 0 {
		t.Fatalf("out-of-bounds write accepted")
	}
}

func TestChunk_DigestTracksEdits(t *testing.T) {
	s := NewChunkStore(0, 0)
	s.SetBlock(Vec3i{X: 1}, 7)
	k := ChunkKey{}
	d1 := s.Chunk(k).Digest()
	s.SetBlock(Vec3i{X: 2}, 9)
	d2 := s.Chunk(k).Digest()
	if d1 == d2 {
		t.Fatalf("digest unchanged after edit")
	}
	s.SetBlock(Vec3i{X: 2}, 9) // no-op write
	if s.Chunk(k).Digest() != d2 {
		t.Fatalf("digest changed on no-op write")
	}
}

func TestFloorDivMod(t *testing.T) {
	cases := []struct{ a, div, m int }{
		{0, 0, 0}, {15, 0, 15}, {16, 1, 0}, {-1, -1, 15}, {-16, -1, 0}, {-17, -2, 15},
	}
	for _, c := range cases {
		if floorDiv(c.a, 16) != c.div || mod(c.a, 16) != c.m {
			t.Fatalf("floorDiv/mod(%d) = %d,%d want %d,%d", c.a, floorDiv(c.a, 16), mod(c.a, 16), c.div, c.m)
		}
	}
}
