package model

type Vec3i struct {
	X int
	Y int
	Z int
}

func (v Vec3i) ToArray() [3]int { return [3]int{v.X, v.Y, v.Z} }

func (v Vec3i) Step(d Direction) Vec3i {
	s := d.Vec()
	return Vec3i{X: v.X + s.X, Y: v.Y + s.Y, Z: v.Z + s.Z}
}

func Manhattan(a, b Vec3i) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	dz := a.Z - b.Z
	if dz < 0 {
		dz = -dz
	}
	return dx + dy + dz
}

// Direction is one of the six block faces, in world space.
type Direction uint8

const (
	PosX Direction = iota
	NegX
	PosY
	NegY
	PosZ
	NegZ
)

var dirVecs = [6]Vec3i{
	{X: 1}, {X: -1},
	{Y: 1}, {Y: -1},
	{Z: 1}, {Z: -1},
}

var dirNames = [6]string{"posx", "negx", "posy", "negy", "posz", "negz"}

func (d Direction) Vec() Vec3i { return dirVecs[d] }

func (d Direction) Inverse() Direction {
	// Pairs are adjacent in the enum.
	return d ^ 1
}

func (d Direction) String() string { return dirNames[d] }

func ParseDirection(s string) (Direction, bool) {
	for i, n := range dirNames {
		if n == s {
			return Direction(i), true
		}
	}
	return 0, false
}

// Directions lists all six faces in enum order. Callers must not mutate it.
var Directions = [6]Direction{PosX, NegX, PosY, NegY, PosZ, NegZ}

// Rotation is the number of quarter-turns about +Y applied to a block when it
// was placed (0..3). +X rotates toward +Z on the first turn; the vertical
// faces are unaffected.
type Rotation uint8

// yawCycle is the +X -> +Z -> -X -> -Z face cycle for one quarter-turn.
var yawCycle = map[Direction]Direction{
	PosX: PosZ,
	PosZ: NegX,
	NegX: NegZ,
	NegZ: PosX,
}

// Global maps a block-local face to the world-space face it occupies after
// this rotation.
func (r Rotation) Global(d Direction) Direction {
	if d == PosY || d == NegY {
		return d
	}
	for i := 0; i < int(r%4); i++ {
		d = yawCycle[d]
	}
	return d
}

// Local maps a world-space face back to the block-local face.
func (r Rotation) Local(d Direction) Direction {
	if d == PosY || d == NegY {
		return d
	}
	for i := 0; i < int(r%4); i++ {
		d = yawCycle[yawCycle[yawCycle[d]]]
	}
	return d
}
