package logicgraph

import "wirecraft.ai/internal/sim/world/kernel/model"

// Overlay is a read-through shadow over the real voxel store. The driver
// stages every edit of the current tick here before mutating storage, so a
// search launched mid-batch sees either all of the batch or none of it,
// never a mix.
type Overlay struct {
	base      BlockSource
	blocks    map[model.Vec3i]uint16
	rotations map[model.Vec3i]model.Rotation
}

func NewOverlay(base BlockSource) *Overlay {
	return &Overlay{
		base:      base,
		blocks:    map[model.Vec3i]uint16{},
		rotations: map[model.Vec3i]model.Rotation{},
	}
}

// Stage records one pending edit. Later stages for the same cell win.
func (o *Overlay) Stage(pos model.Vec3i, block uint16, rot model.Rotation) {
	o.blocks[pos] = block
	o.rotations[pos] = rot
}

func (o *Overlay) BlockAt(pos model.Vec3i) uint16 {
	if b, ok := o.blocks[pos]; ok {
		return b
	}
	return o.base.BlockAt(pos)
}

func (o *Overlay) RotationAt(pos model.Vec3i) model.Rotation {
	if r, ok := o.rotations[pos]; ok {
		return r
	}
	return o.base.RotationAt(pos)
}
