package world

import (
	modelpkg "wirecraft.ai/internal/sim/world/kernel/model"
	"wirecraft.ai/internal/sim/world/logicgraph"
)

type Vec3i = modelpkg.Vec3i
type Direction = modelpkg.Direction
type Rotation = modelpkg.Rotation

const (
	PosX = modelpkg.PosX
	NegX = modelpkg.NegX
	PosY = modelpkg.PosY
	NegY = modelpkg.NegY
	PosZ = modelpkg.PosZ
	NegZ = modelpkg.NegZ
)

func Manhattan(a, b Vec3i) int { return modelpkg.Manhattan(a, b) }

type Port = logicgraph.Port
