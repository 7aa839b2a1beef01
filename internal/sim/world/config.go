package world

type WorldConfig struct {
	ID         string
	TickRateHz int
	Seed       int64
	// BoundaryR clamps builds to a cube of this half-extent around the
	// origin. Zero means unbounded.
	BoundaryR int
	// LogicBudget caps notification cascade rounds within one tick, so a
	// feedback loop of gates settles into ticks instead of spinning forever.
	LogicBudget int
}

func (c *WorldConfig) applyDefaults() {
	if c.TickRateHz <= 0 {
		c.TickRateHz = 5
	}
	if c.LogicBudget <= 0 {
		c.LogicBudget = 8
	}
}
