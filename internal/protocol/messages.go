package protocol

// HelloMsg opens an observer session.
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ObserverName    string `json:"observer_name"`
}

// WelcomeMsg answers a HELLO.
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	ObserverID      string      `json:"observer_id"`
	WorldParams     WorldParams `json:"world_params"`
	Catalogs        CatalogInfo `json:"catalogs"`
}

type WorldParams struct {
	WorldID    string `json:"world_id"`
	TickRateHz int    `json:"tick_rate_hz"`
	BoundaryR  int    `json:"boundary_r"`
	Seed       int64  `json:"seed"`
}

type CatalogInfo struct {
	BlockPaletteDigest string `json:"block_palette_digest"`
	LogicDigest        string `json:"logic_digest"`
	BlockCount         int    `json:"block_count"`
}

// ObsMsg is broadcast after every tick: the live group table plus derived
// block states.
type ObsMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	Tick            uint64       `json:"tick"`
	Groups          []GroupObs   `json:"groups"`
	Lamps           []BlockState `json:"lamps,omitempty"`
	Switches        []BlockState `json:"switches,omitempty"`
}

type GroupObs struct {
	ID        uint64 `json:"id"`
	Color     int    `json:"color"`
	Signal    int    `json:"signal"`
	On        bool   `json:"on"`
	Producers int    `json:"producers"`
	Consumers int    `json:"consumers"`
}

type BlockState struct {
	Pos [3]int `json:"pos"`
	On  bool   `json:"on"`
}

// ActMsg carries a batch of edit tasks for one tick.
type ActMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	Tick            uint64    `json:"tick"`
	Tasks           []TaskReq `json:"tasks"`
}

// Task types.
const (
	TaskPlace  = "PLACE"
	TaskRemove = "REMOVE"
	TaskToggle = "TOGGLE"
)

type TaskReq struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	BlockID  string `json:"block_id,omitempty"`
	BlockPos [3]int `json:"block_pos"`
	Rotation int    `json:"rotation,omitempty"`
	On       bool   `json:"on,omitempty"`
}

// ErrorMsg reports a rejected message.
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Detail          string `json:"detail,omitempty"`
}

// Error codes.
const (
	ErrBadMessage   = "BAD_MESSAGE"
	ErrBadVersion   = "BAD_VERSION"
	ErrUnknownBlock = "UNKNOWN_BLOCK"
)
