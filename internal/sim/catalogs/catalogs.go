package catalogs

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

type Catalogs struct {
	Blocks BlockCatalog
	Logic  LogicCatalog
}

type BlockCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]BlockDef
	PaletteDigest string
	DefsDigest    string
}

type BlockDef struct {
	ID        string `json:"id"`
	Solid     bool   `json:"solid"`
	Rotatable bool   `json:"rotatable,omitempty"`
}

// LogicCatalog classifies which blocks participate in the logic graph and
// how: per block-local face, whether it exposes an input port, an output
// port, or a wire, and for gates which formula the driver evaluates.
type LogicCatalog struct {
	Defs   map[string]LogicDef
	Digest string
}

type LogicDef struct {
	Block string `json:"block"`
	// Formula is one of SWITCH, LAMP, AND, OR, XOR, NOT; empty for pure
	// wires and buses.
	Formula string             `json:"formula,omitempty"`
	Faces   map[string]FaceDef `json:"faces"`
}

type FaceDef struct {
	Type  string `json:"type"`           // "input", "output", "wire"
	Wire  string `json:"wire,omitempty"` // "bus" or "color"
	Color uint16 `json:"color,omitempty"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadBlocks(filepath.Join(configDir, "blocks.json"), &c.Blocks); err != nil {
		return nil, err
	}
	if err := loadLogic(filepath.Join(configDir, "logic.json"), &c.Logic, &c.Blocks); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func validate(schema *jsonschema.Schema, raw []byte, name string) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func loadBlocks(path string, out *BlockCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := validate(blocksSchema, raw, "blocks.json"); err != nil {
		return err
	}
	out.DefsDigest = sha256Hex(raw)

	var defs []BlockDef
	if err := json.Unmarshal(bytes.TrimSpace(raw), &defs); err != nil {
		return fmt.Errorf("blocks.json: %w", err)
	}
	out.Defs = map[string]BlockDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("blocks.json: empty id")
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("blocks.json: duplicate id %q", d.ID)
		}
		out.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	// AIR must exist and always be palette id 0.
	if _, ok := out.Defs["AIR"]; !ok {
		return fmt.Errorf("blocks.json: missing AIR")
	}
	ids = append([]string{"AIR"}, filterOut(ids, "AIR")...)

	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func loadLogic(path string, out *LogicCatalog, blocks *BlockCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := validate(logicSchema, raw, "logic.json"); err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []LogicDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("logic.json: %w", err)
	}
	out.Defs = map[string]LogicDef{}
	for _, d := range defs {
		if _, ok := blocks.Defs[d.Block]; !ok {
			return fmt.Errorf("logic.json: unknown block %q", d.Block)
		}
		if _, dup := out.Defs[d.Block]; dup {
			return fmt.Errorf("logic.json: duplicate block %q", d.Block)
		}
		for face, fd := range d.Faces {
			if !validFace(face) {
				return fmt.Errorf("logic.json: %s: bad face %q", d.Block, face)
			}
			if fd.Type == "wire" && fd.Wire != "bus" && fd.Wire != "color" {
				return fmt.Errorf("logic.json: %s/%s: bad wire kind %q", d.Block, face, fd.Wire)
			}
		}
		out.Defs[d.Block] = d
	}
	return nil
}

func validFace(s string) bool {
	switch s {
	case "posx", "negx", "posy", "negy", "posz", "negz":
		return true
	}
	return false
}

func filterOut(ids []string, drop string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}
