package catalogs

import (
	_ "embed"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed blocks.schema.json
var blocksSchemaSrc string

//go:embed logic.schema.json
var logicSchemaSrc string

var (
	blocksSchema = mustCompile("blocks.schema.json", blocksSchemaSrc)
	logicSchema  = mustCompile("logic.schema.json", logicSchemaSrc)
)

func mustCompile(name, src string) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, strings.NewReader(src)); err != nil {
		panic(err)
	}
	return c.MustCompile(name)
}
