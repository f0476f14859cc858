package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/ScottBrooks/ballroom"
	"github.com/invopop/jsonschema"
)

// Frames groups every wire payload so one schema document covers them all.
type Frames struct {
	State   ballroom.SnapshotPayload `json:"state"`
	Paint   ballroom.PaintPayload    `json:"paint"`
	Control ballroom.ControlPayload  `json:"control"`
}

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema, stdout when empty")
	flag.Parse()

	data, err := json.MarshalIndent(buildSchema(), "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal schema: %v\n", err)
		os.Exit(1)
	}
	data = append(data, '\n')

	if outPath == "" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write schema: %v\n", err)
		os.Exit(1)
	}
}

func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(new(Frames))
	schema.Title = "Ballroom wire frames"
	schema.Description = "Payloads exchanged between ballroom clients through a relay"
	return schema
}
