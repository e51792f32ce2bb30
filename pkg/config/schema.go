package config

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Schema returns the JSON Schema document describing the ambient Config
// shape, reflected off the Go struct the same way
// tools/schema-generator generates flow's plan schema: AllowAdditionalProperties
// so per-job sections pass through untouched, ExpandedStruct so the
// top-level object (rather than a $ref) carries the title/description, and
// FieldNameTag "yaml" since config.yaml, not JSON, is the on-disk format.
func Schema() *jsonschema.Schema {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: true,
		ExpandedStruct:            true,
		FieldNameTag:              "yaml",
	}

	schema := reflector.Reflect(&Config{})
	schema.Title = "pc-switcher configuration"
	schema.Description = "Schema for ~/.config/pc-switcher/config.yaml. Per-job sections are validated separately against each job's own CONFIG_SCHEMA."
	schema.Required = nil

	return schema
}

// SchemaJSON renders Schema as indented JSON, for tests; no CLI command
// prints it.
func SchemaJSON() ([]byte, error) {
	b, err := json.MarshalIndent(Schema(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal config schema: %w", err)
	}
	return b, nil
}
