package config

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// manifestSchemaJSON is the structural schema every manifest document must
// satisfy before the strict Go decode even runs. It exists to give callers
// a single, precise error for shape problems (wrong types, missing
// required keys) that json/yaml's own unknown-field rejection can't
// phrase as well.
const manifestSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["version", "steps"],
  "properties": {
    "version": {"type": "integer"},
    "retry": {
      "type": "object",
      "properties": {
        "base_seconds": {"type": "number", "minimum": 0},
        "cap_seconds": {"type": "number", "minimum": 0}
      }
    },
    "steps": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["step_id"],
        "properties": {
          "step_id": {"type": "string", "minLength": 1},
          "name": {"type": "string"},
          "is_hard_gate": {"type": "boolean"},
          "is_manual_gated": {"type": "boolean"},
          "max_retries": {"type": "integer", "minimum": 0},
          "retry_classes": {
            "type": "array",
            "items": {"type": "string"}
          }
        }
      }
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledManifestSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource("manifest.json", strings.NewReader(manifestSchemaJSON)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile("manifest.json")
	})
	return schema, schemaErr
}

// validateAgainstSchema checks a raw manifest document (JSON or YAML,
// selected by ext) against manifestSchemaJSON, independent of the later
// strict struct decode.
func validateAgainstSchema(b []byte, ext string) error {
	s, err := compiledManifestSchema()
	if err != nil {
		return err
	}

	jsonBytes := b
	if ext != ".json" {
		var generic any
		if err := yaml.Unmarshal(b, &generic); err != nil {
			return err
		}
		jsonBytes, err = json.Marshal(generic)
		if err != nil {
			return err
		}
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(jsonBytes))
	if err != nil {
		return err
	}
	return s.Validate(doc)
}
