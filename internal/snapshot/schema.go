package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrInvalidDocument is returned when a table or node list does not have the
// expected JSON shape.
var ErrInvalidDocument = errors.New("invalid document")

const (
	tableSchemaURL = "attrinfer://schema/table.json"
	nodesSchemaURL = "attrinfer://schema/nodes.json"
)

var schemaSources = map[string]string{
	tableSchemaURL: `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"additionalProperties": {
			"oneOf": [
				{"type": "null"},
				{"type": "string"},
				{"type": "array", "items": {"type": "string"}}
			]
		}
	}`,
	nodesSchemaURL: `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "array",
		"items": {"type": "string", "minLength": 1}
	}`,
}

var (
	schemaOnce sync.Once
	schemas    map[string]*jsonschema.Schema
	schemaErr  error
)

func compiledSchema(url string) (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		for u, src := range schemaSources {
			if err := compiler.AddResource(u, strings.NewReader(src)); err != nil {
				schemaErr = err
				return
			}
		}
		schemas = make(map[string]*jsonschema.Schema, len(schemaSources))
		for u := range schemaSources {
			s, err := compiler.Compile(u)
			if err != nil {
				schemaErr = err
				return
			}
			schemas[u] = s
		}
	})
	if schemaErr != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", schemaErr)
	}
	return schemas[url], nil
}

// validate checks raw JSON against the schema at url.
func validate(url string, raw []byte) error {
	schema, err := compiledSchema(url)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return nil
}
