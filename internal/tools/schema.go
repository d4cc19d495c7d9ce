package tools

import (
	"encoding/json"
	"fmt"
)

// jsonSchema is the narrow subset of JSON-Schema this package enforces:
// object type, declared property types, and a required list. No full
// example repo in the corpus exercises a JSON-Schema validation library
// with working code — only unused go.mod manifests reference one — so
// this concern is hand-rolled against encoding/json rather than left
// ungrounded behind a fabricated dependency.
type jsonSchema struct {
	Type       string                `json:"type"`
	Properties map[string]propSchema `json:"properties"`
	Required   []string              `json:"required"`
}

type propSchema struct {
	Type string `json:"type"`
}

// validateAgainstSchema checks that input decodes as a JSON object
// carrying every required property, and that each declared property,
// when present, has the declared JSON type. Nested schemas, enums, and
// numeric ranges are not checked; tool handlers validate those
// themselves and return a tool error on a bad value.
func validateAgainstSchema(schema, input json.RawMessage) error {
	var s jsonSchema
	if len(schema) > 0 {
		if err := json.Unmarshal(schema, &s); err != nil {
			return fmt.Errorf("malformed schema: %w", err)
		}
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(input, &fields); err != nil {
		return fmt.Errorf("input must be a JSON object: %w", err)
	}

	for _, req := range s.Required {
		if _, ok := fields[req]; !ok {
			return fmt.Errorf("missing required field %q", req)
		}
	}

	for name, prop := range s.Properties {
		v, ok := fields[name]
		if !ok || v == nil || prop.Type == "" {
			continue
		}
		if !matchesType(v, prop.Type) {
			return fmt.Errorf("field %q must be of type %s", name, prop.Type)
		}
	}
	return nil
}

func matchesType(v interface{}, typ string) bool {
	switch typ {
	case "string":
		_, ok := v.(string)
		return ok
	case "number", "integer":
		_, ok := v.(float64)
		return ok
	case "boolean":
		_, ok := v.(bool)
		return ok
	case "array":
		_, ok := v.([]interface{})
		return ok
	case "object":
		_, ok := v.(map[string]interface{})
		return ok
	default:
		return true
	}
}
