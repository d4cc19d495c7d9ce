package tools

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAgainstSchemaAcceptsValidInput(t *testing.T) {
	schema := json.RawMessage(`{"type":"object","properties":{"path":{"type":"string"},"limit":{"type":"integer"}},"required":["path"]}`)
	err := validateAgainstSchema(schema, json.RawMessage(`{"path":"a.go","limit":5}`))
	assert.NoError(t, err)
}

func TestValidateAgainstSchemaMissingRequired(t *testing.T) {
	schema := json.RawMessage(`{"type":"object","properties":{"path":{"type":"string"}},"required":["path"]}`)
	err := validateAgainstSchema(schema, json.RawMessage(`{}`))
	assert.Error(t, err)
}

func TestValidateAgainstSchemaWrongType(t *testing.T) {
	schema := json.RawMessage(`{"type":"object","properties":{"count":{"type":"integer"}}}`)
	err := validateAgainstSchema(schema, json.RawMessage(`{"count":"five"}`))
	assert.Error(t, err)
}

func TestValidateAgainstSchemaIgnoresUndeclaredFields(t *testing.T) {
	schema := json.RawMessage(`{"type":"object","properties":{"path":{"type":"string"}},"required":["path"]}`)
	err := validateAgainstSchema(schema, json.RawMessage(`{"path":"a.go","extra":true}`))
	assert.NoError(t, err)
}

func TestValidateAgainstSchemaRejectsNonObjectInput(t *testing.T) {
	schema := json.RawMessage(`{"type":"object"}`)
	err := validateAgainstSchema(schema, json.RawMessage(`[1,2,3]`))
	assert.Error(t, err)
}

func TestValidateAgainstSchemaEmptySchemaAllowsAnything(t *testing.T) {
	err := validateAgainstSchema(json.RawMessage(``), json.RawMessage(`{"anything":1}`))
	assert.NoError(t, err)
}
