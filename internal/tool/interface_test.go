package tool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchema_Map(t *testing.T) {
	min, max := Range(1, 5)
	s := Schema{
		Properties: map[string]SchemaProperty{
			"location": {Type: "string", Description: "city"},
			"days":     {Type: "integer", Minimum: min, Maximum: max},
			"unit":     {Type: "string", Enum: []string{"celsius", "fahrenheit"}},
		},
		Required: []string{"location"},
	}
	m := s.Map()
	assert.Equal(t, "object", m["type"])
	props := m["properties"].(map[string]any)
	assert.Equal(t, float64(5), props["days"].(map[string]any)["maximum"])
	assert.Equal(t, []any{"celsius", "fahrenheit"}, props["unit"].(map[string]any)["enum"])
	assert.Equal(t, []any{"location"}, m["required"])
}

func TestSchema_MapEmpty(t *testing.T) {
	m := Schema{}.Map()
	assert.Equal(t, "object", m["type"])
	assert.Equal(t, map[string]any{}, m["properties"])
}
