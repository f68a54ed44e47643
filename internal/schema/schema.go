// Package schema derives tool input schemas for the Anthropic API, either from
// Go struct types or from raw JSON Schema documents reported by remote tool
// servers.
package schema

import (
	"encoding/json"
	"reflect"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/invopop/jsonschema"
)

var cache sync.Map // reflect.Type -> anthropic.ToolInputSchemaParam

// Generate produces an anthropic.ToolInputSchemaParam from a Go struct type T
// using its json and jsonschema struct tags. Results are cached per type.
func Generate[T any]() anthropic.ToolInputSchemaParam {
	typ := reflect.TypeFor[T]()
	if v, ok := cache.Load(typ); ok {
		return v.(anthropic.ToolInputSchemaParam)
	}

	var zero T
	root := resolveRoot(jsonschema.Reflect(&zero))

	param := anthropic.ToolInputSchemaParam{
		Properties: schemaProperties(root),
		Required:   root.Required,
	}
	if param.Properties == nil {
		param.Properties = map[string]any{}
	}
	cache.Store(typ, param)
	return param
}

// resolveRoot follows the top-level $ref into $defs.
func resolveRoot(s *jsonschema.Schema) *jsonschema.Schema {
	if s.Ref == "" || s.Definitions == nil {
		return s
	}
	name := strings.TrimPrefix(s.Ref, "#/$defs/")
	if def, ok := s.Definitions[name]; ok {
		return def
	}
	return s
}

// schemaProperties converts ordered properties into a plain map.
func schemaProperties(s *jsonschema.Schema) map[string]any {
	if s.Properties == nil {
		return nil
	}
	props := make(map[string]any)
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		props[pair.Key] = propertySchema(pair.Value)
	}
	return props
}

// propertySchema converts a single property schema to a serializable map.
func propertySchema(s *jsonschema.Schema) map[string]any {
	m := make(map[string]any)

	if s.Type != "" {
		m["type"] = s.Type
	}
	if s.Description != "" {
		m["description"] = s.Description
	}
	if s.Default != nil {
		m["default"] = s.Default
	}
	if len(s.Enum) > 0 {
		m["enum"] = s.Enum
	}

	// Nullable pointers reflect as anyOf[T, null].
	for _, sub := range s.AnyOf {
		if sub.Type != "null" && sub.Type != "" {
			m["type"] = sub.Type
			break
		}
	}

	if s.Properties != nil {
		m["type"] = "object"
		m["properties"] = schemaProperties(s)
		if len(s.Required) > 0 {
			m["required"] = s.Required
		}
	}
	if s.Items != nil {
		m["items"] = propertySchema(s.Items)
	}
	return m
}

// FromJSON builds a ToolInputSchemaParam from a raw JSON Schema object, as
// returned by MCP tools/list. Unparseable input yields an empty object schema.
func FromJSON(raw json.RawMessage) anthropic.ToolInputSchemaParam {
	param := anthropic.ToolInputSchemaParam{Properties: map[string]any{}}
	if len(raw) == 0 {
		return param
	}

	var parsed map[string]any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return param
	}

	if props, ok := parsed["properties"].(map[string]any); ok {
		param.Properties = props
	}
	if req, ok := parsed["required"].([]any); ok {
		required := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				required = append(required, s)
			}
		}
		param.Required = required
	}
	return param
}
