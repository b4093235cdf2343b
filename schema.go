package genaiconv

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

// SchemaConverter converts a function declaration's parameters into the JSON
// schema map fantasy tools expect.
type SchemaConverter interface {
	Convert(fn *genai.FunctionDeclaration) (map[string]any, error)
}

// jsonSchemaConverter converts through a JSON round trip. It prefers
// ParametersJsonSchema over Parameters when both are set.
type jsonSchemaConverter struct {
	logger *slog.Logger
}

// NewSchemaConverter returns the default SchemaConverter.
func NewSchemaConverter() SchemaConverter {
	return &jsonSchemaConverter{logger: slog.Default()}
}

// Convert implements SchemaConverter. A declaration without parameters yields
// an empty object schema map.
func (c *jsonSchemaConverter) Convert(fn *genai.FunctionDeclaration) (map[string]any, error) {
	if fn == nil {
		return map[string]any{}, nil
	}

	var src any
	switch {
	case fn.ParametersJsonSchema != nil:
		src = fn.ParametersJsonSchema
	case fn.Parameters != nil:
		src = fn.Parameters
	default:
		return map[string]any{}, nil
	}
	c.logger.Debug("converting tool schema", "function", fn.Name)

	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case json.RawMessage:
		raw = v
	case string:
		raw = []byte(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal schema for %q: %w", fn.Name, err)
		}
		raw = b
	}

	var result map[string]any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("unmarshal schema for %q: %w", fn.Name, err)
	}
	if result == nil {
		result = map[string]any{}
	}
	normalizeSchema(result)
	return result, nil
}

// normalizeSchema lower-cases "type" values (genai uses OBJECT, STRING, ...)
// and turns the string-list keywords back into []string, recursively.
func normalizeSchema(schema map[string]any) {
	if t, ok := schema["type"].(string); ok {
		schema["type"] = strings.ToLower(t)
	}
	for _, key := range []string{"required", "enum", "propertyOrdering"} {
		if list, ok := schema[key].([]any); ok {
			schema[key] = stringList(list)
		}
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		for _, prop := range props {
			if sub, ok := prop.(map[string]any); ok {
				normalizeSchema(sub)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		normalizeSchema(items)
	}
	if anyOf, ok := schema["anyOf"].([]any); ok {
		for _, item := range anyOf {
			if sub, ok := item.(map[string]any); ok {
				normalizeSchema(sub)
			}
		}
	}
}

func stringList(list []any) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		out = append(out, fmt.Sprint(v))
	}
	return out
}
