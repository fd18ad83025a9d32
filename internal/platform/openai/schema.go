package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// Object builds a strict-mode object schema: every property is required and
// no extra keys are allowed.
func Object(props map[string]any) map[string]any {
	required := make([]string, 0, len(props))
	for k := range props {
		required = append(required, k)
	}
	sort.Strings(required)
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

func String() map[string]any  { return map[string]any{"type": "string"} }
func Boolean() map[string]any { return map[string]any{"type": "boolean"} }
func Integer() map[string]any { return map[string]any{"type": "integer"} }
func Number() map[string]any  { return map[string]any{"type": "number"} }

func Array(items map[string]any) map[string]any {
	return map[string]any{"type": "array", "items": items}
}

func Enum(values ...string) map[string]any {
	return map[string]any{"type": "string", "enum": values}
}

// Decode converts a GenerateJSON result into a typed value.
func Decode(obj map[string]any, out any) error {
	raw, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode model output: %w", err)
	}
	return nil
}

// GenerateInto runs GenerateJSON and decodes the result into out.
func GenerateInto(ctx context.Context, c Client, system, user, name string, schema map[string]any, out any) error {
	obj, err := c.GenerateJSON(ctx, system, user, name, schema)
	if err != nil {
		return err
	}
	return Decode(obj, out)
}

// GenerateIntoWithImages is GenerateInto over page images.
func GenerateIntoWithImages(ctx context.Context, c Client, system, user string, images []ImageInput, name string, schema map[string]any, out any) error {
	obj, err := c.GenerateJSONWithImages(ctx, system, user, images, name, schema)
	if err != nil {
		return err
	}
	return Decode(obj, out)
}
