package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
)

type SchemaType string

const (
	TypeObject  SchemaType = "object"
	TypeArray   SchemaType = "array"
	TypeString  SchemaType = "string"
	TypeNumber  SchemaType = "number"
	TypeInteger SchemaType = "integer"
	TypeBoolean SchemaType = "boolean"
)

// Schema is the strict JSON-schema subset agents declare for their output.
// The same value is sent with the generation request and used to validate
// what comes back. Objects never accept undeclared properties.
type Schema struct {
	Type        SchemaType         `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
}

// Validate checks that raw is a single JSON document matching the schema.
func (s *Schema) Validate(raw []byte) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("invalid JSON: trailing data after document")
	}
	return s.check("$", v)
}

// PropertyNames returns the declared properties in a stable order.
func (s *Schema) PropertyNames() []string {
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Schema) check(path string, v any) error {
	switch s.Type {
	case TypeObject:
		obj, ok := v.(map[string]any)
		if !ok {
			return mismatch(path, s.Type, v)
		}
		for _, name := range s.Required {
			if _, ok := obj[name]; !ok {
				return fmt.Errorf("%s: missing required property %q", path, name)
			}
		}
		for name, val := range obj {
			prop, ok := s.Properties[name]
			if !ok {
				return fmt.Errorf("%s: unexpected property %q", path, name)
			}
			if err := prop.check(path+"."+name, val); err != nil {
				return err
			}
		}
	case TypeArray:
		arr, ok := v.([]any)
		if !ok {
			return mismatch(path, s.Type, v)
		}
		if s.Items == nil {
			return nil
		}
		for i, item := range arr {
			if err := s.Items.check(fmt.Sprintf("%s[%d]", path, i), item); err != nil {
				return err
			}
		}
	case TypeString:
		if _, ok := v.(string); !ok {
			return mismatch(path, s.Type, v)
		}
	case TypeNumber:
		if _, ok := v.(json.Number); !ok {
			return mismatch(path, s.Type, v)
		}
	case TypeInteger:
		n, ok := v.(json.Number)
		if !ok {
			return mismatch(path, s.Type, v)
		}
		f, err := n.Float64()
		if err != nil || f != math.Trunc(f) {
			return mismatch(path, s.Type, v)
		}
	case TypeBoolean:
		if _, ok := v.(bool); !ok {
			return mismatch(path, s.Type, v)
		}
	default:
		return fmt.Errorf("%s: unsupported schema type %q", path, s.Type)
	}
	return nil
}

func mismatch(path string, want SchemaType, got any) error {
	return fmt.Errorf("%s: expected %s, got %s", path, want, jsonKind(got))
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
