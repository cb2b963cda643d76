package tool

import (
	"encoding/json"
	"fmt"
)

// schema is the subset of JSON Schema the registry validates tool input
// against: object shape, primitive types, required fields, enums, and one
// level of nesting for arrays and objects. Tools advertising richer schemas
// still work; unrecognized constraints are simply not enforced here (the
// model provider sees the full schema and the tool body remains the final
// authority on its input).
type schema struct {
	Type       string             `json:"type"`
	Properties map[string]*schema `json:"properties"`
	Required   []string           `json:"required"`
	Enum       []any              `json:"enum"`
	Items      *schema            `json:"items"`
}

// validateInput checks raw invocation input against a tool's input schema.
// A nil or unparseable schema validates everything: the schema is the
// tool author's contract, and a malformed one must not brick the tool.
func validateInput(rawSchema, input json.RawMessage) error {
	if len(rawSchema) == 0 {
		return nil
	}
	var s schema
	if err := json.Unmarshal(rawSchema, &s); err != nil {
		return nil
	}

	var value any = map[string]any{}
	if len(input) > 0 {
		if err := json.Unmarshal(input, &value); err != nil {
			return fmt.Errorf("%w: input is not valid JSON: %v", ErrSchemaViolation, err)
		}
	}

	if err := validateValue(value, &s, ""); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	return nil
}

func validateValue(value any, s *schema, path string) error {
	if s == nil {
		return nil
	}

	if s.Type != "" {
		if err := checkType(value, s.Type); err != nil {
			return fieldErr(path, err)
		}
	}

	if len(s.Enum) > 0 && !inEnum(value, s.Enum) {
		return fieldErr(path, fmt.Errorf("value %v is not one of %v", value, s.Enum))
	}

	switch s.Type {
	case "object":
		obj, ok := value.(map[string]any)
		if !ok {
			return fieldErr(path, fmt.Errorf("expected object, got %T", value))
		}
		for _, name := range s.Required {
			if _, present := obj[name]; !present {
				return fmt.Errorf("missing required field %q", joinPath(path, name))
			}
		}
		for name, child := range obj {
			prop, ok := s.Properties[name]
			if !ok {
				continue
			}
			if err := validateValue(child, prop, joinPath(path, name)); err != nil {
				return err
			}
		}
	case "array":
		if s.Items == nil {
			return nil
		}
		arr, ok := value.([]any)
		if !ok {
			return fieldErr(path, fmt.Errorf("expected array, got %T", value))
		}
		for i, item := range arr {
			if err := validateValue(item, s.Items, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	}

	return nil
}

func checkType(value any, want string) error {
	switch want {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
	case "number":
		if _, ok := value.(float64); !ok {
			return fmt.Errorf("expected number, got %T", value)
		}
	case "integer":
		f, ok := value.(float64)
		if !ok || f != float64(int64(f)) {
			return fmt.Errorf("expected integer, got %v", value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", value)
		}
	case "object":
		if _, ok := value.(map[string]any); !ok {
			return fmt.Errorf("expected object, got %T", value)
		}
	case "array":
		if _, ok := value.([]any); !ok {
			return fmt.Errorf("expected array, got %T", value)
		}
	case "null":
		if value != nil {
			return fmt.Errorf("expected null, got %T", value)
		}
	}
	return nil
}

func inEnum(value any, enum []any) bool {
	for _, candidate := range enum {
		if value == candidate {
			return true
		}
	}
	return false
}

func fieldErr(path string, err error) error {
	if path == "" {
		return err
	}
	return fmt.Errorf("field %q: %w", path, err)
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
