// Package schema loads and validates the object/field declarations that
// drive an extraction run. The declared type of each field is authoritative:
// remote values are coerced to match it, never the reverse.
package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// FieldType enumerates the target types a field can declare.
type FieldType string

const (
	TypeString   FieldType = "string"
	TypeInteger  FieldType = "integer"
	TypeFloat    FieldType = "float"
	TypeBoolean  FieldType = "boolean"
	TypeDate     FieldType = "date"
	TypeDatetime FieldType = "datetime"
)

// ParseFieldType normalizes a type token from the schema file.
func ParseFieldType(s string) (FieldType, error) {
	switch FieldType(strings.ToLower(strings.TrimSpace(s))) {
	case TypeString:
		return TypeString, nil
	case TypeInteger:
		return TypeInteger, nil
	case TypeFloat:
		return TypeFloat, nil
	case TypeBoolean:
		return TypeBoolean, nil
	case TypeDate:
		return TypeDate, nil
	case TypeDatetime:
		return TypeDatetime, nil
	default:
		return "", fmt.Errorf("unknown field type %q", s)
	}
}

// FieldSpec declares one field and its target type.
type FieldSpec struct {
	Name string
	Type FieldType
}

// ObjectSpec declares one object to extract: its API name and ordered fields.
// Immutable once loaded.
type ObjectSpec struct {
	Name   string
	Fields []FieldSpec
}

// FieldNames returns the field names in declaration order.
func (s ObjectSpec) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// SOQL builds the extraction query for this object.
func (s ObjectSpec) SOQL() string {
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(s.FieldNames(), ","), s.Name)
}

// ValidationError reports an invalid schema file. It is fatal: no extraction
// starts while the schema is invalid.
type ValidationError struct {
	Object string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Object == "" {
		return fmt.Sprintf("invalid schema: %s", e.Reason)
	}
	return fmt.Sprintf("invalid schema for object %q: %s", e.Object, e.Reason)
}

// Wire format of the schema file, matching the shape produced by the
// Salesforce object export tooling.
type wireObject struct {
	Name   string      `json:"obj_api_name"`
	Fields []wireField `json:"fields"`
}

type wireField struct {
	Name string `json:"field_api_name"`
	Type string `json:"type"`
}

// Load reads the schema file and validates it. Errors: empty schema, an
// object with zero fields, duplicate object names, duplicate field names
// within an object, or an unrecognized type token.
func Load(path string) ([]ObjectSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse validates raw schema JSON. See Load.
func Parse(data []byte) ([]ObjectSpec, error) {
	var wire []wireObject
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	if len(wire) == 0 {
		return nil, &ValidationError{Reason: "no objects declared"}
	}

	specs := make([]ObjectSpec, 0, len(wire))
	seenObjects := make(map[string]bool, len(wire))

	for _, obj := range wire {
		name := strings.TrimSpace(obj.Name)
		if name == "" {
			return nil, &ValidationError{Reason: "object with empty obj_api_name"}
		}
		if seenObjects[name] {
			return nil, &ValidationError{Object: name, Reason: "declared more than once"}
		}
		seenObjects[name] = true

		if len(obj.Fields) == 0 {
			return nil, &ValidationError{Object: name, Reason: "zero fields"}
		}

		fields := make([]FieldSpec, 0, len(obj.Fields))
		seenFields := make(map[string]bool, len(obj.Fields))
		for _, f := range obj.Fields {
			fieldName := strings.TrimSpace(f.Name)
			if fieldName == "" {
				return nil, &ValidationError{Object: name, Reason: "field with empty field_api_name"}
			}
			if seenFields[fieldName] {
				return nil, &ValidationError{Object: name, Reason: fmt.Sprintf("duplicate field %q", fieldName)}
			}
			seenFields[fieldName] = true

			ft, err := ParseFieldType(f.Type)
			if err != nil {
				return nil, &ValidationError{Object: name, Reason: fmt.Sprintf("field %q: %v", fieldName, err)}
			}
			fields = append(fields, FieldSpec{Name: fieldName, Type: ft})
		}

		specs = append(specs, ObjectSpec{Name: name, Fields: fields})
	}

	return specs, nil
}
