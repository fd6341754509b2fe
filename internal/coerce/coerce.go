// Package coerce converts loosely-typed remote field values into the fixed
// target types declared by the schema. Coercion is total: it never panics and
// never fails a row. A value that cannot be represented in the declared type
// degrades to null and counts as a warning.
package coerce

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ignite/salesforce-extract/internal/schema"
)

// Value is a coerced field value. The zero Value is null.
type Value struct {
	Null  bool
	Str   string
	Int   int64
	Float float64
	Bool  bool
	Time  time.Time // DATE and DATETIME
}

// null is the typed null marker.
var null = Value{Null: true}

// Row maps field names to coerced values. For every row produced from one
// ObjectSpec, the key set equals the spec's field names exactly.
type Row map[string]Value

// Accepted wire layouts. Salesforce datetimes come back as
// "2006-01-02T15:04:05.000+0000"; RFC3339 covers the Bulk CSV "Z" form.
var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02 15:04:05",
}

const dateLayout = "2006-01-02"

// Coerce converts one raw value into the declared type. The second return is
// true when the value was malformed and degraded to null (a coercion
// warning). Nulls and empty strings are not warnings: the remote API uses
// both to mean "no value".
func Coerce(raw interface{}, t schema.FieldType) (Value, bool) {
	if raw == nil {
		return null, false
	}
	if s, ok := raw.(string); ok && strings.TrimSpace(s) == "" {
		return null, false
	}

	switch t {
	case schema.TypeString:
		return coerceString(raw)
	case schema.TypeInteger:
		return coerceInteger(raw)
	case schema.TypeFloat:
		return coerceFloat(raw)
	case schema.TypeBoolean:
		return coerceBoolean(raw)
	case schema.TypeDate:
		return coerceDate(raw)
	case schema.TypeDatetime:
		return coerceDatetime(raw)
	default:
		return null, true
	}
}

// Record coerces one raw record against the spec's field set. Extra remote
// fields are dropped; missing fields become null. Returns the typed row and
// the number of coercion warnings it produced.
func Record(spec schema.ObjectSpec, raw map[string]interface{}) (Row, int) {
	row := make(Row, len(spec.Fields))
	warnings := 0
	for _, f := range spec.Fields {
		v, warned := Coerce(raw[f.Name], f.Type)
		row[f.Name] = v
		if warned {
			warnings++
		}
	}
	return row, warnings
}

func coerceString(raw interface{}) (Value, bool) {
	switch v := raw.(type) {
	case string:
		return Value{Str: v}, false
	case float64:
		return Value{Str: strconv.FormatFloat(v, 'f', -1, 64)}, false
	case bool:
		return Value{Str: strconv.FormatBool(v)}, false
	case int64:
		return Value{Str: strconv.FormatInt(v, 10)}, false
	default:
		// Nested objects/arrays have no string representation we trust.
		return null, true
	}
}

func coerceInteger(raw interface{}) (Value, bool) {
	switch v := raw.(type) {
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return null, true
		}
		return Value{Int: n}, false
	case float64:
		if v != math.Trunc(v) {
			return null, true
		}
		return Value{Int: int64(v)}, false
	case int64:
		return Value{Int: v}, false
	default:
		return null, true
	}
}

func coerceFloat(raw interface{}) (Value, bool) {
	switch v := raw.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return null, true
		}
		return Value{Float: f}, false
	case float64:
		return Value{Float: v}, false
	case int64:
		return Value{Float: float64(v)}, false
	default:
		return null, true
	}
}

func coerceBoolean(raw interface{}) (Value, bool) {
	switch v := raw.(type) {
	case bool:
		return Value{Bool: v}, false
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1":
			return Value{Bool: true}, false
		case "false", "0":
			return Value{Bool: false}, false
		default:
			return null, true
		}
	case float64:
		if v == 1 {
			return Value{Bool: true}, false
		}
		if v == 0 {
			return Value{Bool: false}, false
		}
		return null, true
	default:
		return null, true
	}
}

func coerceDate(raw interface{}) (Value, bool) {
	s, ok := raw.(string)
	if !ok {
		return null, true
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return null, true
	}
	return Value{Time: t}, false
}

func coerceDatetime(raw interface{}) (Value, bool) {
	s, ok := raw.(string)
	if !ok {
		return null, true
	}
	s = strings.TrimSpace(s)
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Value{Time: t}, false
		}
	}
	return null, true
}

// Render formats a coerced value for delimited output. Nulls render empty.
func (v Value) Render(t schema.FieldType) string {
	if v.Null {
		return ""
	}
	switch t {
	case schema.TypeString:
		return v.Str
	case schema.TypeInteger:
		return strconv.FormatInt(v.Int, 10)
	case schema.TypeFloat:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	case schema.TypeBoolean:
		return strconv.FormatBool(v.Bool)
	case schema.TypeDate:
		return v.Time.Format(dateLayout)
	case schema.TypeDatetime:
		return v.Time.UTC().Format(time.RFC3339)
	default:
		return ""
	}
}
