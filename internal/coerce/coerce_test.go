package coerce

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ignite/salesforce-extract/internal/schema"
)

func TestCoerceString(t *testing.T) {
	tests := []struct {
		name    string
		raw     interface{}
		want    Value
		warning bool
	}{
		{"plain string", "hello", Value{Str: "hello"}, false},
		{"nil", nil, Value{Null: true}, false},
		{"empty string", "", Value{Null: true}, false},
		{"whitespace only", "   ", Value{Null: true}, false},
		{"json number", float64(42), Value{Str: "42"}, false},
		{"json bool", true, Value{Str: "true"}, false},
		{"nested object", map[string]interface{}{"a": 1}, Value{Null: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, warned := Coerce(tt.raw, schema.TypeString)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.warning, warned)
		})
	}
}

func TestCoerceInteger(t *testing.T) {
	tests := []struct {
		name    string
		raw     interface{}
		want    Value
		warning bool
	}{
		{"integer string", "42", Value{Int: 42}, false},
		{"negative", "-7", Value{Int: -7}, false},
		{"integral json number", float64(100), Value{Int: 100}, false},
		{"fractional json number", float64(1.5), Value{Null: true}, true},
		{"fractional string", "1000.5", Value{Null: true}, true},
		{"garbage", "abc", Value{Null: true}, true},
		{"bool", true, Value{Null: true}, true},
		{"nil", nil, Value{Null: true}, false},
		{"empty string", "", Value{Null: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, warned := Coerce(tt.raw, schema.TypeInteger)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.warning, warned)
		})
	}
}

func TestCoerceFloat(t *testing.T) {
	tests := []struct {
		name    string
		raw     interface{}
		want    Value
		warning bool
	}{
		{"float string", "1000.5", Value{Float: 1000.5}, false},
		{"integer string", "3", Value{Float: 3}, false},
		{"json number", float64(2.25), Value{Float: 2.25}, false},
		{"garbage", "bad", Value{Null: true}, true},
		{"nil", nil, Value{Null: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, warned := Coerce(tt.raw, schema.TypeFloat)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.warning, warned)
		})
	}
}

func TestCoerceBoolean(t *testing.T) {
	tests := []struct {
		name    string
		raw     interface{}
		want    Value
		warning bool
	}{
		{"true", "true", Value{Bool: true}, false},
		{"TRUE", "TRUE", Value{Bool: true}, false},
		{"false", "False", Value{Bool: false}, false},
		{"one", "1", Value{Bool: true}, false},
		{"zero", "0", Value{Bool: false}, false},
		{"json bool", true, Value{Bool: true}, false},
		{"yes is not boolean", "yes", Value{Null: true}, true},
		{"nil", nil, Value{Null: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, warned := Coerce(tt.raw, schema.TypeBoolean)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.warning, warned)
		})
	}
}

func TestCoerceDateAndDatetime(t *testing.T) {
	d, warned := Coerce("2024-03-15", schema.TypeDate)
	assert.False(t, warned)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), d.Time)

	_, warned = Coerce("15/03/2024", schema.TypeDate)
	assert.True(t, warned)

	// Salesforce REST wire format
	dt, warned := Coerce("2024-03-15T10:30:00.000+0000", schema.TypeDatetime)
	assert.False(t, warned)
	assert.Equal(t, time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC).Unix(), dt.Time.Unix())

	// RFC3339 (Bulk CSV)
	dt, warned = Coerce("2024-03-15T10:30:00Z", schema.TypeDatetime)
	assert.False(t, warned)
	assert.Equal(t, time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC), dt.Time.UTC())

	_, warned = Coerce("not a time", schema.TypeDatetime)
	assert.True(t, warned)
}

// Coercion is total: any input against any declared type returns a value or
// null, never a panic.
func TestCoerceTotal(t *testing.T) {
	inputs := []interface{}{
		nil, "", "x", "42", "true", float64(1.5), true,
		map[string]interface{}{"nested": "yes"},
		[]interface{}{"a", "b"},
	}
	types := []schema.FieldType{
		schema.TypeString, schema.TypeInteger, schema.TypeFloat,
		schema.TypeBoolean, schema.TypeDate, schema.TypeDatetime,
	}
	for _, raw := range inputs {
		for _, ft := range types {
			assert.NotPanics(t, func() { Coerce(raw, ft) })
		}
	}
}

func TestRecordKeySetInvariant(t *testing.T) {
	spec := schema.ObjectSpec{
		Name: "Account",
		Fields: []schema.FieldSpec{
			{Name: "Id", Type: schema.TypeString},
			{Name: "Revenue", Type: schema.TypeFloat},
			{Name: "Missing", Type: schema.TypeInteger},
		},
	}

	raw := map[string]interface{}{
		"Id":      "001",
		"Revenue": "1000.5",
		"Extra":   "dropped",
	}

	row, warnings := Record(spec, raw)
	assert.Equal(t, 0, warnings)
	assert.Len(t, row, 3)
	assert.Equal(t, Value{Str: "001"}, row["Id"])
	assert.Equal(t, Value{Float: 1000.5}, row["Revenue"])
	assert.Equal(t, Value{Null: true}, row["Missing"])
	assert.NotContains(t, row, "Extra")
}

func TestRecordWarningCounting(t *testing.T) {
	spec := schema.ObjectSpec{
		Name: "Account",
		Fields: []schema.FieldSpec{
			{Name: "Id", Type: schema.TypeString},
			{Name: "Revenue", Type: schema.TypeFloat},
		},
	}

	good, warnings := Record(spec, map[string]interface{}{"Id": "001", "Revenue": "1000.5"})
	assert.Equal(t, 0, warnings)
	assert.Equal(t, Value{Float: 1000.5}, good["Revenue"])

	bad, warnings := Record(spec, map[string]interface{}{"Id": "002", "Revenue": "bad"})
	assert.Equal(t, 1, warnings)
	assert.Equal(t, Value{Null: true}, bad["Revenue"])
	assert.Equal(t, Value{Str: "002"}, bad["Id"])
}

func TestRender(t *testing.T) {
	assert.Equal(t, "", Value{Null: true}.Render(schema.TypeString))
	assert.Equal(t, "hello", Value{Str: "hello"}.Render(schema.TypeString))
	assert.Equal(t, "42", Value{Int: 42}.Render(schema.TypeInteger))
	assert.Equal(t, "1000.5", Value{Float: 1000.5}.Render(schema.TypeFloat))
	assert.Equal(t, "true", Value{Bool: true}.Render(schema.TypeBoolean))

	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-15", Value{Time: day}.Render(schema.TypeDate))

	ts := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-15T10:30:00Z", Value{Time: ts}.Render(schema.TypeDatetime))
}
