package writer

import (
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/ignite/salesforce-extract/internal/coerce"
	"github.com/ignite/salesforce-extract/internal/schema"
)

// arrowType maps a declared field type to its arrow representation.
func arrowType(t schema.FieldType) arrow.DataType {
	switch t {
	case schema.TypeInteger:
		return arrow.PrimitiveTypes.Int64
	case schema.TypeFloat:
		return arrow.PrimitiveTypes.Float64
	case schema.TypeBoolean:
		return arrow.FixedWidthTypes.Boolean
	case schema.TypeDate:
		return arrow.FixedWidthTypes.Date32
	case schema.TypeDatetime:
		return arrow.FixedWidthTypes.Timestamp_us
	default:
		return arrow.BinaryTypes.String
	}
}

// arrowSchema builds the file schema in declared field order. Every column
// is nullable: coercion can degrade any value to null.
func arrowSchema(spec schema.ObjectSpec) *arrow.Schema {
	fields := make([]arrow.Field, len(spec.Fields))
	for i, f := range spec.Fields {
		fields[i] = arrow.Field{Name: f.Name, Type: arrowType(f.Type), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// writeParquet writes the columnar output with snappy compression. A zero-row
// input still produces a valid file carrying the schema.
func writeParquet(path string, spec schema.ObjectSpec, rows []coerce.Row) error {
	sch := arrowSchema(spec)

	bld := array.NewRecordBuilder(memory.DefaultAllocator, sch)
	defer bld.Release()

	for _, row := range rows {
		for i, field := range spec.Fields {
			appendValue(bld.Field(i), field.Type, row[field.Name])
		}
	}
	rec := bld.NewRecord()
	defer rec.Release()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	pw, err := pqarrow.NewFileWriter(sch, f, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return err
	}

	if rec.NumRows() > 0 {
		if err := pw.Write(rec); err != nil {
			pw.Close()
			return err
		}
	}
	// pw.Close flushes and closes the underlying file; closing f again would
	// return os.ErrClosed.
	return pw.Close()
}

// appendValue appends one coerced value to its column builder.
func appendValue(b array.Builder, t schema.FieldType, v coerce.Value) {
	if v.Null {
		b.AppendNull()
		return
	}
	switch fb := b.(type) {
	case *array.StringBuilder:
		fb.Append(v.Str)
	case *array.Int64Builder:
		fb.Append(v.Int)
	case *array.Float64Builder:
		fb.Append(v.Float)
	case *array.BooleanBuilder:
		fb.Append(v.Bool)
	case *array.Date32Builder:
		fb.Append(arrow.Date32FromTime(v.Time))
	case *array.TimestampBuilder:
		ts, err := arrow.TimestampFromTime(v.Time, arrow.Microsecond)
		if err != nil {
			fb.AppendNull()
			return
		}
		fb.Append(ts)
	default:
		b.AppendNull()
	}
}
