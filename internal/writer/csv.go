package writer

import (
	"encoding/csv"
	"os"

	"github.com/ignite/salesforce-extract/internal/coerce"
	"github.com/ignite/salesforce-extract/internal/schema"
)

// writeCSV writes the delimited output: a header row of field names in
// schema order, then one rendered line per row. Nulls render as empty cells.
func writeCSV(path string, spec schema.ObjectSpec, rows []coerce.Row) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(spec.FieldNames()); err != nil {
		return err
	}

	line := make([]string, len(spec.Fields))
	for _, row := range rows {
		for i, field := range spec.Fields {
			line[i] = row[field.Name].Render(field.Type)
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return f.Close()
}
