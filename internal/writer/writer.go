// Package writer materializes coerced rows as parquet and csv files, one
// pair per object, with columns mirroring the schema's field order and types.
package writer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ignite/salesforce-extract/internal/coerce"
	"github.com/ignite/salesforce-extract/internal/schema"
)

// WriteError is a path or I/O failure while producing an object's files.
// Fatal for that object only, never for the run.
type WriteError struct {
	Object string
	Path   string
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s for object %s: %v", e.Path, e.Object, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Writer writes object files into a single output directory. Objects have
// disjoint file paths, so concurrent workers can share one Writer.
type Writer struct {
	dir string
}

// New creates the output directory if needed.
func New(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", dir, err)
	}
	return &Writer{dir: dir}, nil
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// WriteObject writes <dir>/<object>.csv and <dir>/<object>.parquet. Both
// files are produced even for zero rows: header and schema only, never
// skipped.
func (w *Writer) WriteObject(spec schema.ObjectSpec, rows []coerce.Row) error {
	csvPath := filepath.Join(w.dir, spec.Name+".csv")
	if err := writeCSV(csvPath, spec, rows); err != nil {
		return &WriteError{Object: spec.Name, Path: csvPath, Err: err}
	}

	parquetPath := filepath.Join(w.dir, spec.Name+".parquet")
	if err := writeParquet(parquetPath, spec, rows); err != nil {
		return &WriteError{Object: spec.Name, Path: parquetPath, Err: err}
	}
	return nil
}
