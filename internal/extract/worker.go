package extract

import (
	"context"
	"fmt"

	"github.com/ignite/salesforce-extract/internal/coerce"
	"github.com/ignite/salesforce-extract/internal/pkg/logger"
	"github.com/ignite/salesforce-extract/internal/schema"
)

// Status is the terminal state of one object's extraction.
type Status string

const (
	StatusSuccess Status = "SUCCESS" // all rows written, no coercion warnings
	StatusPartial Status = "PARTIAL" // all rows written, some values degraded to null
	StatusFailed  Status = "FAILED"  // extraction or write stopped the object
)

// Outcome is produced once per object at the end of its worker's run.
type Outcome struct {
	Object   string
	Status   Status
	Rows     int64
	Warnings int64
	Err      error
}

// ObjectWriter persists one object's coerced rows.
type ObjectWriter interface {
	WriteObject(spec schema.ObjectSpec, rows []coerce.Row) error
}

// RunObject is one object's unit of work: open the strategy, coerce every raw
// record against the spec, write the typed rows, close the strategy. A
// terminal strategy error or a write error fails the object; coercion
// warnings degrade it to PARTIAL. The outcome never depends on, or affects,
// any other object.
func RunObject(ctx context.Context, spec schema.ObjectSpec, strategy Strategy, w ObjectWriter) Outcome {
	out := Outcome{Object: spec.Name}

	if err := strategy.Open(ctx, spec); err != nil {
		out.Status = StatusFailed
		out.Err = fmt.Errorf("open: %w", err)
		return out
	}
	defer strategy.Close(ctx)

	var rows []coerce.Row
	for {
		batch, err := strategy.NextBatch(ctx)
		if err != nil {
			out.Status = StatusFailed
			out.Err = fmt.Errorf("fetch: %w", err)
			return out
		}
		if batch == nil {
			break
		}
		for _, rec := range batch {
			row, warnings := coerce.Record(spec, rec)
			rows = append(rows, row)
			out.Warnings += int64(warnings)
		}
	}

	if err := w.WriteObject(spec, rows); err != nil {
		out.Status = StatusFailed
		out.Err = fmt.Errorf("write: %w", err)
		return out
	}
	out.Rows = int64(len(rows))

	if out.Warnings > 0 {
		out.Status = StatusPartial
		logger.Warn("object extracted with coercion warnings",
			"object", spec.Name, "rows", out.Rows, "warnings", out.Warnings)
	} else {
		out.Status = StatusSuccess
	}
	return out
}
