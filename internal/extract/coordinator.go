package extract

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ignite/salesforce-extract/internal/pkg/logger"
	"github.com/ignite/salesforce-extract/internal/schema"
)

// Coordinator fans object workers out over a bounded pool. Workers never
// share mutable state and one object's failure never aborts another: every
// worker reports through its own Outcome slot.
type Coordinator struct {
	Workers     int
	NewStrategy StrategyFactory
	Writer      ObjectWriter
}

// RunAll extracts every object, at most Workers at a time. Excess objects
// queue for a free slot. Outcomes come back in schema order regardless of
// completion order.
func (c *Coordinator) RunAll(ctx context.Context, specs []schema.ObjectSpec) []Outcome {
	workers := c.Workers
	if workers <= 0 {
		workers = 1
	}

	g := new(errgroup.Group)
	g.SetLimit(workers)

	outcomes := make([]Outcome, len(specs))
	for i, spec := range specs {
		g.Go(func() error {
			logger.Debug("starting object extraction", "object", spec.Name)
			outcomes[i] = RunObject(ctx, spec, c.NewStrategy(), c.Writer)
			o := outcomes[i]
			if o.Err != nil {
				logger.Error("object extraction failed", "object", o.Object, "error", o.Err)
			} else {
				logger.Info("object extraction finished",
					"object", o.Object, "status", o.Status, "rows", o.Rows, "warnings", o.Warnings)
			}
			return nil
		})
	}
	g.Wait()

	return outcomes
}

// FailedCount reports how many objects ended FAILED. The process exit code
// is non-zero iff this is non-zero.
func FailedCount(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Status == StatusFailed {
			n++
		}
	}
	return n
}
