// Package extract drives per-object extraction: a strategy pulls raw records
// from the remote API, the worker coerces them against the schema and hands
// them to the writer, and the coordinator fans workers out over a bounded
// pool.
package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/ignite/salesforce-extract/internal/config"
	"github.com/ignite/salesforce-extract/internal/salesforce"
	"github.com/ignite/salesforce-extract/internal/schema"
)

// RawRecord is one row as returned by the remote API: field name to untyped
// value.
type RawRecord map[string]interface{}

// Strategy produces a lazy, finite, non-restartable sequence of raw records
// for one object. Open must be called first; NextBatch returns a nil batch
// once the sequence is exhausted. Close releases any remote resource and is
// best-effort.
type Strategy interface {
	Open(ctx context.Context, spec schema.ObjectSpec) error
	NextBatch(ctx context.Context) ([]RawRecord, error)
	Close(ctx context.Context)
}

// StrategyFactory creates a fresh strategy instance per object. Strategies
// hold per-object state and are never shared.
type StrategyFactory func() Strategy

// Execution types selectable on the CLI.
const (
	ExecBulk   = "BULK"
	ExecNormal = "NORMAL"
)

// NewFactory selects the extraction strategy for the run.
func NewFactory(execType string, client *salesforce.Client, cfg *config.Config) (StrategyFactory, error) {
	switch strings.ToUpper(strings.TrimSpace(execType)) {
	case ExecBulk:
		return func() Strategy { return newBulkStrategy(client, cfg.Bulk) }, nil
	case ExecNormal, "":
		return func() Strategy { return newQueryStrategy(client) }, nil
	default:
		return nil, fmt.Errorf("unknown exec type %q (want %s or %s)", execType, ExecBulk, ExecNormal)
	}
}
