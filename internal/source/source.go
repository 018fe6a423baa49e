// Package source defines the predicate-table I/O boundary every storage
// backend implements, keeping the core engine (internal/table,
// internal/engine) entirely format-agnostic (spec.md's Non-goals: I/O is a
// boundary concern, not core logic).
package source

import (
	"context"

	"github.com/aces-go/aces/internal/table"
)

// PredicateTableSource reads a predicate table from some backend and
// converts it into the shared columnar Frame.
type PredicateTableSource interface {
	ReadPredicateTable(ctx context.Context) (*table.Frame, error)
}

// ResultTableSink writes an extraction result, already shaped as a Frame, to
// some backend.
type ResultTableSink interface {
	WriteResultTable(ctx context.Context, result *table.Frame) error
}
