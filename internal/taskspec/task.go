package taskspec

import (
	"context"

	"github.com/aces-go/aces/internal/acerr"
	"github.com/aces-go/aces/internal/obslog"
)

// Task is the fully validated, immutable task specification: predicates,
// the trigger, and the constructed window tree (spec §3 "Lifecycles").
type Task struct {
	Predicates *PredicateSet
	Trigger    string
	Tree       *Tree
}

// NewTask validates the trigger reference and assembles the task from
// already-parsed predicates and windows.
func NewTask(ctx context.Context, predicates *PredicateSet, trigger string, windows []*Window) (*Task, error) {
	if trigger != RefRecordStart && trigger != RefRecordEnd && predicates.Get(trigger) == nil {
		return nil, acerr.Newf(acerr.ReferenceMissing, trigger, "trigger predicate is undeclared")
	}
	tree, err := BuildTree(windows, predicates)
	if err != nil {
		return nil, err
	}
	logTree(obslog.From(ctx), tree.Root, 0)
	return &Task{Predicates: predicates, Trigger: trigger, Tree: tree}, nil
}
