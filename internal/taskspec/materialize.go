package taskspec

import (
	"github.com/aces-go/aces/internal/acerr"
	"github.com/aces-go/aces/internal/table"
)

// Materialize computes every derived predicate's {0,1} column into f, in
// TopologicalOrder, so each predicate's inputs (plain columns already in f,
// or an earlier derived predicate just appended) are present by the time it
// is evaluated. This mirrors predicates.py's "with_columns(code.eval_expr())
// in topo order" step, run once up front before the engine ever seeds a
// trigger or aggregates a window (spec §3 "Derived predicates").
func (s *PredicateSet) Materialize(f *table.Frame) error {
	for _, name := range s.TopologicalOrder() {
		p := s.byName[name]
		values := make([]int64, f.Len())
		for i := range values {
			v, err := p.evalRow(f, i)
			if err != nil {
				return err
			}
			values[i] = v
		}
		f.AddColumn(name, values)
	}
	return nil
}

// evalRow evaluates a derived predicate's and/or combinator over its
// inputs at row i, treating any non-zero input value as true.
func (p *Predicate) evalRow(f *table.Frame, i int) (int64, error) {
	switch p.Operator {
	case OperatorAnd:
		for _, in := range p.Inputs {
			col := f.Col(in)
			if col == nil {
				return 0, acerr.Newf(acerr.ReferenceMissing, in, "derived predicate %q references column %q not present in predicate table", p.Name, in)
			}
			if col[i] == 0 {
				return 0, nil
			}
		}
		return 1, nil
	case OperatorOr:
		for _, in := range p.Inputs {
			col := f.Col(in)
			if col == nil {
				return 0, acerr.Newf(acerr.ReferenceMissing, in, "derived predicate %q references column %q not present in predicate table", p.Name, in)
			}
			if col[i] != 0 {
				return 1, nil
			}
		}
		return 0, nil
	default:
		return 0, acerr.Newf(acerr.ConfigInvalid, p.Name, "derived predicate %q has unknown operator %q", p.Name, p.Operator)
	}
}
