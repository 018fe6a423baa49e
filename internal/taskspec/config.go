package taskspec

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aces-go/aces/internal/acerr"
	"github.com/aces-go/aces/internal/constraints"
)

// predicateConfig is the YAML shape of one predicates.<name> entry
// (spec §6).
type predicateConfig struct {
	Code              string   `yaml:"code"`
	ValueMin          *float64 `yaml:"value_min"`
	ValueMax          *float64 `yaml:"value_max"`
	ValueMinInclusive bool     `yaml:"value_min_inclusive"`
	ValueMaxInclusive bool     `yaml:"value_max_inclusive"`
	Static            bool     `yaml:"static"`
	Expr              string   `yaml:"expr"`
}

// windowConfig is the YAML shape of one windows.<name> entry (spec §6).
type windowConfig struct {
	Start           string            `yaml:"start"`
	End             string            `yaml:"end"`
	StartInclusive  bool              `yaml:"start_inclusive"`
	EndInclusive    bool              `yaml:"end_inclusive"`
	Has             map[string]string `yaml:"has"`
	Label           string            `yaml:"label"`
	IndexTimestamp  string            `yaml:"index_timestamp"`
}

// document is the top-level YAML task specification document.
type document struct {
	Predicates map[string]predicateConfig `yaml:"predicates"`
	Trigger    string                     `yaml:"trigger"`
	Windows    map[string]windowConfig    `yaml:"windows"`
}

// LoadConfig parses a YAML task specification document into a validated
// Task.
func LoadConfig(ctx context.Context, data []byte) (*Task, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, acerr.Wrap(acerr.ConfigInvalid, "", err)
	}

	var preds []*Predicate
	for name, pc := range doc.Predicates {
		if pc.Expr != "" {
			p, err := NewDerivedPredicate(name, pc.Expr)
			if err != nil {
				return nil, err
			}
			preds = append(preds, p)
			continue
		}
		p, err := NewPlainPredicate(name, pc.Code, pc.ValueMin, pc.ValueMax, pc.ValueMinInclusive, pc.ValueMaxInclusive, pc.Static)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	predicateSet, err := NewPredicateSet(preds)
	if err != nil {
		return nil, err
	}

	var windows []*Window
	for name, wc := range doc.Windows {
		start, err := ParseBoundary(defaultRef(wc.Start, name, true))
		if err != nil {
			return nil, err
		}
		end, err := ParseBoundary(defaultRef(wc.End, name, false))
		if err != nil {
			return nil, err
		}
		has, err := parseHas(wc.Has)
		if err != nil {
			return nil, err
		}
		windows = append(windows, &Window{
			Name:            name,
			Start:           start,
			End:             end,
			StartInclusive:  wc.StartInclusive,
			EndInclusive:    wc.EndInclusive,
			Constraints:     has,
			Label:           wc.Label,
			IndexTimestamp:  wc.IndexTimestamp,
		})
	}

	return NewTask(ctx, predicateSet, doc.Trigger, windows)
}

// defaultRef fills in an omitted start/end boundary by making it the
// window's non-root endpoint, searching from its sibling for the reserved
// record marker on the appropriate side (spec §3, "a reserved
// beginning/end of record marker"): an omitted start becomes "the nearest
// record-start row at or before end", an omitted end becomes "the nearest
// record-end row at or after start".
func defaultRef(raw, windowName string, isStart bool) string {
	if strings.TrimSpace(raw) != "" {
		return raw
	}
	if isStart {
		return windowName + ".end<-" + RefRecordStart
	}
	return windowName + ".start->" + RefRecordEnd
}

var hasPattern = regexp.MustCompile(`^\(\s*([^,]+?)\s*,\s*([^,]+?)\s*\)$`)

// parseHas parses the `"(lo, hi)"` constraint-tuple string format from
// spec.md §6, where either side may be the literal "None".
func parseHas(raw map[string]string) (constraints.Map, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(constraints.Map, len(raw))
	for name, tuple := range raw {
		m := hasPattern.FindStringSubmatch(strings.TrimSpace(tuple))
		if m == nil {
			return nil, acerr.Newf(acerr.ConfigInvalid, name, "constraint %q is not of the form (lo, hi)", tuple)
		}
		lo, err := parseBound(m[1])
		if err != nil {
			return nil, acerr.Newf(acerr.ConfigInvalid, name, "%v", err)
		}
		hi, err := parseBound(m[2])
		if err != nil {
			return nil, acerr.Newf(acerr.ConfigInvalid, name, "%v", err)
		}
		out[name] = constraints.Range{Lo: lo, Hi: hi}
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseBound(tok string) (*int64, error) {
	tok = strings.TrimSpace(tok)
	if tok == "" || tok == "None" || tok == "none" || tok == "null" {
		return nil, nil
	}
	v, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
