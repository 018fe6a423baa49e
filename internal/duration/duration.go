// Package duration parses the "N days, N hours, N minutes, N seconds"
// offset and window-size expressions used in boundary grammar, the Go
// analogue of the Python implementation's use of pytimeparse.
package duration

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aces-go/aces/internal/acerr"
)

var unitPattern = regexp.MustCompile(`(?i)([+-]?\d+(?:\.\d+)?)\s*(days?|hours?|hrs?|minutes?|mins?|seconds?|secs?)`)

var unitScale = map[string]time.Duration{
	"day": 24 * time.Hour, "days": 24 * time.Hour,
	"hour": time.Hour, "hours": time.Hour, "hr": time.Hour, "hrs": time.Hour,
	"minute": time.Minute, "minutes": time.Minute, "min": time.Minute, "mins": time.Minute,
	"second": time.Second, "seconds": time.Second, "sec": time.Second, "secs": time.Second,
}

// Parse parses a comma/whitespace-separated combination of day/hour/minute/
// second components, e.g. "3 days, 4 hours" or "-30 minutes". An empty or
// all-whitespace input parses as zero.
func Parse(expr string) (time.Duration, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return 0, nil
	}
	matches := unitPattern.FindAllStringSubmatch(trimmed, -1)
	if matches == nil {
		return 0, acerr.New(acerr.ConfigInvalid, "duration %q is not a recognized day/hour/minute/second expression", expr)
	}
	var total time.Duration
	for _, m := range matches {
		qty, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, acerr.New(acerr.ConfigInvalid, "duration %q has an unparseable quantity %q", expr, m[1])
		}
		scale, ok := unitScale[strings.ToLower(m[2])]
		if !ok {
			return 0, acerr.New(acerr.ConfigInvalid, "duration %q uses an unrecognized unit %q", expr, m[2])
		}
		total += time.Duration(qty * float64(scale))
	}
	return total, nil
}

// ParseOffset parses a window offset expression, applying the documented
// behavior for a zero-length offset: a "0 seconds"-style expression is
// accepted but its component is dropped, matching the source's reproduced
// inconsistency (spec.md open question (a)). The caller is expected to log
// a warning when zero, true signals this case so callers can do so without
// duplicating the parse.
func ParseOffset(expr string) (d time.Duration, explicitZero bool, err error) {
	d, err = Parse(expr)
	if err != nil {
		return 0, false, err
	}
	if d == 0 && strings.TrimSpace(expr) != "" {
		return 0, true, nil
	}
	return d, false, nil
}
