// Package obslog threads a single structured logger through the engine,
// mirroring the `loguru`-everywhere style of the Python implementation this
// package was ported from: every stage of the recursion logs its own
// progress rather than leaving it to the caller.
package obslog

import (
	"context"

	"github.com/sirupsen/logrus"
)

type ctxKey struct{}

// Base is the package-wide logger, used with logrus's default level and
// formatter; nothing in this module reconfigures it.
var Base = logrus.New()

// With returns a context carrying entry as the active logger.
func With(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, ctxKey{}, entry)
}

// From returns the logger attached to ctx, or a fresh entry from Base if
// none was attached.
func From(ctx context.Context) *logrus.Entry {
	if e, ok := ctx.Value(ctxKey{}).(*logrus.Entry); ok && e != nil {
		return e
	}
	return logrus.NewEntry(Base)
}
