// Package lock provides a run-lock file so two shard workers never race on
// the same output path (SPEC_FULL.md §9/§10): one shard, one lock.
package lock

import (
	"github.com/nightlyone/lockfile"

	"github.com/aces-go/aces/internal/acerr"
)

// ShardLock guards one shard's output path for the lifetime of an extract.
type ShardLock struct {
	lf lockfile.Lockfile
}

// Acquire takes the lock at path, failing immediately (no blocking retry) if
// another shard worker already holds it.
func Acquire(path string) (*ShardLock, error) {
	lf, err := lockfile.New(path)
	if err != nil {
		return nil, acerr.Wrap(acerr.ConfigInvalid, path, err)
	}
	if err := lf.TryLock(); err != nil {
		return nil, acerr.Wrap(acerr.ConfigInvalid, path, err)
	}
	return &ShardLock{lf: lf}, nil
}

// Release removes the lock file, making the shard's output path available
// to the next worker.
func (s *ShardLock) Release() error {
	if err := s.lf.Unlock(); err != nil {
		return acerr.Wrap(acerr.ConfigInvalid, string(s.lf), err)
	}
	return nil
}
