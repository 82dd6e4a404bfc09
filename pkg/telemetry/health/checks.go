package health

import (
	"context"
	"errors"
)

// Pinger is a dependency whose connectivity can be tested.
type Pinger interface {
	Ping(ctx context.Context) error
}

// WritableChecker verifies that a directory accepts writes.
type WritableChecker interface {
	CheckWritable() error
}

// Runner reports whether a background loop is running.
type Runner interface {
	IsRunning() bool
}

// StoreCheck pings the primary audit store.
func StoreCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		return p.Ping(ctx)
	}
}

// ArchiveCheck verifies that the archive directory is writable.
func ArchiveCheck(w WritableChecker) CheckFunc {
	return func(context.Context) error {
		return w.CheckWritable()
	}
}

// RunningCheck fails while r is not running.
func RunningCheck(r Runner) CheckFunc {
	return func(context.Context) error {
		if !r.IsRunning() {
			return errors.New("not running")
		}
		return nil
	}
}
