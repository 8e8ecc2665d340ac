package ports

import "errors"

// ErrConcurrencyConflict is returned by storage adapters when a concurrent
// commit invalidated what the current unit of work read: a stale version
// token, a serialization failure or a deadlock. The unit of work is safe to
// run again from the start.
var ErrConcurrencyConflict = errors.New("concurrency conflict")
