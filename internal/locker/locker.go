// Package locker serialises work per key. The provisioning engine uses it so
// that at most one decision for a given username is in flight while
// unrelated usernames proceed in parallel.
package locker

import (
	"context"
	"errors"
)

// ErrEmptyKey is returned when Lock is called without a key.
var ErrEmptyKey = errors.New("lock key is required")

// Locker acquires an exclusive hold on key, blocking until it is free or
// ctx is done. The returned function releases the hold and is safe to call
// more than once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
