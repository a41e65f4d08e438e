// Package sync provides the spinlock used to guard state shared between
// simulated CPUs, such as the physical frame pool.
package sync

import (
	"runtime"
	"sync/atomic"
)

const attemptsBeforeYielding = 64

var (
	// yieldFn is called after a burst of failed acquisition attempts so
	// that the goroutine driving the lock holder can make progress.
	yieldFn = runtime.Gosched
)

// Spinlock implements a lock where each CPU trying to acquire it busy-waits
// till the lock becomes available.
type Spinlock struct {
	state uint32
}

// Acquire blocks until the lock can be acquired by the calling CPU. Any
// attempt to re-acquire a lock already held by the caller will deadlock.
func (l *Spinlock) Acquire() {
	for attempt := 1; !l.TryToAcquire(); attempt++ {
		if attempt%attemptsBeforeYielding == 0 {
			yieldFn()
		}
	}
}

// TryToAcquire attempts to acquire the lock and returns true if the lock could
// be acquired or false otherwise.
func (l *Spinlock) TryToAcquire() bool {
	return atomic.CompareAndSwapUint32(&l.state, 0, 1)
}

// Release relinquishes a held lock allowing other CPUs to acquire it. Calling
// Release while the lock is free has no effect.
func (l *Spinlock) Release() {
	atomic.StoreUint32(&l.state, 0)
}
