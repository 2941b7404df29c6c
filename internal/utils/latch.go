package utils

import (
	"errors"
	"sync"
)

// ErrCheckAlreadyRunning is returned by triggers that find a check in flight.
var ErrCheckAlreadyRunning = errors.New("a check is already running")

// RunLatch makes check runs mutually exclusive within the process. Scheduled
// runs, Telegram-triggered runs and API-triggered runs all go through the
// same latch; a second trigger while one is in flight is rejected, not queued.
type RunLatch struct {
	mu   sync.Mutex
	busy bool
}

// TryAcquire takes the latch. It returns false when a run is already active.
func (l *RunLatch) TryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.busy {
		return false
	}
	l.busy = true
	return true
}

// Release frees the latch for the next trigger.
func (l *RunLatch) Release() {
	l.mu.Lock()
	l.busy = false
	l.mu.Unlock()
}

// Busy reports whether a run is currently in flight.
func (l *RunLatch) Busy() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.busy
}
