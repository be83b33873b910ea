package core

// limiter.go implements concurrency control for batch processing.
//
// The limiter uses a semaphore pattern to restrict parallel imports to a
// configurable maximum, preventing resource exhaustion under load. When all
// slots are occupied, new requests wait up to maxWait before failing with
// ErrTooManyImports.
//
// The limiter also supports graceful shutdown via WaitForDrain, which blocks
// until all active imports complete.

import (
	"context"
	"sync"
	"time"
)

// DefaultMaxConcurrentImports is the default limit for parallel batches.
const DefaultMaxConcurrentImports = 5

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// ImportLimiter controls concurrent batch processing using a semaphore pattern.
type ImportLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewImportLimiter creates a limiter that allows at most maxConcurrent
// simultaneous batches. Requests that cannot acquire a slot within maxWait
// receive ErrTooManyImports.
func NewImportLimiter(maxConcurrent int, maxWait time.Duration) *ImportLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentImports
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &ImportLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire attempts to acquire a processing slot.
// Returns nil on success, ErrTooManyImports if the timeout expires.
// The caller MUST call Release() when processing completes (use defer).
func (l *ImportLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		// Distinguish caller cancellation from slot timeout
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyImports

	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release releases a previously acquired slot.
// Must be called exactly once for each successful Acquire.
func (l *ImportLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of batches currently processing.
func (l *ImportLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// Available returns the number of free slots.
func (l *ImportLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until all active imports complete or ctx is cancelled.
// Used for graceful shutdown so in-flight batches finish before termination.
func (l *ImportLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if l.ActiveCount() == 0 {
				return nil
			}
		}
	}
}
