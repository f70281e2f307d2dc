package session

import "sync/atomic"

// Latest holds the most recent value published by a single writer. Readers
// always see a complete value but may see an older one than a concurrent
// writer is about to store; callers accept that staleness.
type Latest[T any] struct {
	p atomic.Pointer[T]
}

// Store replaces the current value.
func (l *Latest[T]) Store(v T) {
	l.p.Store(&v)
}

// Load returns the current value and whether one has been stored.
func (l *Latest[T]) Load() (T, bool) {
	p := l.p.Load()
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}

// Clear forgets the current value.
func (l *Latest[T]) Clear() {
	l.p.Store(nil)
}
