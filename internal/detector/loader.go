package detector

import (
	"context"
	"sync"
)

// Loader runs an expensive initialization at most once. Callers that arrive
// while a load is in flight wait for it instead of starting another. A
// failed load is not cached.
type Loader[T any] struct {
	fn func(context.Context) (T, error)

	mu     sync.Mutex
	call   *loadCall[T]
	value  T
	loaded bool
}

type loadCall[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// NewLoader wraps fn.
func NewLoader[T any](fn func(context.Context) (T, error)) *Loader[T] {
	return &Loader[T]{fn: fn}
}

// Load returns the cached value, joins an in-flight load, or starts one.
// The load runs detached from ctx so a waiter giving up does not abort it
// for the others.
func (l *Loader[T]) Load(ctx context.Context) (T, error) {
	l.mu.Lock()
	if l.loaded {
		v := l.value
		l.mu.Unlock()
		return v, nil
	}
	c := l.call
	if c == nil {
		c = &loadCall[T]{done: make(chan struct{})}
		l.call = c
		go l.run(context.WithoutCancel(ctx), c)
	}
	l.mu.Unlock()

	select {
	case <-c.done:
		return c.value, c.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (l *Loader[T]) run(ctx context.Context, c *loadCall[T]) {
	v, err := l.fn(ctx)

	l.mu.Lock()
	if err == nil {
		l.value = v
		l.loaded = true
	}
	l.call = nil
	l.mu.Unlock()

	c.value, c.err = v, err
	close(c.done)
}

// Loaded reports whether a successful load is cached.
func (l *Loader[T]) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}

// Reset drops a cached value so the next Load runs again.
func (l *Loader[T]) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	var zero T
	l.value = zero
	l.loaded = false
}
