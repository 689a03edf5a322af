package core

import "sync"

// Mutex guards a value of type T. The value can only be reached while the
// lock is held, either through With or between Lock and Unlock.
type Mutex[T any] struct {
	mu sync.Mutex
	v  T
}

// NewMutex wraps v
func NewMutex[T any](v T) *Mutex[T] {
	return &Mutex[T]{v: v}
}

// With runs fn with exclusive access to the guarded value. The lock is
// released when fn returns, including when it panics.
func (m *Mutex[T]) With(fn func(v *T)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.v)
}

// Lock acquires the lock and returns the guarded value. The pointer must not
// be used after Unlock.
func (m *Mutex[T]) Lock() *T {
	m.mu.Lock()
	return &m.v
}

// Unlock releases the lock
func (m *Mutex[T]) Unlock() {
	m.mu.Unlock()
}

// Load returns a copy of the guarded value
func (m *Mutex[T]) Load() T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.v
}
