// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package container

import "sync"

// Ring is a thread-safe fixed-capacity ring buffer. Pushing beyond capacity
// silently evicts the oldest entry; producers never block. Readers only ever
// receive copies, so a snapshot can be iterated without holding the lock.
type Ring[T any] struct {
	buf  []T
	head int
	size int
	mu   sync.RWMutex
}

// NewRing creates an empty ring buffer with the given capacity. Capacity must
// be positive.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		panic("container: ring capacity must be positive")
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push appends a value, evicting the oldest entry if the buffer is full.
func (r *Ring[T]) Push(val T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf[(r.head+r.size)%len(r.buf)] = val
	if r.size < len(r.buf) {
		r.size++
	} else {
		r.head = (r.head + 1) % len(r.buf)
	}
}

// Len returns the number of buffered values.
func (r *Ring[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int {
	return len(r.buf)
}

// Snapshot returns a copy of the buffered values in insertion order, oldest
// first.
func (r *Ring[T]) Snapshot() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	return out
}

// Recent returns a copy of the most recent n values in insertion order. If
// fewer than n values are buffered, all of them are returned.
func (r *Ring[T]) Recent(n int) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n > r.size {
		n = r.size
	}
	if n <= 0 {
		return nil
	}

	out := make([]T, n)
	start := r.size - n
	for i := 0; i < n; i++ {
		out[i] = r.buf[(r.head+start+i)%len(r.buf)]
	}
	return out
}
