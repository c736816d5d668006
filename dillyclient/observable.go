// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package dillyclient

import "sync"

// Observable holds a value and notifies subscribers on every change.
// Subscribers run on the goroutine that made the change, after the lock is released,
// so they may read or update the observable themselves.
type Observable[T any] struct {
	mu    sync.Mutex
	value T
	subs  map[int]func(T)
	next  int
}

// NewObservable creates an observable holding initial
func NewObservable[T any](initial T) *Observable[T] {
	return &Observable[T]{value: initial, subs: make(map[int]func(T))}
}

// Get returns the current value
func (o *Observable[T]) Get() T {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.value
}

// Set replaces the value and notifies subscribers
func (o *Observable[T]) Set(v T) {
	o.Update(func(T) T { return v })
}

// Update applies fn atomically and notifies subscribers with the result
func (o *Observable[T]) Update(fn func(T) T) T {
	o.mu.Lock()
	o.value = fn(o.value)
	v := o.value
	subs := make([]func(T), 0, len(o.subs))
	for _, s := range o.subs {
		subs = append(subs, s)
	}
	o.mu.Unlock()

	for _, s := range subs {
		s(v)
	}
	return v
}

// Subscribe calls fn with the current value and then on every change until unsubscribed
func (o *Observable[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	o.mu.Lock()
	id := o.next
	o.next++
	o.subs[id] = fn
	v := o.value
	o.mu.Unlock()

	fn(v)
	return func() {
		o.mu.Lock()
		delete(o.subs, id)
		o.mu.Unlock()
	}
}
