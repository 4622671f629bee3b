package audio

import "sync/atomic"

// Latest is a single-producer/single-consumer slot where the newest value wins.
// Store never blocks and never queues; a value not taken before the next Store is dropped.
type Latest[T any] struct {
	v atomic.Pointer[T]
}

// Store publishes v, replacing any value not yet consumed
func (l *Latest[T]) Store(v *T) {
	l.v.Store(v)
}

// Take returns the newest value and clears the slot, so each value is handed out once
func (l *Latest[T]) Take() *T {
	return l.v.Swap(nil)
}
