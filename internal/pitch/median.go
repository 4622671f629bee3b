package pitch

import (
	"slices"

	"golang.org/x/exp/constraints"
)

// MedianBuffer is a fixed-capacity ring of recent values with a running median
type MedianBuffer[T constraints.Float] struct {
	values  []T
	scratch []T
	next    int
	count   int
}

// NewMedianBuffer creates a buffer holding at most size values (minimum 1)
func NewMedianBuffer[T constraints.Float](size int) *MedianBuffer[T] {
	size = max(size, 1)
	return &MedianBuffer[T]{
		values:  make([]T, size),
		scratch: make([]T, 0, size),
	}
}

// Push adds v, evicting the oldest value when full
func (b *MedianBuffer[T]) Push(v T) {
	b.values[b.next] = v
	b.next = (b.next + 1) % len(b.values)
	if b.count < len(b.values) {
		b.count++
	}
}

// Median returns the median of the buffered values; for an even count it is
// the mean of the two middle values. An empty buffer returns 0.
func (b *MedianBuffer[T]) Median() T {
	if b.count == 0 {
		return 0
	}

	b.scratch = b.scratch[:0]
	if b.count < len(b.values) {
		// Not yet wrapped: the values sit at the front
		b.scratch = append(b.scratch, b.values[:b.count]...)
	} else {
		b.scratch = append(b.scratch, b.values...)
	}
	slices.Sort(b.scratch)

	mid := b.count / 2
	if b.count%2 == 1 {
		return b.scratch[mid]
	}
	return (b.scratch[mid-1] + b.scratch[mid]) / 2
}

// Len returns the number of buffered values
func (b *MedianBuffer[T]) Len() int { return b.count }

// Cap returns the buffer capacity
func (b *MedianBuffer[T]) Cap() int { return len(b.values) }

// Clear empties the buffer
func (b *MedianBuffer[T]) Clear() {
	b.next = 0
	b.count = 0
}
