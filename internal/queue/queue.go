// The MIT License (MIT)
//
// # Copyright (c) 2024 rtlspec-collector authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package queue implements the bounded hand-off queue that connects the
// stages of the ingestion pipeline (reception -> decompression -> storing).
//
// It is a fixed-capacity FIFO with blocking Insert/Remove and a Close that
// behaves like closing a Go channel: already-queued items continue to drain,
// and once drained, Remove reports end-of-stream. Capacity is fixed at
// construction; there is no resize and no priority.
package queue

import "sync"

// Queue is a bounded, FIFO, multi-producer/multi-consumer hand-off queue of
// items of type T. The zero value is not usable; construct with New.
type Queue[T any] struct {
	ch        chan T
	closeOnce sync.Once
	closed    chan struct{}
}

// New constructs a Queue with the given fixed capacity. Capacity must be >= 1.
func New[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{
		ch:     make(chan T, capacity),
		closed: make(chan struct{}),
	}
}

// Insert blocks while the queue is full and open. If the queue is closed
// before or while blocked, Insert returns false and drops the item instead
// of deadlocking a producer against a permanently full, closed queue.
func (q *Queue[T]) Insert(item T) (ok bool) {
	select {
	case q.ch <- item:
		return true
	case <-q.closed:
		return false
	}
}

// Remove blocks while the queue is empty and open. It returns ok == false
// once the queue is closed and fully drained -- the end-of-stream signal.
// Buffered items are always delivered before end-of-stream is reported,
// even if Close raced with the final inserts.
func (q *Queue[T]) Remove() (item T, ok bool) {
	select {
	case item = <-q.ch:
		return item, true
	default:
	}

	select {
	case item = <-q.ch:
		return item, true
	case <-q.closed:
		select {
		case item = <-q.ch:
			return item, true
		default:
			var zero T
			return zero, false
		}
	}
}

// Close sets the exit sentinel and wakes every blocked producer and
// consumer. Already-buffered items remain available to Remove until
// drained. Close is idempotent. Unlike closing ch directly, Close never
// races with a concurrent Insert into a full channel.
func (q *Queue[T]) Close() {
	q.closeOnce.Do(func() {
		close(q.closed)
	})
}

// Len reports the number of items currently buffered. It is a snapshot and
// may change immediately after the call returns under concurrent use.
func (q *Queue[T]) Len() int {
	return len(q.ch)
}

// Cap reports the fixed capacity the queue was constructed with.
func (q *Queue[T]) Cap() int {
	return cap(q.ch)
}
