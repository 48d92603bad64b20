// Package sample holds the decoded sample type and the FIFO queues that carry
// samples in from the transport and commands out to it.
package sample

import (
	"sync"

	"github.com/racerxdl/go.fifo"
)

// Tuple is one decode event from the device. Position is channel identity.
type Tuple []float64

// Queue is an unbounded, goroutine-safe FIFO of T. Producers Put from any
// goroutine; the consumer drains with Get until it reports false. A consumer
// that falls behind only costs memory, never blocks a producer.
//
// The zero value is an empty queue ready to use.
type Queue[T any] struct {
	once sync.Once
	fifo *fifo.Queue
}

// NewQueue returns an empty queue.
func NewQueue[T any]() *Queue[T] {
	q := &Queue[T]{}
	q.init()
	return q
}

func (q *Queue[T]) init() {
	q.once.Do(func() { q.fifo = fifo.NewQueue() })
}

// Put appends v to the tail of the queue.
func (q *Queue[T]) Put(v T) {
	q.init()
	q.fifo.Add(v)
}

// Get removes and returns the head of the queue. It never blocks; ok is
// false when the queue is empty.
func (q *Queue[T]) Get() (v T, ok bool) {
	q.init()
	item := q.fifo.Next()
	if item == nil {
		return v, false
	}
	return item.(T), true
}

// Empty reports whether the queue currently holds nothing.
func (q *Queue[T]) Empty() bool {
	return q.Len() == 0
}

// Len returns the number of queued elements.
func (q *Queue[T]) Len() int {
	q.init()
	return q.fifo.Len()
}
