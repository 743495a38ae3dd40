package queue

import (
	"context"
	"errors"
)

// ErrQueueFull is returned by Enqueue when the queue has no room left.
var ErrQueueFull = errors.New("queue is full")

// Queue represents a basic queue.
type Queue interface {
	Enqueue(item interface{}) error
	// Dequeue blocks until an item is available or ctx is done.
	Dequeue(ctx context.Context) (interface{}, error)
	Size() int
	ReadAllMessages() []interface{}
	ClearQueue()
}
