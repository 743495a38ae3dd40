// queue package

package queue

import (
	"context"
	"sync"
)

const (
	// QueueBufferSize represents the maximum size of a queue
	QueueBufferSize = 1024
)

// InMemoryQueue implements an in-memory queue.
type InMemoryQueue struct {
	ch   chan interface{}
	lock sync.Mutex
}

// NewInMemoryQueue creates a new queue.
func NewInMemoryQueue() *InMemoryQueue {
	return NewInMemoryQueueSize(QueueBufferSize)
}

// NewInMemoryQueueSize creates a new queue holding at most size items.
func NewInMemoryQueueSize(size int) *InMemoryQueue {
	return &InMemoryQueue{
		ch: make(chan interface{}, size),
	}
}

// Enqueue adds an item to the end of the queue without blocking.
func (q *InMemoryQueue) Enqueue(item interface{}) error {
	select {
	case q.ch <- item:
		return nil
	default:
		return ErrQueueFull
	}
}

// Dequeue removes and returns the item from the front of the queue.
func (q *InMemoryQueue) Dequeue(ctx context.Context) (interface{}, error) {
	select {
	case item := <-q.ch:
		return item, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Size returns the current size of the queue.
func (q *InMemoryQueue) Size() int {
	return len(q.ch)
}

// ReadAllMessages reads all pending messages in the queue
func (q *InMemoryQueue) ReadAllMessages() []interface{} {
	q.lock.Lock()
	defer q.lock.Unlock()

	var messages []interface{}
	for {
		select {
		case item := <-q.ch:
			messages = append(messages, item)
		default:
			return messages
		}
	}
}

// ClearQueue clears all messages from the queue.
func (q *InMemoryQueue) ClearQueue() {
	q.ReadAllMessages()
}
