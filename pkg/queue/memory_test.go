package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryQueue(t *testing.T) {
	q := NewInMemoryQueueSize(2)
	require.NoError(t, q.Enqueue(1))
	require.NoError(t, q.Enqueue(2))
	assert.ErrorIs(t, q.Enqueue(3), ErrQueueFull)
	assert.Equal(t, 2, q.Size())

	item, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, item)

	assert.Equal(t, []interface{}{2}, q.ReadAllMessages())
	assert.Equal(t, 0, q.Size())
}

func TestInMemoryQueueDequeueHonorsContext(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
