package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/maps-review-scraper/internal/models"
)

func job(name string, priority int) *Job {
	return &Job{Target: models.Target{Name: name}, Priority: priority}
}

func TestInMemoryQueue_PriorityOrder(t *testing.T) {
	q := NewInMemoryQueue(0)

	require.NoError(t, q.Push(job("low", 0)))
	require.NoError(t, q.Push(job("high", 5)))
	require.NoError(t, q.Push(job("low-2", 0)))
	require.NoError(t, q.Push(job("mid", 2)))

	var order []string
	for q.Size() > 0 {
		j, err := q.TryPop()
		require.NoError(t, err)
		order = append(order, j.Target.Name)
	}

	assert.Equal(t, []string{"high", "mid", "low", "low-2"}, order)
}

func TestInMemoryQueue_AssignsIdentity(t *testing.T) {
	q := NewInMemoryQueue(0)
	j := job("cafe", 0)

	require.NoError(t, q.Push(j))

	assert.NotEmpty(t, j.ID)
	assert.False(t, j.CreatedAt.IsZero())
}

func TestInMemoryQueue_Full(t *testing.T) {
	q := NewInMemoryQueue(1)

	require.NoError(t, q.Push(job("a", 0)))
	assert.ErrorIs(t, q.Push(job("b", 0)), ErrQueueFull)
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue(0)
	require.NoError(t, q.Push(job("queued", 0)))
	require.NoError(t, q.Close())

	assert.ErrorIs(t, q.Push(job("late", 0)), ErrQueueClosed)

	j, err := q.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "queued", j.Target.Name)

	_, err = q.Pop(context.Background())
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestInMemoryQueue_PopWaitsForPush(t *testing.T) {
	q := NewInMemoryQueue(0)

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = q.Push(job("later", 0))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	j, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "later", j.Target.Name)
}

func TestInMemoryQueue_PopHonoursContext(t *testing.T) {
	q := NewInMemoryQueue(0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := q.Pop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = q.TryPop()
	assert.ErrorIs(t, err, ErrQueueEmpty)
}
