package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/maltedev/maps-review-scraper/internal/models"
)

var (
	ErrQueueEmpty  = errors.New("queue is empty")
	ErrQueueClosed = errors.New("queue is closed")
	ErrQueueFull   = errors.New("queue is full")
)

// Job is one place whose reviews should be collected.
type Job struct {
	ID        string
	Target    models.Target
	Locale    string
	Priority  int
	CreatedAt time.Time
}

// Queue hands jobs to the runner.
type Queue interface {
	Push(job *Job) error
	Pop(ctx context.Context) (*Job, error)
	TryPop() (*Job, error)
	Size() int
	Close() error
}

// InMemoryQueue orders jobs by priority, highest first, and keeps insertion
// order among equal priorities.
type InMemoryQueue struct {
	mu      sync.Mutex
	jobs    []*Job
	maxSize int
	closed  bool
	notify  chan struct{}
	done    chan struct{}
}

// NewInMemoryQueue returns a queue holding at most maxSize jobs. A maxSize
// below one means unbounded.
func NewInMemoryQueue(maxSize int) *InMemoryQueue {
	return &InMemoryQueue{
		jobs:    make([]*Job, 0),
		maxSize: maxSize,
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Push adds a job, assigning an ID and creation time when missing.
func (q *InMemoryQueue) Push(job *Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	if q.maxSize > 0 && len(q.jobs) >= q.maxSize {
		return ErrQueueFull
	}

	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	pos := len(q.jobs)
	for i, queued := range q.jobs {
		if queued.Priority < job.Priority {
			pos = i
			break
		}
	}
	q.jobs = append(q.jobs, nil)
	copy(q.jobs[pos+1:], q.jobs[pos:])
	q.jobs[pos] = job

	q.signal()
	return nil
}

// Pop blocks until a job is available, the queue is closed and drained, or
// ctx is done.
func (q *InMemoryQueue) Pop(ctx context.Context) (*Job, error) {
	for {
		job, err := q.TryPop()
		if !errors.Is(err, ErrQueueEmpty) {
			return job, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.notify:
		case <-q.done:
		}
	}
}

// TryPop returns the next job without waiting.
func (q *InMemoryQueue) TryPop() (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.jobs) == 0 {
		if q.closed {
			return nil, ErrQueueClosed
		}
		return nil, ErrQueueEmpty
	}

	job := q.jobs[0]
	q.jobs[0] = nil
	q.jobs = q.jobs[1:]
	if len(q.jobs) > 0 {
		q.signal()
	}

	return job, nil
}

// Size returns the number of queued jobs.
func (q *InMemoryQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Close stops new pushes. Jobs already queued can still be popped.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.done)
	}

	return nil
}

func (q *InMemoryQueue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
