package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// Runner executes one job to completion. The Pipeline is the production
// implementation.
type Runner interface {
	Process(ctx context.Context, messageID string) error
}

// defaultPoolSize bounds concurrent jobs when no size is configured.
const defaultPoolSize = 8

// Queue dispatches messages to a worker pool. It guarantees that at most one
// worker owns a message id at a time and runs each job under a cancellable
// context so a client-initiated abort can stop the pipeline mid-flight.
//
// Retry policy is external: a job that fails is logged and dropped; its
// message status already records the failure.
type Queue struct {
	runner Runner
	pool   *ants.Pool
	logger *slog.Logger

	mu       sync.Mutex
	inFlight map[string]context.CancelFunc
	closed   bool

	wg sync.WaitGroup
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithQueueLogger sets the logger.
func WithQueueLogger(logger *slog.Logger) QueueOption {
	return func(q *Queue) {
		q.logger = logger
	}
}

// NewQueue creates a queue backed by an ants pool of the given size.
func NewQueue(runner Runner, size int, opts ...QueueOption) (*Queue, error) {
	if size <= 0 {
		size = defaultPoolSize
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	q := &Queue{
		runner:   runner,
		pool:     pool,
		logger:   slog.Default().With("component", "queue"),
		inFlight: make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// Enqueue submits a message for processing. Returns ErrAlreadyQueued if the
// message already has an active job, ErrQueueClosed after Close.
func (q *Queue) Enqueue(messageID string) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	if _, active := q.inFlight[messageID]; active {
		q.mu.Unlock()
		return ErrAlreadyQueued
	}
	ctx, cancel := context.WithCancel(context.Background())
	q.inFlight[messageID] = cancel
	q.mu.Unlock()

	q.wg.Add(1)
	err := q.pool.Submit(func() {
		defer q.wg.Done()
		defer q.release(messageID)

		if err := q.runner.Process(ctx, messageID); err != nil {
			q.logger.Error("job failed", "message", messageID, "error", err)
		}
	})
	if err != nil {
		q.wg.Done()
		q.release(messageID)
		return fmt.Errorf("submit job: %w", err)
	}

	return nil
}

// Cancel aborts the active job for a message, if any. Returns whether a job
// was found. The job observes the cancellation through its context and
// records the cancelled status itself.
func (q *Queue) Cancel(messageID string) bool {
	q.mu.Lock()
	cancel, ok := q.inFlight[messageID]
	q.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Active reports whether a job currently owns the message.
func (q *Queue) Active(messageID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.inFlight[messageID]
	return ok
}

// Close stops accepting jobs, waits for active jobs to finish and releases
// the pool.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()

	q.wg.Wait()
	q.pool.Release()
	return nil
}

func (q *Queue) release(messageID string) {
	q.mu.Lock()
	cancel, ok := q.inFlight[messageID]
	delete(q.inFlight, messageID)
	q.mu.Unlock()
	if ok {
		cancel()
	}
}
