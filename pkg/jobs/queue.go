package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrQueueClosed is returned by Enqueue before Start or after Stop.
var ErrQueueClosed = errors.New("queue closed")

// Job is a unit of background work carrying a typed payload.
type Job[T any] struct {
	ID       string
	Type     string
	Payload  T
	Attempt  int
	Enqueued time.Time
}

// Handler processes one job attempt.
type Handler[T any] func(context.Context, Job[T]) error

// GiveUpFunc is called once a job has failed its final attempt.
type GiveUpFunc[T any] func(context.Context, Job[T], error)

// QueueConfig tunes the worker pool. RetryDelay doubles per attempt up to MaxRetryDelay.
// A positive JobTimeout bounds every handler call.
type QueueConfig struct {
	Workers       int
	BufferSize    int
	MaxRetries    int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
	JobTimeout    time.Duration
	Logger        *zap.Logger
}

func (c QueueConfig) withDefaults() QueueConfig {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.BufferSize <= 0 {
		c.BufferSize = c.Workers * 4
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	if c.MaxRetryDelay < c.RetryDelay {
		c.MaxRetryDelay = 30 * c.RetryDelay
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Queue dispatches jobs to a fixed pool of goroutines, retrying failures with backoff.
type Queue[T any] struct {
	name    string
	handler Handler[T]
	cfg     QueueConfig
	log     *zap.SugaredLogger

	jobs chan Job[T]

	mu      sync.Mutex
	giveUp  GiveUpFunc[T]
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup
}

// NewQueue builds a queue that runs handler for every job.
func NewQueue[T any](name string, handler Handler[T], cfg QueueConfig) *Queue[T] {
	cfg = cfg.withDefaults()
	return &Queue[T]{
		name:    name,
		handler: handler,
		cfg:     cfg,
		log:     cfg.Logger.Sugar().With("queue", name),
		jobs:    make(chan Job[T], cfg.BufferSize),
	}
}

// OnGiveUp registers the callback for permanently failed jobs.
func (q *Queue[T]) OnGiveUp(fn GiveUpFunc[T]) {
	q.mu.Lock()
	q.giveUp = fn
	q.mu.Unlock()
}

// Start launches the workers. Later calls are no-ops.
func (q *Queue[T]) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	q.running = true
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
	q.log.Infow("queue started", "workers", q.cfg.Workers)
}

// Stop cancels in-flight jobs and waits for the workers to return.
func (q *Queue[T]) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	q.cancel()
	q.mu.Unlock()

	q.wg.Wait()
	q.log.Infow("queue stopped")
}

// Enqueue hands job to the pool, blocking while the buffer is full.
func (q *Queue[T]) Enqueue(job Job[T]) error {
	q.mu.Lock()
	running, ctx := q.running, q.ctx
	q.mu.Unlock()
	if !running {
		return fmt.Errorf("enqueue on %s: %w", q.name, ErrQueueClosed)
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("enqueue on %s: %w", q.name, ErrQueueClosed)
	}
}

func (q *Queue[T]) work() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			if err := q.run(job); err != nil {
				q.fail(job, err)
			}
		}
	}
}

func (q *Queue[T]) run(job Job[T]) error {
	ctx := q.ctx
	if q.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.cfg.JobTimeout)
		defer cancel()
	}
	return q.handler(ctx, job)
}

func (q *Queue[T]) fail(job Job[T], err error) {
	job.Attempt++
	if job.Attempt > q.cfg.MaxRetries {
		q.log.Errorw("job exhausted retries", "job_id", job.ID, "type", job.Type, "attempts", job.Attempt, "error", err)
		q.mu.Lock()
		giveUp := q.giveUp
		q.mu.Unlock()
		if giveUp != nil {
			giveUp(q.ctx, job, err)
		}
		return
	}

	delay := q.backoff(job.Attempt)
	q.log.Warnw("job failed, retrying", "job_id", job.ID, "type", job.Type, "attempt", job.Attempt, "delay", delay, "error", err)
	time.AfterFunc(delay, func() {
		if q.ctx.Err() != nil {
			return
		}
		if err := q.Enqueue(job); err != nil {
			q.log.Errorw("requeue failed", "job_id", job.ID, "error", err)
		}
	})
}

// backoff returns RetryDelay * 2^(attempt-1), capped at MaxRetryDelay.
func (q *Queue[T]) backoff(attempt int) time.Duration {
	delay := q.cfg.RetryDelay
	for i := 1; i < attempt && delay < q.cfg.MaxRetryDelay; i++ {
		delay *= 2
	}
	if delay > q.cfg.MaxRetryDelay {
		delay = q.cfg.MaxRetryDelay
	}
	return delay
}
