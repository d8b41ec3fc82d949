package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"guidepost/app/pkg/logger"
)

var (
	ErrQueueStarted = errors.New("queue: already started")
	ErrQueueStopped = errors.New("queue: stopped")
)

// Job is a unit of background work. AttemptTimeout bounds a single run;
// jobs are never retried.
type Job struct {
	ID             string
	AttemptTimeout time.Duration
	Run            func(context.Context) error
}

// Queue runs jobs on a fixed set of workers so long-running batches stay
// off the message hot path.
type Queue struct {
	mu       sync.Mutex
	jobs     chan Job
	started  bool
	stopping bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	nextID    atomic.Uint64
	enqueued  atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
}

type Stats struct {
	Started   bool   `json:"started"`
	Depth     int    `json:"depth"`
	Capacity  int    `json:"capacity"`
	Enqueued  uint64 `json:"enqueued"`
	Completed uint64 `json:"completed"`
	Failed    uint64 `json:"failed"`
}

func New(buffer int) *Queue {
	if buffer <= 0 {
		buffer = 16
	}
	return &Queue{
		jobs: make(chan Job, buffer),
	}
}

func (q *Queue) Start(ctx context.Context, workers int) error {
	if workers <= 0 {
		workers = 1
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return ErrQueueStarted
	}
	runCtx, cancel := context.WithCancel(ctx)
	q.cancel = cancel
	q.started = true

	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker(runCtx)
	}
	logger.Info("Queue started with %d worker(s)", workers)
	return nil
}

// Enqueue adds a job, blocking until there is room or ctx is done.
func (q *Queue) Enqueue(ctx context.Context, job Job) (string, error) {
	q.mu.Lock()
	if !q.started || q.stopping {
		q.mu.Unlock()
		return "", ErrQueueStopped
	}
	q.mu.Unlock()

	if job.ID == "" {
		job.ID = "job-" + strconv.FormatUint(q.nextID.Add(1), 10)
	}
	select {
	case q.jobs <- job:
		q.enqueued.Add(1)
		return job.ID, nil
	case <-ctx.Done():
		return "", fmt.Errorf("queue: enqueue canceled: %w", ctx.Err())
	}
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-q.jobs:
			if !ok {
				return
			}
			q.runJob(ctx, job)
		}
	}
}

func (q *Queue) runJob(ctx context.Context, job Job) {
	runCtx := ctx
	cancel := func() {}
	if job.AttemptTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, job.AttemptTimeout)
	}
	defer cancel()

	if err := job.Run(runCtx); err != nil {
		q.failed.Add(1)
		logger.Error("Queue job %s failed: %v", job.ID, err)
		return
	}
	q.completed.Add(1)
}

// Stop drains outstanding jobs and waits up to the timeout for workers to
// exit.
func (q *Queue) Stop(timeout time.Duration) error {
	q.mu.Lock()
	if !q.started || q.stopping {
		q.mu.Unlock()
		return nil
	}
	q.stopping = true
	close(q.jobs)
	cancel := q.cancel
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		cancel()
		return fmt.Errorf("queue: drain timed out after %s", timeout)
	}
}

func (q *Queue) Stats() Stats {
	q.mu.Lock()
	started := q.started && !q.stopping
	depth := len(q.jobs)
	capacity := cap(q.jobs)
	q.mu.Unlock()
	return Stats{
		Started:   started,
		Depth:     depth,
		Capacity:  capacity,
		Enqueued:  q.enqueued.Load(),
		Completed: q.completed.Load(),
		Failed:    q.failed.Load(),
	}
}
