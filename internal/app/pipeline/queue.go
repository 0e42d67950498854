// Package pipeline runs meta document generation in background workers.
package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

var (
	ErrQueueFull    = errors.New("processing queue is full")
	ErrTopicActive  = errors.New("topic already has a queued or running job")
	ErrQueueStopped = errors.New("processing queue is stopped")
)

// Job asks a worker to generate one meta document
type Job struct {
	MetaDocumentID int64
	TopicID        int64
	TopicName      string
}

// Runner executes a job. It must record the outcome on the meta document
// itself; a cancelled ctx means the queue is shutting down.
type Runner interface {
	Run(ctx context.Context, job Job)
}

// Queue is a bounded job queue drained by a fixed set of workers. A topic can
// have at most one job queued or running at a time.
type Queue struct {
	runner  Runner
	workers int
	jobs    chan Job

	mu      sync.Mutex
	active  map[int64]struct{}
	started bool
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger zerolog.Logger
}

// NewQueue creates a queue holding up to size pending jobs
func NewQueue(runner Runner, workers, size int, logger zerolog.Logger) *Queue {
	if workers < 1 {
		workers = 1
	}
	if size < 1 {
		size = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		runner:  runner,
		workers: workers,
		jobs:    make(chan Job, size),
		active:  make(map[int64]struct{}),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
	}
}

// Start launches the workers. Calling it more than once has no effect.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.stopped {
		return
	}
	q.started = true

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work(i)
	}
	q.logger.Info().Int("workers", q.workers).Int("capacity", cap(q.jobs)).Msg("Processing queue started")
}

// Submit enqueues job without blocking
func (q *Queue) Submit(job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return ErrQueueStopped
	}
	if _, ok := q.active[job.TopicID]; ok {
		return ErrTopicActive
	}

	select {
	case q.jobs <- job:
		q.active[job.TopicID] = struct{}{}
		q.logger.Debug().Int64("metaDocumentID", job.MetaDocumentID).Int64("topicID", job.TopicID).Msg("Job queued")
		return nil
	default:
		return ErrQueueFull
	}
}

// Active reports whether topicID has a job queued or running
func (q *Queue) Active(topicID int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.active[topicID]
	return ok
}

// Stop rejects new jobs, cancels running ones and hands every queued job to
// the runner with a cancelled context so it can record the interruption.
// It waits for the workers or for ctx to end.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return nil
	}
	q.stopped = true
	started := q.started
	close(q.jobs)
	q.mu.Unlock()

	q.cancel()

	if !started {
		// No workers were ever launched, drain here.
		for job := range q.jobs {
			q.runJob(job)
		}
		return nil
	}

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info().Msg("Processing queue stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) work(id int) {
	defer q.wg.Done()
	for job := range q.jobs {
		q.runJob(job)
	}
	q.logger.Debug().Int("worker", id).Msg("Worker exited")
}

func (q *Queue) runJob(job Job) {
	defer func() {
		q.mu.Lock()
		delete(q.active, job.TopicID)
		q.mu.Unlock()
	}()
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error().Interface("panic", r).Int64("metaDocumentID", job.MetaDocumentID).Msg("Job panicked")
		}
	}()

	q.runner.Run(q.ctx, job)
}
