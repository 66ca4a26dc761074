// Package async runs pipeline work off the HTTP request path. Upload events
// are acknowledged immediately and processed by a bounded worker pool; a
// full queue rejects instead of blocking the caller.
package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/edilcheck/compliance-pipeline/internal/pipeline"
)

// Processor is the unit of work the queue dispatches.
type Processor interface {
	Process(ctx context.Context, ev pipeline.UploadEvent) (pipeline.Report, error)
}

type Option func(*Queue)

func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.queueSize = n
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

type Queue struct {
	proc      Processor
	logger    *slog.Logger
	workers   int
	queueSize int
	timeout   time.Duration

	jobs chan pipeline.UploadEvent
	wg   sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
}

func NewQueue(proc Processor, logger *slog.Logger, opts ...Option) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		proc:      proc,
		logger:    logger,
		workers:   4,
		queueSize: 256,
		timeout:   5 * time.Minute,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan pipeline.UploadEvent, q.queueSize)
	return q
}

// Start launches the worker pool. Workers exit when the queue is closed and
// drained.
func (q *Queue) Start() {
	q.startOnce.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go q.worker(i)
		}
		q.logger.Info("queue.started", "workers", q.workers, "capacity", q.queueSize)
	})
}

// Enqueue submits an event without blocking. Returns false when the queue
// is full; the caller decides whether that is a 503 or a retry.
func (q *Queue) Enqueue(ev pipeline.UploadEvent) bool {
	select {
	case q.jobs <- ev:
		return true
	default:
		q.logger.Warn("queue.full", "object", ev.ObjectName)
		return false
	}
}

// Shutdown stops intake and waits for in-flight work to finish.
func (q *Queue) Shutdown() {
	q.stopOnce.Do(func() { close(q.jobs) })
	q.wg.Wait()
	q.logger.Info("queue.stopped")
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	for ev := range q.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		report, err := q.proc.Process(ctx, ev)
		cancel()
		if err != nil {
			q.logger.Error("queue.job_failed",
				"worker", id, "object", ev.ObjectName, "error", err)
			continue
		}
		if report.Skipped {
			q.logger.Info("queue.job_skipped",
				"worker", id, "object", ev.ObjectName, "reason", report.SkipReason)
		}
	}
}
