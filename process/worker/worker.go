// Package worker consumes broker jobs and runs the handler registered for
// each job name.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"invictcrm/pkg/metrics"
	"invictcrm/pkg/queue"
)

type Handler func(ctx context.Context, job *queue.Job) error

type permanent struct{ err error }

func (p permanent) Error() string { return p.err.Error() }
func (p permanent) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying. The job is dropped.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanent{err}
}

type Options struct {
	Concurrency int
	MaxAttempts int
	Backoff     time.Duration
	// Wait is how long one Reserve call blocks for a job.
	Wait time.Duration
}

type Worker struct {
	q        queue.Queue
	opts     Options
	handlers map[string]Handler
	log      *slog.Logger
}

func New(q queue.Queue, opts Options, log *slog.Logger) *Worker {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if opts.Wait <= 0 {
		opts.Wait = 5 * time.Second
	}
	return &Worker{q: q, opts: opts, handlers: map[string]Handler{}, log: log}
}

func (w *Worker) Handle(name string, h Handler) {
	w.handlers[name] = h
}

// Run consumes jobs with Concurrency goroutines until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < w.opts.Concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.loop(ctx, id)
		}(i)
	}
	wg.Wait()
}

func (w *Worker) loop(ctx context.Context, id int) {
	for ctx.Err() == nil {
		job, err := w.q.Reserve(ctx, w.opts.Wait)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, queue.ErrClosed) {
				return
			}
			w.log.Warn("reserve failed", "consumer", id, "error", err)
			sleep(ctx, time.Second)
			continue
		}
		if job == nil {
			continue
		}
		w.Process(context.WithoutCancel(ctx), job)
	}
}

// Process runs one job and settles it with the queue: ack on success, on
// permanent failure, on unknown names and after the last attempt; retry with
// exponential backoff otherwise.
func (w *Worker) Process(ctx context.Context, job *queue.Job) {
	log := w.log.With("job", job.Name, "job_id", job.ID, "attempt", job.Attempts)
	h, ok := w.handlers[job.Name]
	if !ok {
		log.Warn("dropping job with unknown name")
		metrics.RecordJob(job.Name, "dropped")
		w.ack(ctx, log, job)
		return
	}

	err := run(ctx, h, job)
	switch {
	case err == nil:
		metrics.RecordJob(job.Name, "ok")
		w.ack(ctx, log, job)
	case errors.As(err, new(permanent)) || job.Attempts >= w.opts.MaxAttempts:
		log.Error("job failed", "error", err)
		metrics.RecordJob(job.Name, "failed")
		w.ack(ctx, log, job)
	default:
		delay := w.Backoff(job.Attempts)
		log.Warn("job failed, will retry", "error", err, "delay", delay)
		metrics.RecordJob(job.Name, "retry")
		if err := w.q.Retry(ctx, job, delay); err != nil {
			log.Error("retry failed", "error", err)
		}
	}
}

// Backoff is the delay before delivery attempt+1.
func (w *Worker) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return w.opts.Backoff << (attempt - 1)
}

func (w *Worker) ack(ctx context.Context, log *slog.Logger, job *queue.Job) {
	if err := w.q.Ack(ctx, job); err != nil {
		log.Error("ack failed", "error", err)
	}
}

func run(ctx context.Context, h Handler, job *queue.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h(ctx, job)
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
