package queue

import (
	"context"
	"strconv"
	"sync"
	"time"
)

const memoryPoll = 10 * time.Millisecond

type delayedJob struct {
	job Job
	at  time.Time
}

// Memory is an in-process queue for tests and single-binary development.
type Memory struct {
	mu       sync.Mutex
	ready    []Job
	delayed  []delayedJob
	inflight map[string]Job
	next     int
	closed   bool
	now      func() time.Time
}

func NewMemory() *Memory {
	return &Memory{inflight: map[string]Job{}, now: time.Now}
}

func (q *Memory) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	q.ready = append(q.ready, job)
	return nil
}

func (q *Memory) Reserve(ctx context.Context, wait time.Duration) (*Job, error) {
	deadline := time.Now().Add(wait)
	for {
		if job, err := q.take(); job != nil || err != nil {
			return job, err
		}
		if !time.Now().Before(deadline) {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(memoryPoll):
		}
	}
}

func (q *Memory) take() (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, ErrClosed
	}
	now := q.now()
	kept := q.delayed[:0]
	for _, d := range q.delayed {
		if !now.Before(d.at) {
			q.ready = append(q.ready, d.job)
		} else {
			kept = append(kept, d)
		}
	}
	q.delayed = kept
	if len(q.ready) == 0 {
		return nil, nil
	}
	job := q.ready[0]
	q.ready = q.ready[1:]
	job.Attempts++
	q.next++
	job.receipt = strconv.Itoa(q.next)
	q.inflight[job.receipt] = job
	return &job, nil
}

func (q *Memory) Ack(_ context.Context, job *Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inflight, job.receipt)
	return nil
}

func (q *Memory) Retry(_ context.Context, job *Job, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inflight, job.receipt)
	next := *job
	next.receipt = ""
	q.delayed = append(q.delayed, delayedJob{job: next, at: q.now().Add(delay)})
	return nil
}

func (q *Memory) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}

// Len reports ready plus delayed jobs.
func (q *Memory) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ready) + len(q.delayed)
}

// Jobs returns a snapshot of the ready jobs in delivery order.
func (q *Memory) Jobs() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Job(nil), q.ready...)
}
