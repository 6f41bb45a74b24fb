package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"invictcrm/pkg/metrics"
	"invictcrm/pkg/queue"
)

// Notifier is what services depend on. Notify never fails the caller.
type Notifier interface {
	Notify(ctx context.Context, name string, payload any)
}

// Enqueuer is satisfied by queue.Queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, job queue.Job) error
}

// Dispatcher routes jobs to the notification or upload queue. Each enqueue is
// bounded by a timeout; failures are logged and counted, never returned.
type Dispatcher struct {
	notifications Enqueuer
	uploads       Enqueuer
	timeout       time.Duration
	log           *slog.Logger
}

func NewDispatcher(notifications, uploads Enqueuer, timeout time.Duration, log *slog.Logger) *Dispatcher {
	if uploads == nil {
		uploads = notifications
	}
	return &Dispatcher{notifications: notifications, uploads: uploads, timeout: timeout, log: log}
}

func (d *Dispatcher) Notify(ctx context.Context, name string, payload any) {
	_ = d.Send(ctx, name, payload)
}

// Send is Notify for callers that need to know whether the job was queued.
// The failure is logged and counted either way.
func (d *Dispatcher) Send(ctx context.Context, name string, payload any) error {
	job, err := queue.NewJob(name, payload)
	if err != nil {
		d.log.Error("build job", "job", name, "err", err)
		metrics.RecordEnqueue(name, err)
		return err
	}
	target := d.notifications
	if name == JobProcessUpload {
		target = d.uploads
	}
	// detached from request cancellation; the timeout still bounds it
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()
	err = target.Enqueue(ctx, job)
	metrics.RecordEnqueue(name, err)
	if err != nil {
		d.log.Warn("enqueue failed", "job", name, "job_id", job.ID, "err", err)
		return fmt.Errorf("enqueue %s: %w", name, err)
	}
	d.log.Debug("job enqueued", "job", name, "job_id", job.ID)
	return nil
}

// Sent is one call captured by Recorder.
type Sent struct {
	Name    string
	Payload any
}

// Recorder is a Notifier that keeps every call. Used in tests. When Fail is
// set, Send returns it and records nothing.
type Recorder struct {
	mu   sync.Mutex
	sent []Sent
	Fail error
}

func (r *Recorder) Notify(ctx context.Context, name string, payload any) {
	_ = r.Send(ctx, name, payload)
}

func (r *Recorder) Send(_ context.Context, name string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		return r.Fail
	}
	r.sent = append(r.sent, Sent{Name: name, Payload: payload})
	return nil
}

func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

// Named returns the recorded calls for one job name.
func (r *Recorder) Named(name string) []Sent {
	var out []Sent
	for _, s := range r.Sent() {
		if s.Name == name {
			out = append(out, s)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}
