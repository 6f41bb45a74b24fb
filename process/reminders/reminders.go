// Package reminders sends task_reminder jobs for open tasks that fall due
// soon.
package reminders

import (
	"context"
	"log/slog"
	"time"

	"invictcrm/models"
	"invictcrm/pkg/notify"
)

type Store interface {
	DueTasks(ctx context.Context, before time.Time) ([]models.Task, error)
	ClaimTaskReminder(ctx context.Context, id string, at time.Time) (bool, error)
	ReleaseTaskReminder(ctx context.Context, id string) error
}

// Sender queues a job and reports whether it made it onto the broker.
type Sender interface {
	Send(ctx context.Context, name string, payload any) error
}

type Reminder struct {
	store  Store
	send   Sender
	window time.Duration
	log    *slog.Logger
	now    func() time.Time
}

func New(s Store, send Sender, window time.Duration, log *slog.Logger) *Reminder {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &Reminder{store: s, send: send, window: window, log: log, now: time.Now}
}

// RunOnce reminds every open task due within the window and returns how many
// reminders were queued. A task is claimed before its job is queued, so
// workers running side by side never remind the same task twice. A task
// whose job could not be queued is released and retried on the next run.
func (r *Reminder) RunOnce(ctx context.Context) (int, error) {
	now := r.now().UTC()
	tasks, err := r.store.DueTasks(ctx, now.Add(r.window))
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, t := range tasks {
		claimed, err := r.store.ClaimTaskReminder(ctx, t.ID, now)
		if err != nil {
			r.log.Warn("claim task reminder", "task_id", t.ID, "error", err)
			continue
		}
		if !claimed {
			r.log.Debug("task reminder already claimed", "task_id", t.ID)
			continue
		}
		if t.Assignee == nil {
			r.log.Debug("task has no assignee, skipping reminder", "task_id", t.ID)
			continue
		}
		err = r.send.Send(ctx, notify.JobTaskReminder, notify.TaskReminder{
			Email:   t.Assignee.Email,
			Name:    t.Assignee.FullName(),
			TaskID:  t.ID,
			Title:   t.Title,
			DueDate: *t.DueDate,
		})
		if err != nil {
			if rerr := r.store.ReleaseTaskReminder(ctx, t.ID); rerr != nil {
				r.log.Error("release task reminder", "task_id", t.ID, "error", rerr)
			}
			continue
		}
		sent++
	}
	return sent, nil
}

// Start runs RunOnce every interval until ctx is done.
func (r *Reminder) Start(ctx context.Context, interval, timeout time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tickCtx, cancel := context.WithTimeout(ctx, timeout)
			n, err := r.RunOnce(tickCtx)
			cancel()
			if err != nil {
				r.log.Error("task reminder run failed", "error", err)
				continue
			}
			if n > 0 {
				r.log.Info("task reminders queued", "count", n)
			}
		}
	}
}
