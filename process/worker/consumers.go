package worker

import (
	"context"
	"log/slog"
	"sync"

	"invictcrm/pkg/config"
	"invictcrm/pkg/mailer"
	"invictcrm/pkg/platform"
	"invictcrm/process/reminders"
)

// NewMailer sends through Resend when RESEND_API_KEY is set and only logs
// messages otherwise.
func NewMailer(cfg config.Config, log *slog.Logger) (*mailer.Mailer, *mailer.Templates, error) {
	tmpl, err := mailer.NewTemplates(cfg.MailTemplateDir, log)
	if err != nil {
		return nil, nil, err
	}
	var sender mailer.Sender = mailer.LogSender{Log: log}
	if cfg.ResendAPIKey != "" {
		sender = mailer.NewResend(cfg.ResendAPIKey)
	} else {
		log.Warn("RESEND_API_KEY not set; emails are logged, not sent")
	}
	return mailer.New(sender, tmpl, cfg.FromEmail, cfg.AppURL), tmpl, nil
}

// StartConsumers runs the notification and upload workers, the task
// reminder loop and the template watcher until ctx is done. The returned
// function waits for all of them to stop.
func StartConsumers(ctx context.Context, cfg config.Config, p *platform.Platform, tasks reminders.Store, uploads Uploads, log *slog.Logger) (wait func(), err error) {
	mail, tmpl, err := NewMailer(cfg, log)
	if err != nil {
		return nil, err
	}
	opts := Options{Concurrency: cfg.WorkerConcurrency, MaxAttempts: cfg.JobMaxAttempts, Backoff: cfg.JobBackoff}

	notifications := New(p.Notifications, opts, log.With("queue", "notifications"))
	Register(notifications, mail, nil)
	up := New(p.Uploads, opts, log.With("queue", "uploads"))
	Register(up, mail, uploads)

	rem := reminders.New(tasks, p.Notifier, cfg.ReminderWindow, log)

	var wg sync.WaitGroup
	run := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}
	run(func() { notifications.Run(ctx) })
	run(func() { up.Run(ctx) })
	run(func() { rem.Start(ctx, cfg.ReminderInterval, 0) })
	run(func() {
		if err := tmpl.Watch(ctx); err != nil {
			log.Warn("template watcher stopped", "error", err)
		}
	})
	log.Info("consumers started", "concurrency", opts.Concurrency)
	return wg.Wait, nil
}
