package worker

import (
	"context"
	"fmt"

	"invictcrm/pkg/notify"
	"invictcrm/pkg/queue"
)

// Mail is the subset of the mailer the jobs use.
type Mail interface {
	Welcome(ctx context.Context, to, name string) error
	StaffNewLead(ctx context.Context, to, leadName, leadID string) error
	ApplicationStatus(ctx context.Context, to, name, university, status string) error
	TaskReminder(ctx context.Context, to, name, title, dueDate string) error
}

type Uploads interface {
	ProcessUpload(ctx context.Context, p notify.ProcessUpload) error
}

// decoded adapts a typed handler: payloads that do not decode are permanent
// failures.
func decoded[T any](fn func(ctx context.Context, p T) error) Handler {
	return func(ctx context.Context, job *queue.Job) error {
		var p T
		if err := job.Decode(&p); err != nil {
			return Permanent(fmt.Errorf("decode %s: %w", job.Name, err))
		}
		return fn(ctx, p)
	}
}

// Register installs the handlers for every notification job. uploads may be
// nil for a worker that only sends mail.
func Register(w *Worker, mail Mail, uploads Uploads) {
	w.Handle(notify.JobLeadWelcome, decoded(func(ctx context.Context, p notify.LeadWelcome) error {
		return mail.Welcome(ctx, p.Email, p.Name)
	}))
	w.Handle(notify.JobWelcome, decoded(func(ctx context.Context, p notify.Welcome) error {
		return mail.Welcome(ctx, p.Email, p.Name)
	}))
	w.Handle(notify.JobStaffNotification, decoded(func(ctx context.Context, p notify.StaffNotification) error {
		return mail.StaffNewLead(ctx, p.Email, p.LeadName, p.LeadID)
	}))
	w.Handle(notify.JobApplicationStatus, decoded(func(ctx context.Context, p notify.ApplicationStatus) error {
		return mail.ApplicationStatus(ctx, p.Email, p.Name, p.University, p.Status)
	}))
	w.Handle(notify.JobTaskReminder, decoded(func(ctx context.Context, p notify.TaskReminder) error {
		return mail.TaskReminder(ctx, p.Email, p.Name, p.Title, p.DueDate.Format("Jan 2, 2006 15:04"))
	}))
	if uploads != nil {
		w.Handle(notify.JobProcessUpload, decoded(uploads.ProcessUpload))
	}
}
