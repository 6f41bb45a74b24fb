// Package mailer renders the transactional emails and hands them to the
// email provider.
package mailer

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/resend/resend-go/v2"
)

type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Sender delivers one rendered message and returns the provider message id.
type Sender interface {
	Send(ctx context.Context, m Message) (string, error)
}

// Resend sends through the Resend API.
type Resend struct {
	client *resend.Client
}

func NewResend(apiKey string) *Resend {
	return &Resend{client: resend.NewClient(apiKey)}
}

func (r *Resend) Send(ctx context.Context, m Message) (string, error) {
	resp, err := r.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.From,
		To:      []string{m.To},
		Subject: m.Subject,
		Html:    m.HTML,
	})
	if err != nil {
		return "", err
	}
	return resp.Id, nil
}

// LogSender writes messages to the log instead of sending them. Used when no
// provider key is configured.
type LogSender struct {
	Log *slog.Logger
}

func (l LogSender) Send(_ context.Context, m Message) (string, error) {
	l.Log.Info("email not sent, no provider configured", "to", m.To, "subject", m.Subject)
	return fmt.Sprintf("log_%d", time.Now().UnixNano()), nil
}

type Mailer struct {
	sender    Sender
	templates *Templates
	from      string
	appURL    string
	now       func() time.Time
}

func New(sender Sender, templates *Templates, from, appURL string) *Mailer {
	return &Mailer{sender: sender, templates: templates, from: from, appURL: appURL, now: time.Now}
}

// view is the data every template receives.
type view struct {
	Title              string
	Color              template.CSS
	Href, Label        string
	Year               int
	Name, ID           string
	University, Status string
	Message            string
	TaskTitle, DueDate string
}

func (m *Mailer) send(ctx context.Context, tmpl, to string, v view) error {
	v.Year = m.now().Year()
	subject, body, err := m.templates.Render(tmpl, v)
	if err != nil {
		return err
	}
	if _, err := m.sender.Send(ctx, Message{From: m.from, To: to, Subject: subject, HTML: body}); err != nil {
		return fmt.Errorf("send %s to %s: %w", tmpl, to, err)
	}
	return nil
}

func (m *Mailer) Welcome(ctx context.Context, to, name string) error {
	return m.send(ctx, TmplWelcome, to, view{
		Title: "Welcome to Invict Academy!", Color: "linear-gradient(135deg, #06B6D4 0%, #2563EB 100%)",
		Href: m.appURL + "/dashboard", Label: "Access Your Dashboard", Name: name,
	})
}

func (m *Mailer) StaffNewLead(ctx context.Context, to, leadName, leadID string) error {
	return m.send(ctx, TmplStaffNewLead, to, view{
		Title: "New Lead Assigned", Color: "#0F172A",
		Href: m.appURL + "/dashboard/leads", Label: "View Lead in Dashboard", Name: leadName, ID: leadID,
	})
}

type statusCopy struct {
	title, message string
	color          template.CSS
}

func applicationCopy(status, university string) statusCopy {
	switch status {
	case "DOCUMENTS_PENDING":
		return statusCopy{"Documents Needed", university + " is waiting on documents for your application.", "#F59E0B"}
	case "UNDER_REVIEW":
		return statusCopy{"Application Under Review", university + " is currently reviewing your application.", "#8B5CF6"}
	case "APPROVED":
		return statusCopy{"Congratulations! 🎉", "You've been accepted to " + university + "!", "#10B981"}
	case "REJECTED":
		return statusCopy{"Application Update", "Unfortunately, your application to " + university +
			" was not successful. Our team is here to help you explore other options.", "#EF4444"}
	}
	return statusCopy{"Application Submitted", "Your application to " + university + " has been successfully submitted!", "#06B6D4"}
}

func (m *Mailer) ApplicationStatus(ctx context.Context, to, name, university, status string) error {
	c := applicationCopy(status, university)
	return m.send(ctx, TmplApplicationStatus, to, view{
		Title: c.title, Color: c.color, Message: c.message,
		Href: m.appURL + "/dashboard/applications", Label: "View Application Details",
		Name: name, University: university, Status: status,
	})
}

func (m *Mailer) TaskReminder(ctx context.Context, to, name, title, dueDate string) error {
	return m.send(ctx, TmplTaskReminder, to, view{
		Title: "⏰ Task Reminder", Color: "#F59E0B",
		Href: m.appURL + "/dashboard", Label: "Complete Task",
		Name: name, TaskTitle: title, DueDate: dueDate,
	})
}
