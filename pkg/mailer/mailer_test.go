package mailer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSender struct {
	sent []Message
	err  error
}

func (c *captureSender) Send(_ context.Context, m Message) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	c.sent = append(c.sent, m)
	return "msg_1", nil
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newMailer(t *testing.T, dir string) (*Mailer, *captureSender) {
	t.Helper()
	tmpl, err := NewTemplates(dir, quiet())
	require.NoError(t, err)
	c := &captureSender{}
	m := New(c, tmpl, "Invict Academy <noreply@invictacademy.com>", "https://app.example")
	m.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }
	return m, c
}

func TestWelcomeEmail(t *testing.T) {
	m, c := newMailer(t, "")
	require.NoError(t, m.Welcome(context.Background(), "sarah@example.com", "Sarah"))
	require.Len(t, c.sent, 1)
	msg := c.sent[0]
	assert.Equal(t, "sarah@example.com", msg.To)
	assert.Equal(t, "Invict Academy <noreply@invictacademy.com>", msg.From)
	assert.Equal(t, "Welcome to Invict Academy! 🎓", msg.Subject)
	assert.Contains(t, msg.HTML, "Hello Sarah,")
	assert.Contains(t, msg.HTML, `href="https://app.example/dashboard"`)
	assert.Contains(t, msg.HTML, "linear-gradient(135deg")
	assert.Contains(t, msg.HTML, "2026 Invict Academy")
}

func TestApplicationStatusCopy(t *testing.T) {
	cases := map[string]string{
		"SUBMITTED":         "Application Submitted - Politecnico di Milano",
		"DOCUMENTS_PENDING": "Documents Needed - Politecnico di Milano",
		"UNDER_REVIEW":      "Application Under Review - Politecnico di Milano",
		"APPROVED":          "Congratulations! 🎉 - Politecnico di Milano",
		"REJECTED":          "Application Update - Politecnico di Milano",
		"DRAFT":             "Application Submitted - Politecnico di Milano",
	}
	for status, subject := range cases {
		m, c := newMailer(t, "")
		require.NoError(t, m.ApplicationStatus(context.Background(), "a@example.com", "Ana", "Politecnico di Milano", status))
		assert.Equal(t, subject, c.sent[0].Subject, status)
	}
}

func TestSubjectIsNotHTMLEscaped(t *testing.T) {
	m, c := newMailer(t, "")
	require.NoError(t, m.TaskReminder(context.Background(), "s@example.com", "Sam", "Call Ana & Bo", "2026-03-02"))
	assert.Equal(t, "Reminder: Call Ana & Bo - Due 2026-03-02", c.sent[0].Subject)
	assert.Contains(t, c.sent[0].HTML, "Call Ana &amp; Bo")
}

func TestUserInputIsEscaped(t *testing.T) {
	m, c := newMailer(t, "")
	require.NoError(t, m.StaffNewLead(context.Background(), "staff@example.com", "<script>x</script>", "lead-1"))
	assert.NotContains(t, c.sent[0].HTML, "<script>")
	assert.Contains(t, c.sent[0].HTML, "ID: lead-1")
}

func TestSenderErrorIsReturned(t *testing.T) {
	m, c := newMailer(t, "")
	c.err = errors.New("rate limited")
	err := m.Welcome(context.Background(), "x@example.com", "X")
	assert.ErrorContains(t, err, "rate limited")
}

func TestTemplateOverrideAndReload(t *testing.T) {
	dir := t.TempDir()
	m, c := newMailer(t, dir)
	write := func(subject string) {
		body := `{{define "subject"}}` + subject + `{{end}}{{define "body"}}<p>{{.Name}}</p>{{end}}`
		require.NoError(t, os.WriteFile(filepath.Join(dir, "welcome.html"), []byte(body), 0o644))
	}

	write("Custom welcome")
	require.NoError(t, m.templates.Reload())
	require.NoError(t, m.Welcome(context.Background(), "x@example.com", "X"))
	assert.Equal(t, "Custom welcome", c.sent[0].Subject)
	assert.Equal(t, "<p>X</p>", c.sent[0].HTML)

	// a broken file keeps the previous set
	require.NoError(t, os.WriteFile(filepath.Join(dir, "welcome.html"), []byte(`{{define "subject"}`), 0o644))
	assert.Error(t, m.templates.Reload())
	require.NoError(t, m.Welcome(context.Background(), "x@example.com", "X"))
	assert.Equal(t, "Custom welcome", c.sent[1].Subject)
}

func TestWatchReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	m, c := newMailer(t, dir)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- m.templates.Watch(ctx) }()
	time.Sleep(100 * time.Millisecond)

	body := `{{define "subject"}}Watched{{end}}{{define "body"}}ok{{end}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "welcome.html"), []byte(body), 0o644))

	require.Eventually(t, func() bool {
		c.sent = nil
		return m.Welcome(context.Background(), "x@example.com", "X") == nil && c.sent[0].Subject == "Watched"
	}, 3*time.Second, 50*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
