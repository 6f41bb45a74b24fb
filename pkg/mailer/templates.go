package mailer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html"
	"html/template"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

//go:embed templates/*.html
var embedded embed.FS

// Template names. Each file defines a "subject" and a "body" block and may
// use the shared blocks from layout.html.
const (
	TmplWelcome           = "welcome"
	TmplStaffNewLead      = "staff_new_lead"
	TmplApplicationStatus = "application_status"
	TmplTaskReminder      = "task_reminder"
)

var names = []string{TmplWelcome, TmplStaffNewLead, TmplApplicationStatus, TmplTaskReminder}

// Templates holds the parsed email templates. When dir is set, files found
// there replace the embedded ones of the same name.
type Templates struct {
	dir string
	log *slog.Logger

	mu  sync.RWMutex
	set map[string]*template.Template
}

func NewTemplates(dir string, log *slog.Logger) (*Templates, error) {
	t := &Templates{dir: dir, log: log}
	if err := t.Reload(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Templates) readFile(name string) ([]byte, error) {
	if t.dir != "" {
		data, err := os.ReadFile(filepath.Join(t.dir, name))
		if err == nil {
			return data, nil
		}
		if !os.IsNotExist(err) {
			return nil, err
		}
	}
	return fs.ReadFile(embedded, "templates/"+name)
}

// Reload parses every template again. On error the previous set is kept.
func (t *Templates) Reload() error {
	layout, err := t.readFile("layout.html")
	if err != nil {
		return fmt.Errorf("read layout: %w", err)
	}
	set := make(map[string]*template.Template, len(names))
	for _, name := range names {
		src, err := t.readFile(name + ".html")
		if err != nil {
			return fmt.Errorf("read template %s: %w", name, err)
		}
		tmpl, err := template.New(name).Parse(string(layout))
		if err == nil {
			tmpl, err = tmpl.Parse(string(src))
		}
		if err != nil {
			return fmt.Errorf("parse template %s: %w", name, err)
		}
		for _, block := range []string{"subject", "body"} {
			if tmpl.Lookup(block) == nil {
				return fmt.Errorf("template %s: missing %q block", name, block)
			}
		}
		set[name] = tmpl
	}
	t.mu.Lock()
	t.set = set
	t.mu.Unlock()
	return nil
}

// Render executes the named template and returns the subject and HTML body.
func (t *Templates) Render(name string, data any) (string, string, error) {
	t.mu.RLock()
	tmpl, ok := t.set[name]
	t.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("unknown template %q", name)
	}
	var subject, body bytes.Buffer
	if err := tmpl.ExecuteTemplate(&subject, "subject", data); err != nil {
		return "", "", fmt.Errorf("render %s subject: %w", name, err)
	}
	if err := tmpl.ExecuteTemplate(&body, "body", data); err != nil {
		return "", "", fmt.Errorf("render %s body: %w", name, err)
	}
	return strings.TrimSpace(html.UnescapeString(subject.String())), body.String(), nil
}

// Watch reloads the templates whenever a file in dir changes, until ctx is
// done. Events are debounced so an editor's write burst causes one reload.
func (t *Templates) Watch(ctx context.Context) error {
	if t.dir == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(t.dir); err != nil {
		return err
	}
	t.log.Info("watching mail templates", "dir", t.dir)

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 && strings.HasSuffix(ev.Name, ".html") {
				pending = time.After(250 * time.Millisecond)
			}
		case <-pending:
			pending = nil
			if err := t.Reload(); err != nil {
				t.log.Warn("mail template reload failed", "error", err)
				continue
			}
			t.log.Info("mail templates reloaded")
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			t.log.Warn("template watch error", "error", err)
		}
	}
}
