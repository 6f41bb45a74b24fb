package reminders

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invictcrm/models"
	"invictcrm/pkg/notify"
	"invictcrm/pkg/store/memstore"
)

func TestRunOnceRemindsDueTasksOnce(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	staff := &models.User{Email: "tom@invictacademy.com", FirstName: "Tom", LastName: "Bell", Role: models.RoleStaff}
	require.NoError(t, st.CreateUser(ctx, staff))

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time { v := now.Add(d); return &v }
	tasks := []*models.Task{
		{Title: "Call Sarah", DueDate: at(2 * time.Hour), AssigneeID: &staff.ID},
		{Title: "Chase passport", DueDate: at(30 * time.Hour), AssigneeID: &staff.ID},
		{Title: "Done already", DueDate: at(time.Hour), AssigneeID: &staff.ID, Completed: true},
		{Title: "Nobody's", DueDate: at(time.Hour)},
		{Title: "No date", AssigneeID: &staff.ID},
	}
	for _, task := range tasks {
		require.NoError(t, st.CreateTask(ctx, task))
	}

	rec := &notify.Recorder{}
	r := New(st, rec, 24*time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r.now = func() time.Time { return now }

	n, err := r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, rec.Sent(), 1)
	assert.Equal(t, notify.Sent{Name: notify.JobTaskReminder, Payload: notify.TaskReminder{
		Email: "tom@invictacademy.com", Name: "Tom Bell", TaskID: tasks[0].ID, Title: "Call Sarah", DueDate: *tasks[0].DueDate,
	}}, rec.Sent()[0])

	got, err := st.GetTask(ctx, tasks[0].ID)
	require.NoError(t, err)
	require.NotNil(t, got.RemindedAt)

	n, err = r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "tasks are reminded once")
	assert.Len(t, rec.Sent(), 1)
}

func TestRunOnceReleasesTaskWhenQueueFails(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	staff := &models.User{Email: "tom@invictacademy.com", FirstName: "Tom", LastName: "Bell", Role: models.RoleStaff}
	require.NoError(t, st.CreateUser(ctx, staff))
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	due := now.Add(time.Hour)
	task := &models.Task{Title: "Call Sarah", DueDate: &due, AssigneeID: &staff.ID}
	require.NoError(t, st.CreateTask(ctx, task))

	rec := &notify.Recorder{Fail: errors.New("broker unreachable")}
	r := New(st, rec, 24*time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r.now = func() time.Time { return now }

	n, err := r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	got, err := st.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Nil(t, got.RemindedAt, "a reminder that never reached the queue is not recorded")

	rec.Fail = nil
	n, err = r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, rec.Named(notify.JobTaskReminder), 1)
}

// snapshotStore serves the same due list to every caller, as two workers
// that listed tasks before either claimed them would see.
type snapshotStore struct {
	*memstore.Store
	due []models.Task
}

func (s snapshotStore) DueTasks(context.Context, time.Time) ([]models.Task, error) {
	return s.due, nil
}

func TestRunOnceSideBySideWorkersRemindOnce(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	staff := &models.User{Email: "tom@invictacademy.com", FirstName: "Tom", LastName: "Bell", Role: models.RoleStaff}
	require.NoError(t, st.CreateUser(ctx, staff))
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	due := now.Add(time.Hour)
	require.NoError(t, st.CreateTask(ctx, &models.Task{Title: "Call Sarah", DueDate: &due, AssigneeID: &staff.ID}))

	listed, err := st.DueTasks(ctx, now.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, listed, 1)
	shared := snapshotStore{Store: st, due: listed}

	rec := &notify.Recorder{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	first, second := New(shared, rec, 24*time.Hour, log), New(shared, rec, 24*time.Hour, log)
	first.now = func() time.Time { return now }
	second.now = func() time.Time { return now }

	var wg sync.WaitGroup
	var total atomic.Int32
	for _, r := range []*Reminder{first, second} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := r.RunOnce(ctx)
			assert.NoError(t, err)
			total.Add(int32(n))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), total.Load())
	assert.Len(t, rec.Named(notify.JobTaskReminder), 1)
}
