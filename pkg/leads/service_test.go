package leads

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invictcrm/models"
	"invictcrm/pkg/apperr"
	"invictcrm/pkg/events"
	"invictcrm/pkg/notify"
	"invictcrm/pkg/queue"
	"invictcrm/pkg/store/memstore"
)

const staffInbox = "staff@invictacademy.com"

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newService(t *testing.T) (*Service, *memstore.Store, *notify.Recorder, *events.Recorder) {
	t.Helper()
	st := memstore.New()
	rec := &notify.Recorder{}
	ev := &events.Recorder{}
	return NewService(st, rec, ev, staffInbox, quiet()), st, rec, ev
}

func sarah() CreateInput {
	return CreateInput{FirstName: "Sarah", LastName: "Johnson", Email: "sarah@example.com", Status: "WON"}
}

func TestCreateForcesNewAndQueuesTwoJobs(t *testing.T) {
	svc, st, rec, ev := newService(t)
	lead, err := svc.Create(context.Background(), sarah())
	require.NoError(t, err)
	assert.Equal(t, models.LeadNew, lead.Status)

	stored, err := st.GetLead(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LeadNew, stored.Status)
	require.Len(t, stored.Activities, 1)
	assert.Equal(t, models.ActivityCreated, stored.Activities[0].Kind)

	want := []notify.Sent{
		{Name: notify.JobLeadWelcome, Payload: notify.LeadWelcome{Email: "sarah@example.com", Name: "Sarah Johnson", LeadID: lead.ID}},
		{Name: notify.JobStaffNotification, Payload: notify.StaffNotification{Email: staffInbox, LeadID: lead.ID, LeadName: "Sarah Johnson"}},
	}
	if diff := cmp.Diff(want, rec.Sent()); diff != "" {
		t.Errorf("queued jobs mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{events.LeadCreated}, ev.Types())
}

func TestCreateIgnoresAnySuppliedStatus(t *testing.T) {
	svc, _, _, _ := newService(t)
	for _, status := range []string{"", "NEW", "CONTACTED", "QUALIFIED", "CONVERTED", "LOST", "WON", "garbage"} {
		in := sarah()
		in.Status = status
		lead, err := svc.Create(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, models.LeadNew, lead.Status, "supplied status %q", status)
	}
}

type brokenQueue struct{}

func (brokenQueue) Enqueue(context.Context, queue.Job) error { return assert.AnError }

func TestCreateSurvivesBrokerFailure(t *testing.T) {
	st := memstore.New()
	dispatcher := notify.NewDispatcher(brokenQueue{}, nil, 50*time.Millisecond, quiet())
	svc := NewService(st, dispatcher, events.Nop{}, staffInbox, quiet())

	lead, err := svc.Create(context.Background(), sarah())
	require.NoError(t, err)
	require.NotNil(t, lead)

	n, err := st.CountLeads(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestCreateValidation(t *testing.T) {
	svc, _, rec, _ := newService(t)
	for _, in := range []CreateInput{
		{FirstName: "", LastName: "J", Email: "a@example.com"},
		{FirstName: "S", LastName: "J", Email: "nope"},
	} {
		_, err := svc.Create(context.Background(), in)
		assert.True(t, apperr.Is(err, apperr.KindValidation))
	}
	assert.Empty(t, rec.Sent())
}

func TestFindAllSearch(t *testing.T) {
	svc, _, _, _ := newService(t)
	ctx := context.Background()
	people := []CreateInput{
		{FirstName: "Sarah", LastName: "Johnson", Email: "sarah@example.com"},
		{FirstName: "Omar", LastName: "Sarhan", Email: "omar@example.com"},
		{FirstName: "Li", LastName: "Wei", Email: "li.wei@sarahmail.com"},
		{FirstName: "Ana", LastName: "Costa", Email: "ana@example.com"},
	}
	for _, p := range people {
		_, err := svc.Create(ctx, p)
		require.NoError(t, err)
	}

	for _, term := range []string{"SAR", "sar", "example", "wei", "zzz", "Costa"} {
		got, err := svc.FindAll(ctx, "", term)
		require.NoError(t, err)
		want := 0
		for _, p := range people {
			if hit(p, term) {
				want++
			}
		}
		assert.Len(t, got, want, "term %q", term)
		for _, l := range got {
			assert.True(t, hit(CreateInput{FirstName: l.FirstName, LastName: l.LastName, Email: l.Email}, term), "term %q matched %s", term, l.Email)
		}
	}
}

func hit(p CreateInput, term string) bool {
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(p.FirstName), term) ||
		strings.Contains(strings.ToLower(p.LastName), term) ||
		strings.Contains(strings.ToLower(p.Email), term)
}

func TestFindAllStatusFilter(t *testing.T) {
	svc, _, _, _ := newService(t)
	ctx := context.Background()
	a, err := svc.Create(ctx, sarah())
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{FirstName: "B", LastName: "C", Email: "b@example.com"})
	require.NoError(t, err)
	lost := "LOST"
	_, err = svc.Update(ctx, a.ID, UpdateInput{Status: &lost})
	require.NoError(t, err)

	got, err := svc.FindAll(ctx, "LOST", "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)

	all, err := svc.FindAll(ctx, "all", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.FindAll(ctx, "MAYBE", "")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestFindOneNotFound(t *testing.T) {
	svc, _, _, _ := newService(t)
	_, err := svc.FindOne(context.Background(), "9f0c6f5e-0000-4000-8000-000000000000")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, "Lead not found", apperr.Message(err))
}

func TestUpdateRecordsActivities(t *testing.T) {
	svc, st, _, ev := newService(t)
	ctx := context.Background()
	staff := &models.User{Email: "amy@invictacademy.com", FirstName: "Amy", LastName: "Lee", Role: models.RoleStaff}
	require.NoError(t, st.CreateUser(ctx, staff))
	lead, err := svc.Create(ctx, sarah())
	require.NoError(t, err)

	won, score := "WON", 80
	updated, err := svc.Update(ctx, lead.ID, UpdateInput{Status: &won, AssignedToID: &staff.ID, Score: &score})
	require.NoError(t, err)
	assert.Equal(t, models.LeadConverted, updated.Status)
	assert.Equal(t, 80, updated.Score)
	require.NotNil(t, updated.Assignee)
	assert.Equal(t, "Amy", updated.Assignee.FirstName)

	var kinds []models.ActivityKind
	for _, a := range updated.Activities {
		kinds = append(kinds, a.Kind)
	}
	assert.Equal(t, []models.ActivityKind{models.ActivityCreated, models.ActivityStatusChanged, models.ActivityAssigned}, kinds)
	assert.Equal(t, []string{events.LeadCreated, events.LeadUpdated}, ev.Types())

	list, err := svc.FindAll(ctx, "", "")
	require.NoError(t, err)
	require.NotNil(t, list[0].Assignee)
	assert.Equal(t, "Lee", list[0].Assignee.LastName)
}

func TestUpdateReturnsCurrentHistory(t *testing.T) {
	svc, _, _, _ := newService(t)
	ctx := context.Background()
	lead, err := svc.Create(ctx, sarah())
	require.NoError(t, err)

	contacted := "CONTACTED"
	updated, err := svc.Update(ctx, lead.ID, UpdateInput{Status: &contacted})
	require.NoError(t, err)
	stored, err := svc.FindOne(ctx, lead.ID)
	require.NoError(t, err)

	require.Len(t, updated.Activities, 2)
	assert.Equal(t, models.ActivityStatusChanged, updated.Activities[1].Kind)
	if diff := cmp.Diff(stored.Activities, updated.Activities); diff != "" {
		t.Fatalf("Update result differs from stored history (-stored +updated):\n%s", diff)
	}
}

func TestUpdateAllowsAnyTransition(t *testing.T) {
	svc, _, _, _ := newService(t)
	ctx := context.Background()
	lead, err := svc.Create(ctx, sarah())
	require.NoError(t, err)
	for _, s := range []string{"LOST", "NEW", "CONVERTED", "CONTACTED"} {
		_, err := svc.Update(ctx, lead.ID, UpdateInput{Status: &s})
		require.NoError(t, err)
	}
}

func TestUpdateErrors(t *testing.T) {
	svc, _, _, _ := newService(t)
	ctx := context.Background()
	lead, err := svc.Create(ctx, sarah())
	require.NoError(t, err)

	bogus := "ARCHIVED"
	_, err = svc.Update(ctx, lead.ID, UpdateInput{Status: &bogus})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	nobody := "no-such-user"
	_, err = svc.Update(ctx, lead.ID, UpdateInput{AssignedToID: &nobody})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.Update(ctx, "missing", UpdateInput{})
	assert.Equal(t, "Lead not found", apperr.Message(err))
}

func TestRemove(t *testing.T) {
	svc, _, _, _ := newService(t)
	ctx := context.Background()
	lead, err := svc.Create(ctx, sarah())
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, lead.ID))
	err = svc.Remove(ctx, lead.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
