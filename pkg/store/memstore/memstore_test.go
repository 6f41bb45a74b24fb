package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invictcrm/models"
	"invictcrm/pkg/store"
)

func newStudent(t *testing.T, s *Store, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, FirstName: "Mia", LastName: "Lopez", Role: models.RoleStudent, StudentProfile: &models.StudentProfile{}}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func TestLeadsNewestFirstAndSearch(t *testing.T) {
	s := New()
	ctx := context.Background()
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return fixed })

	for _, name := range []string{"Alpha", "Bravo", "Charlie"} {
		require.NoError(t, s.CreateLead(ctx, &models.Lead{FirstName: name, LastName: "X", Email: name + "@example.com", Status: models.LeadNew}))
	}
	all, err := s.ListLeads(ctx, store.LeadFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Charlie", all[0].FirstName)
	assert.Equal(t, "Alpha", all[2].FirstName)

	hits, err := s.ListLeads(ctx, store.LeadFilter{Search: "BRAV"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Bravo", hits[0].FirstName)
}

func TestLeadReturnsCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	lead := &models.Lead{FirstName: "A", LastName: "B", Email: "a@example.com", Status: models.LeadNew, Destinations: []string{"DE"}}
	require.NoError(t, s.CreateLead(ctx, lead))

	got, err := s.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	got.Destinations[0] = "FR"
	got.Status = models.LeadLost

	again, err := s.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, "DE", again.Destinations[0])
	assert.Equal(t, models.LeadNew, again.Status)
}

func TestUserEmailUnique(t *testing.T) {
	s := New()
	newStudent(t, s, "mia@example.com")
	err := s.CreateUser(context.Background(), &models.User{Email: "MIA@example.com", Role: models.RoleStudent})
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func TestDeleteUserCascades(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := newStudent(t, s, "mia@example.com")
	sp, err := s.GetStudentByUserID(ctx, u.ID)
	require.NoError(t, err)
	require.NoError(t, s.CreateApplication(ctx, &models.Application{StudentID: sp.ID, Type: models.ApplicationVisa, Country: "DE", Status: models.ApplicationDraft}))
	require.NoError(t, s.CreateSession(ctx, &models.Session{UserID: u.ID, RefreshTokenHash: "h", ExpiresAt: time.Now().Add(time.Hour)}))

	require.NoError(t, s.DeleteUser(ctx, u.ID))

	_, err = s.GetStudent(ctx, sp.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	n, err := s.CountApplications(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, n)
	_, err = s.GetSession(ctx, "h")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSumPaymentsWindow(t *testing.T) {
	s := New()
	ctx := context.Background()
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return day })
	require.NoError(t, s.CreatePayment(ctx, &models.Payment{UserID: "u", Amount: 1000, Status: models.PaymentSuccess, ProviderID: "pi_1"}))
	require.NoError(t, s.CreatePayment(ctx, &models.Payment{UserID: "u", Amount: 500, Status: models.PaymentPending, ProviderID: "pi_2"}))
	s.SetClock(func() time.Time { return day.AddDate(0, 1, 0) })
	require.NoError(t, s.CreatePayment(ctx, &models.Payment{UserID: "u", Amount: 700, Status: models.PaymentSuccess, ProviderID: "pi_3"}))

	total, count, err := s.SumPayments(ctx, store.PaymentFilter{Status: models.PaymentSuccess})
	require.NoError(t, err)
	assert.Equal(t, int64(1700), total)
	assert.Equal(t, int64(2), count)

	march := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	total, _, err = s.SumPayments(ctx, store.PaymentFilter{Status: models.PaymentSuccess, From: march, To: march.AddDate(0, 1, 0)})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), total)
}

func TestDueTasks(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()
	soon, later := now.Add(2*time.Hour), now.Add(72*time.Hour)
	require.NoError(t, s.CreateTask(ctx, &models.Task{Title: "call", DueDate: &soon}))
	require.NoError(t, s.CreateTask(ctx, &models.Task{Title: "email", DueDate: &later}))
	require.NoError(t, s.CreateTask(ctx, &models.Task{Title: "done", DueDate: &soon, Completed: true}))

	due, err := s.DueTasks(ctx, now.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "call", due[0].Title)
}

func TestSessionPurges(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()
	a := newStudent(t, s, "a@example.com")
	b := newStudent(t, s, "b@example.com")
	require.NoError(t, s.CreateSession(ctx, &models.Session{UserID: a.ID, RefreshTokenHash: "a1", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, s.CreateSession(ctx, &models.Session{UserID: a.ID, RefreshTokenHash: "a2", ExpiresAt: now.Add(-time.Hour)}))
	require.NoError(t, s.CreateSession(ctx, &models.Session{UserID: b.ID, RefreshTokenHash: "b1", ExpiresAt: now.Add(time.Hour)}))

	n, err := s.DeleteExpiredSessions(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.DeleteUserSessions(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = s.GetSession(ctx, "b1")
	assert.NoError(t, err)
}
