package students

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invictcrm/models"
	"invictcrm/pkg/apperr"
	"invictcrm/pkg/auth"
	"invictcrm/pkg/store/memstore"
)

func seed(t *testing.T, st *memstore.Store, first, last, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, FirstName: first, LastName: last, Role: models.RoleStudent,
		StudentProfile: &models.StudentProfile{Status: models.StudentNew}}
	require.NoError(t, st.CreateUser(context.Background(), u))
	return u
}

func newService(t *testing.T) (*Service, *memstore.Store) {
	st := memstore.New()
	return NewService(st, slog.New(slog.NewTextHandler(io.Discard, nil))), st
}

func TestListFiltersAndSearches(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	maria := seed(t, st, "Maria", "Rossi", "maria@example.com")
	seed(t, st, "Ahmed", "Khan", "ahmed@example.com")

	st.SetClock(func() time.Time { return time.Now().Add(time.Minute) })
	active := "ACTIVE"
	_, err := svc.Update(ctx, maria.StudentProfile.ID, UpdateInput{Status: &active})
	require.NoError(t, err)

	all, err := svc.List(ctx, "all", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, maria.StudentProfile.ID, all[0].ID, "most recently updated first")

	got, err := svc.List(ctx, "active", "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Maria", got[0].Owner.FirstName)

	got, err = svc.List(ctx, "", "KHAN")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ahmed@example.com", got[0].Owner.Email)

	_, err = svc.List(ctx, "GRADUATED", "")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestUpdateRecomputesReadiness(t *testing.T) {
	svc, st := newService(t)
	u := seed(t, st, "Maria", "Rossi", "maria@example.com")
	phone, nat := " +39 333 1234567 ", "Italian"

	sp, err := svc.Update(context.Background(), u.StudentProfile.ID, UpdateInput{Phone: &phone, Nationality: &nat})
	require.NoError(t, err)
	assert.Equal(t, "+39 333 1234567", sp.Phone)
	assert.Equal(t, 20, sp.ReadinessScore)
}

func TestUpdateErrors(t *testing.T) {
	svc, st := newService(t)
	u := seed(t, st, "Maria", "Rossi", "maria@example.com")
	bad := "LOST"
	_, err := svc.Update(context.Background(), u.StudentProfile.ID, UpdateInput{Status: &bad})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.Update(context.Background(), "missing", UpdateInput{})
	assert.Equal(t, "Student not found", apperr.Message(err))
}

func TestMe(t *testing.T) {
	svc, st := newService(t)
	u := seed(t, st, "Maria", "Rossi", "maria@example.com")

	sp, err := svc.Me(context.Background(), auth.Identity{UserID: u.ID, Role: models.RoleStudent})
	require.NoError(t, err)
	assert.Equal(t, u.StudentProfile.ID, sp.ID)

	staff := &models.User{Email: "staff@example.com", FirstName: "S", LastName: "T", Role: models.RoleStaff}
	require.NoError(t, st.CreateUser(context.Background(), staff))
	_, err = svc.Me(context.Background(), auth.Identity{UserID: staff.ID, Role: models.RoleStaff})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
