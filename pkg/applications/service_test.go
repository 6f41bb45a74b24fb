package applications

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invictcrm/models"
	"invictcrm/pkg/apperr"
	"invictcrm/pkg/auth"
	"invictcrm/pkg/events"
	"invictcrm/pkg/notify"
	"invictcrm/pkg/store/memstore"
)

type fixture struct {
	svc     *Service
	store   *memstore.Store
	rec     *notify.Recorder
	events  *events.Recorder
	user    *models.User
	student *models.StudentProfile
}

func setup(t *testing.T) fixture {
	t.Helper()
	st := memstore.New()
	u := &models.User{Email: "noor@example.com", FirstName: "Noor", LastName: "Haddad", Role: models.RoleStudent, StudentProfile: &models.StudentProfile{}}
	require.NoError(t, st.CreateUser(context.Background(), u))
	sp, err := st.GetStudentByUserID(context.Background(), u.ID)
	require.NoError(t, err)

	rec, ev := &notify.Recorder{}, &events.Recorder{}
	svc := NewService(st, rec, ev, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return fixture{svc: svc, store: st, rec: rec, events: ev, user: u, student: sp}
}

func (f fixture) create(t *testing.T) *models.Application {
	t.Helper()
	app, err := f.svc.Create(context.Background(), CreateInput{StudentID: f.student.ID, Type: "university", Country: "Germany", University: "TU Berlin"})
	require.NoError(t, err)
	return app
}

func status(s string) UpdateInput { return UpdateInput{Status: &s} }

func TestCreateStartsInDraft(t *testing.T) {
	f := setup(t)
	app, err := f.svc.Create(context.Background(), CreateInput{StudentID: f.student.ID, Type: "VISA", Country: "France", Status: "APPROVED", ChecklistItems: []string{"passport copy", " "}})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationDraft, app.Status)

	got, err := f.svc.FindOne(context.Background(), app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationDraft, got.Status)
	require.Len(t, got.ChecklistItems, 1)
	assert.Equal(t, "passport copy", got.ChecklistItems[0].Label)
}

func TestCreateValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateInput{StudentID: f.student.ID, Type: "MASTERS", Country: "DE"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.Create(ctx, CreateInput{StudentID: f.student.ID, Type: "VISA"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.Create(ctx, CreateInput{StudentID: "missing", Type: "VISA", Country: "DE"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, "Student not found", apperr.Message(err))
}

func TestSubmissionNotifiesOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	app := f.create(t)

	updated, err := f.svc.Update(ctx, app.ID, status("SUBMITTED"))
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationSubmitted, updated.Status)

	_, err = f.svc.Update(ctx, app.ID, status("SUBMITTED"))
	require.NoError(t, err)

	sent := f.rec.Named(notify.JobApplicationStatus)
	require.Len(t, sent, 1)
	assert.Equal(t, notify.ApplicationStatus{
		Email:         "noor@example.com",
		Name:          "Noor Haddad",
		ApplicationID: app.ID,
		University:    "TU Berlin",
		Status:        "SUBMITTED",
	}, sent[0].Payload)
	assert.Equal(t, []string{events.ApplicationStatusChanged}, f.events.Types())
}

func TestSubmissionNotifiesOnceFromEveryStatus(t *testing.T) {
	for _, from := range []string{"DRAFT", "DOCUMENTS_PENDING", "UNDER_REVIEW", "APPROVED", "REJECTED"} {
		t.Run(from, func(t *testing.T) {
			f := setup(t)
			ctx := context.Background()
			app := f.create(t)
			_, err := f.svc.Update(ctx, app.ID, status(from))
			require.NoError(t, err)

			_, err = f.svc.Update(ctx, app.ID, status("SUBMITTED"))
			require.NoError(t, err)
			_, err = f.svc.Update(ctx, app.ID, status("SUBMITTED"))
			require.NoError(t, err)

			assert.Len(t, f.rec.Named(notify.JobApplicationStatus), 1)
		})
	}
}

func TestResubmissionAfterLeavingSubmittedNotifiesAgain(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	app := f.create(t)
	for _, s := range []string{"SUBMITTED", "DOCUMENTS_PENDING", "SUBMITTED"} {
		_, err := f.svc.Update(ctx, app.ID, status(s))
		require.NoError(t, err)
	}
	assert.Len(t, f.rec.Named(notify.JobApplicationStatus), 2)
}

func TestOtherTransitionsDoNotNotify(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	app := f.create(t)
	for _, s := range []string{"DOCUMENTS_PENDING", "UNDER_REVIEW", "APPROVED"} {
		_, err := f.svc.Update(ctx, app.ID, status(s))
		require.NoError(t, err)
	}
	assert.Empty(t, f.rec.Sent())
}

func TestUpdateErrors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	app := f.create(t)

	_, err := f.svc.Update(ctx, app.ID, status("SHIPPED"))
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.Update(ctx, "missing", status("SUBMITTED"))
	assert.Equal(t, "Application not found", apperr.Message(err))
	assert.Empty(t, f.rec.Sent())
}

func TestFindOneForStudentScope(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	app := f.create(t)

	own, err := f.svc.FindOneFor(ctx, auth.Identity{UserID: f.user.ID, Role: models.RoleStudent}, app.ID)
	require.NoError(t, err)
	assert.Equal(t, app.ID, own.ID)

	_, err = f.svc.FindOneFor(ctx, auth.Identity{UserID: "someone-else", Role: models.RoleStudent}, app.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.svc.FindOneFor(ctx, auth.Identity{UserID: "staff", Role: models.RoleStaff}, app.ID)
	assert.NoError(t, err)
}

func TestFindAllIncludesStudentNames(t *testing.T) {
	f := setup(t)
	f.create(t)
	apps, err := f.svc.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, apps, 1)
	require.NotNil(t, apps[0].Student)
	require.NotNil(t, apps[0].Student.Owner)
	assert.Equal(t, "Noor", apps[0].Student.Owner.FirstName)
}
