package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"invictcrm/models"
)

func TestMapErr(t *testing.T) {
	assert.NoError(t, mapErr(nil))
	assert.ErrorIs(t, mapErr(gorm.ErrRecordNotFound), ErrNotFound)
	assert.ErrorIs(t, mapErr(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "idx_users_email"})), ErrDuplicate)
	assert.ErrorIs(t, mapErr(gorm.ErrDuplicatedKey), ErrDuplicate)
	assert.ErrorIs(t, mapErr(&pgconn.PgError{Code: "23503"}), ErrInvalidReference)
	assert.ErrorIs(t, mapErr(fmt.Errorf("select: %w", &pgconn.PgError{Code: "22P02", Message: `invalid input syntax for type uuid: "abc"`})), ErrNotFound)

	other := errors.New("connection reset")
	assert.Equal(t, other, mapErr(other))
}

func TestLikePatternEscapes(t *testing.T) {
	assert.Equal(t, "%ann%", likePattern("ann"))
	assert.Equal(t, `%50\%\_off%`, likePattern("50%_off"))
}

// openTestDB connects to the database named by DB_DSN. Run with DB_DSN_TEST=1.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("set DB_DSN_TEST=1 and DB_DSN to run store integration tests")
	}
	db, err := Open(os.Getenv("DB_DSN"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background(), slog.Default()))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDBLeadLifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	tag := fmt.Sprintf("it-%d", time.Now().UnixNano())
	lead := &models.Lead{FirstName: "Ana", LastName: tag, Email: tag + "@example.com", Status: models.LeadNew, Destinations: []string{"DE", "FR"}}
	require.NoError(t, db.CreateLead(ctx, lead))
	t.Cleanup(func() { _ = db.DeleteLead(ctx, lead.ID) })

	found, err := db.ListLeads(ctx, LeadFilter{Search: tag})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, []string{"DE", "FR"}, []string(found[0].Destinations))

	status := models.LeadQualified
	updated, err := db.UpdateLead(ctx, lead.ID, LeadPatch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, models.LeadQualified, updated.Status)

	_, err = db.GetLead(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.GetLead(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDBDuplicateEmail(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	email := fmt.Sprintf("dup-%d@example.com", time.Now().UnixNano())
	first := &models.User{Email: email, PasswordHash: []byte("x"), FirstName: "A", LastName: "B", Role: models.RoleStudent, StudentProfile: &models.StudentProfile{Status: models.StudentNew}}
	require.NoError(t, db.CreateUser(ctx, first))
	t.Cleanup(func() { _ = db.DeleteUser(ctx, first.ID) })

	second := &models.User{Email: email, PasswordHash: []byte("x"), FirstName: "C", LastName: "D", Role: models.RoleStudent}
	assert.ErrorIs(t, db.CreateUser(ctx, second), ErrDuplicate)

	sp, err := db.GetStudentByUserID(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, sp.Owner)
	assert.Equal(t, email, sp.Owner.Email)
}

func TestDBClaimTaskReminder(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	due := time.Now().Add(time.Hour)
	task := &models.Task{Title: fmt.Sprintf("claim-%d", time.Now().UnixNano()), DueDate: &due}
	require.NoError(t, db.CreateTask(ctx, task))
	t.Cleanup(func() { db.db.Delete(&models.Task{}, "id = ?", task.ID) })

	ok, err := db.ClaimTaskReminder(ctx, task.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = db.ClaimTaskReminder(ctx, task.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, ok, "second claim loses")

	require.NoError(t, db.ReleaseTaskReminder(ctx, task.ID))
	got, err := db.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Nil(t, got.RemindedAt)
}
