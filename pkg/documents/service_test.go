package documents

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invictcrm/models"
	"invictcrm/pkg/apperr"
	"invictcrm/pkg/auth"
	"invictcrm/pkg/events"
	"invictcrm/pkg/notify"
	"invictcrm/pkg/storage"
	"invictcrm/pkg/store"
	"invictcrm/pkg/store/memstore"
)

type fixture struct {
	svc     *Service
	store   *memstore.Store
	objects *storage.Memory
	rec     *notify.Recorder
	student auth.Identity
	profile *models.StudentProfile
	staff   auth.Identity
}

func setup(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()
	u := &models.User{Email: "kemal@example.com", FirstName: "Kemal", LastName: "Aydin", Role: models.RoleStudent, StudentProfile: &models.StudentProfile{}}
	require.NoError(t, st.CreateUser(ctx, u))
	sp, err := st.GetStudentByUserID(ctx, u.ID)
	require.NoError(t, err)

	objects := storage.NewMemory("invict-academy")
	rec := &notify.Recorder{}
	svc := NewService(st, objects, rec, events.Nop{}, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return fixture{
		svc:     svc,
		store:   st,
		objects: objects,
		rec:     rec,
		student: auth.Identity{UserID: u.ID, Role: models.RoleStudent},
		profile: sp,
		staff:   auth.Identity{UserID: "staff-1", Role: models.RoleStaff},
	}
}

func TestInitializeBuildsKeyAndPendingRow(t *testing.T) {
	f := setup(t)
	up, err := f.svc.Initialize(context.Background(), f.student, InitializeInput{Filename: "my passport.pdf", MimeType: "application/pdf", Type: "passport"})
	require.NoError(t, err)

	assert.Equal(t, "students/"+f.profile.ID+"/1700000000000-my_passport.pdf", up.Document.StorageKey)
	assert.Equal(t, models.DocumentPending, up.Document.Status)
	assert.Equal(t, models.DocumentPassport, up.Document.Type)
	assert.Zero(t, up.Document.Size)
	assert.Equal(t, 3600, up.ExpiresIn)
	assert.Contains(t, up.UploadURL, "method=PUT")
}

func TestInitializeScopesStudents(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Initialize(ctx, f.student, InitializeInput{StudentID: "someone-else", Filename: "a.pdf"})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = f.svc.Initialize(ctx, f.staff, InitializeInput{Filename: "a.pdf"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.Initialize(ctx, f.staff, InitializeInput{StudentID: "missing", Filename: "a.pdf"})
	assert.Equal(t, "Student not found", apperr.Message(err))

	up, err := f.svc.Initialize(ctx, f.staff, InitializeInput{StudentID: f.profile.ID, Filename: "a.pdf"})
	require.NoError(t, err)
	assert.Equal(t, models.DocumentGeneral, up.Document.Type)
}

func TestConfirmRequiresObject(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	up, err := f.svc.Initialize(ctx, f.student, InitializeInput{Filename: "t.pdf", MimeType: "application/pdf"})
	require.NoError(t, err)

	_, err = f.svc.Confirm(ctx, f.student, up.Document.ID)
	assert.Equal(t, "upload not found in storage", apperr.Message(err))

	require.NoError(t, f.objects.Put(ctx, up.Document.StorageKey, "application/pdf", strings.NewReader("%PDF-1.7 body")))
	doc, err := f.svc.Confirm(ctx, f.student, up.Document.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(13), doc.Size)
	require.NotNil(t, doc.UploadedAt)
	assert.Empty(t, f.rec.Named(notify.JobProcessUpload), "pdfs are not thumbnailed")
}

func TestConfirmImageQueuesThumbnail(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	up, err := f.svc.Initialize(ctx, f.student, InitializeInput{Filename: "scan.png", MimeType: "image/png"})
	require.NoError(t, err)
	require.NoError(t, f.objects.Put(ctx, up.Document.StorageKey, "image/png", bytes.NewReader(pngBytes(t, 800, 600))))

	_, err = f.svc.Confirm(ctx, f.student, up.Document.ID)
	require.NoError(t, err)

	jobs := f.rec.Named(notify.JobProcessUpload)
	require.Len(t, jobs, 1)
	payload := jobs[0].Payload.(notify.ProcessUpload)
	require.NoError(t, f.svc.ProcessUpload(ctx, payload))

	doc, err := f.store.GetDocument(ctx, up.Document.ID)
	require.NoError(t, err)
	assert.Equal(t, ThumbnailKey(up.Document.StorageKey), doc.ThumbnailKey)

	rc, err := f.objects.Get(ctx, doc.ThumbnailKey)
	require.NoError(t, err)
	defer rc.Close()
	thumb, err := imaging.Decode(rc)
	require.NoError(t, err)
	assert.Equal(t, 320, thumb.Bounds().Dx())
	assert.Equal(t, 240, thumb.Bounds().Dy())
}

func TestConfirmTwiceKeepsFirstUpload(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	up, err := f.svc.Initialize(ctx, f.student, InitializeInput{Filename: "scan.png", MimeType: "image/png"})
	require.NoError(t, err)
	require.NoError(t, f.objects.Put(ctx, up.Document.StorageKey, "image/png", bytes.NewReader(pngBytes(t, 64, 48))))

	first, err := f.svc.Confirm(ctx, f.student, up.Document.ID)
	require.NoError(t, err)
	require.NotNil(t, first.UploadedAt)

	f.svc.now = func() time.Time { return time.UnixMilli(1700000900000) }
	again, err := f.svc.Confirm(ctx, f.student, up.Document.ID)
	require.NoError(t, err)
	assert.Equal(t, *first.UploadedAt, *again.UploadedAt)
	assert.Len(t, f.rec.Named(notify.JobProcessUpload), 1, "a repeated confirm queues nothing")

	// a new object under the same key is a new upload
	require.NoError(t, f.objects.Put(ctx, up.Document.StorageKey, "image/png", bytes.NewReader(pngBytes(t, 128, 96))))
	replaced, err := f.svc.Confirm(ctx, f.student, up.Document.ID)
	require.NoError(t, err)
	assert.True(t, replaced.UploadedAt.After(*first.UploadedAt))
	assert.Len(t, f.rec.Named(notify.JobProcessUpload), 2)
}

func TestProcessUploadSkipsMissingObject(t *testing.T) {
	f := setup(t)
	assert.NoError(t, f.svc.ProcessUpload(context.Background(), notify.ProcessUpload{DocumentID: "d", StorageKey: "gone"}))
}

func TestOtherStudentsDocumentsLookMissing(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	up, err := f.svc.Initialize(ctx, f.student, InitializeInput{Filename: "a.pdf"})
	require.NoError(t, err)

	other := &models.User{Email: "other@example.com", FirstName: "O", LastName: "T", Role: models.RoleStudent, StudentProfile: &models.StudentProfile{}}
	require.NoError(t, f.store.CreateUser(ctx, other))
	intruder := auth.Identity{UserID: other.ID, Role: models.RoleStudent}

	_, err = f.svc.GetURL(ctx, intruder, up.Document.ID)
	assert.Equal(t, "Document not found", apperr.Message(err))

	link, err := f.svc.GetURL(ctx, f.student, up.Document.ID)
	require.NoError(t, err)
	assert.Contains(t, link.URL, "method=GET")

	_, err = f.svc.GetURL(ctx, f.staff, "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestListScopes(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, err := f.svc.Initialize(ctx, f.student, InitializeInput{Filename: "a.pdf"})
	require.NoError(t, err)

	own, err := f.svc.List(ctx, f.student, "")
	require.NoError(t, err)
	assert.Len(t, own, 1)

	_, err = f.svc.List(ctx, f.student, "other")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	staffView, err := f.svc.List(ctx, f.staff, f.profile.ID)
	require.NoError(t, err)
	assert.Len(t, staffView, 1)
}

func TestReviewUpdatesReadiness(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	phone, nat := "+49 1", "German"
	_, err := f.store.UpdateStudent(ctx, f.profile.ID, storePatch(&phone, &nat))
	require.NoError(t, err)

	up, err := f.svc.Initialize(ctx, f.student, InitializeInput{Filename: "a.pdf"})
	require.NoError(t, err)

	_, err = f.svc.Review(ctx, up.Document.ID, ReviewInput{Status: "MAYBE"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	doc, err := f.svc.Review(ctx, up.Document.ID, ReviewInput{Status: "approved", Notes: "clear scan"})
	require.NoError(t, err)
	assert.Equal(t, models.DocumentApproved, doc.Status)
	assert.Equal(t, "clear scan", doc.ReviewNotes)

	sp, err := f.store.GetStudent(ctx, f.profile.ID)
	require.NoError(t, err)
	// 2 of 5 fields -> 20, 1 of minimum 3 docs -> 16.67
	assert.Equal(t, 36, sp.ReadinessScore)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "report_final.pdf", SanitizeFilename("report final.pdf"))
	assert.Equal(t, "passwd", SanitizeFilename("../../etc/passwd"))
	assert.Equal(t, "scan.png", SanitizeFilename(`C:\Users\me\scan.png`))
	assert.Equal(t, "file", SanitizeFilename(".."))
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func storePatch(phone, nationality *string) store.StudentPatch {
	return store.StudentPatch{Phone: phone, Nationality: nationality}
}
