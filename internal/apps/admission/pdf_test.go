package admission

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func strp(s string) *string { return &s }

func createAppWithStepData(t *testing.T, db *gorm.DB, userID uuid.UUID) Application {
	t.Helper()
	app := createDraftApplication(t, db, userID)
	// Signature keys that resolve to nothing or to a non-image are skipped
	// by the renderer rather than failing it.
	sd := StepData{
		ID:                 uuid.New(),
		ApplicationID:      app.ID,
		ApplicantName:      strp("Anjali Nair"),
		ExamCode:           strp("1"),
		ExamName:           strp("SSLC (Kerala)"),
		ApplicantSignature: strp("uploads/missing-signature.png"),
		ParentSignature:    strp("uploads/garbage-signature.png"),
	}
	require.NoError(t, db.Create(&sd).Error)
	return app
}

func TestShouldReuse(t *testing.T) {
	base := time.Now().UTC()
	pdf := &GeneratedPDF{GeneratedAt: base}

	assert.False(t, shouldReuse(nil, true, base, base))
	assert.False(t, shouldReuse(pdf, false, base, base))

	assert.True(t, shouldReuse(pdf, true, base.Add(-time.Minute), time.Time{}))
	assert.True(t, shouldReuse(pdf, true, base, base))

	assert.False(t, shouldReuse(pdf, true, base.Add(time.Second), base))
	assert.False(t, shouldReuse(pdf, true, base, base.Add(time.Second)))
}

func TestGenerateRequiresStepData(t *testing.T) {
	db := setupTestDB(t)
	store := newMemStore()
	pdfs := NewPDFService(db, store)
	ctx := context.Background()

	_, err := pdfs.Generate(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrPDFNotReady)

	userID := uuid.New()
	createDraftApplication(t, db, userID)
	_, err = pdfs.Generate(ctx, userID)
	assert.ErrorIs(t, err, ErrPDFNotReady)
}

func TestGenerateRendersAndRecords(t *testing.T) {
	db := setupTestDB(t)
	store := newMemStore()
	pdfs := NewPDFService(db, store)
	ctx := context.Background()
	userID := uuid.New()
	app := createAppWithStepData(t, db, userID)
	require.NoError(t, store.Put(ctx, "uploads/garbage-signature.png", []byte("not a png"), "image/png"))

	record, err := pdfs.Generate(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, app.ID, record.ApplicationID)
	assert.Contains(t, record.FilePath, "pdfs/"+app.ID.String()+"/")

	data, err := store.Get(ctx, record.FilePath)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data[:4]))
	assert.Equal(t, int64(len(data)), record.FileSize)

	// Regenerating overwrites the single record rather than adding one.
	_, err = pdfs.Generate(ctx, userID)
	require.NoError(t, err)
	var count int64
	require.NoError(t, db.Model(&GeneratedPDF{}).Where("application_id = ?", app.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGetOrRenderReusesUntilStale(t *testing.T) {
	db := setupTestDB(t)
	store := newMemStore()
	pdfs := NewPDFService(db, store)
	ctx := context.Background()
	userID := uuid.New()
	app := createAppWithStepData(t, db, userID)

	renderedAt := time.Now().Add(time.Hour)
	pdfs.now = func() time.Time { return renderedAt }

	record, stream, err := pdfs.GetOrRender(ctx, userID)
	require.NoError(t, err)
	data, err := io.ReadAll(stream)
	require.NoError(t, err)
	require.NoError(t, stream.Close())
	assert.Equal(t, "%PDF", string(data[:4]))
	assert.Equal(t, 1, store.puts)

	// Nothing changed, so the cached copy is served.
	again, stream, err := pdfs.GetOrRender(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, stream.Close())
	assert.Equal(t, record.FilePath, again.FilePath)
	assert.Equal(t, 1, store.puts)

	// An application change after generation forces a re-render.
	require.NoError(t, db.Model(&Application{}).
		Where("id = ?", app.ID).
		UpdateColumn("updated_at", renderedAt.Add(time.Minute)).Error)
	pdfs.now = func() time.Time { return renderedAt.Add(2 * time.Hour) }

	fresh, stream, err := pdfs.GetOrRender(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, stream.Close())
	assert.Equal(t, 2, store.puts)
	assert.True(t, fresh.GeneratedAt.After(record.GeneratedAt))

	// A deleted object also forces a re-render even when timestamps agree.
	require.NoError(t, store.Delete(ctx, fresh.FilePath))
	_, stream, err = pdfs.GetOrRender(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, stream.Close())
	assert.Equal(t, 3, store.puts)
}

func TestAdminStream(t *testing.T) {
	db := setupTestDB(t)
	store := newMemStore()
	pdfs := NewPDFService(db, store)
	ctx := context.Background()
	userID := uuid.New()
	app := createAppWithStepData(t, db, userID)

	_, _, err := pdfs.AdminStream(ctx, app.ID)
	assert.ErrorIs(t, err, ErrPDFNotFound)

	record, err := pdfs.Generate(ctx, userID)
	require.NoError(t, err)

	got, stream, err := pdfs.AdminStream(ctx, app.ID)
	require.NoError(t, err)
	require.NoError(t, stream.Close())
	assert.Equal(t, record.FilePath, got.FilePath)

	// The record without its object is treated as missing, never regenerated.
	require.NoError(t, store.Delete(ctx, record.FilePath))
	_, _, err = pdfs.AdminStream(ctx, app.ID)
	assert.ErrorIs(t, err, ErrPDFNotFound)
}
