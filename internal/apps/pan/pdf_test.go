package pan

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRequiresStepData(t *testing.T) {
	db := setupTestDB(t)
	store := newMemStore()
	pdfs := NewPDFService(db, store)
	ctx := context.Background()

	_, err := pdfs.Generate(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrPDFNotReady)
}

func TestGenerateRendersForm(t *testing.T) {
	db := setupTestDB(t)
	store := newMemStore()
	svc := NewService(db, store)
	pdfs := NewPDFService(db, store)
	ctx := context.Background()
	userID := uuid.New()

	app, err := svc.Save(ctx, userID, map[string]interface{}{
		"panApplicationType":   "NEW_PAN_INDIAN_49A",
		"panApplicantCategory": "INDIVIDUAL",
		"lastName":             "Nair",
		"firstName":            "Anu",
		"premisesVillage":      strings.Repeat("Thiruvananthapuram ", 12),
		"incomeFromSalary":     true,
		"declarationAccepted":  true,
	})
	require.NoError(t, err)

	// A photo whose object is gone and a signature that is not a decodable
	// image are both skipped, never fatal.
	require.NoError(t, db.Create(&Document{
		ID:               uuid.New(),
		PanApplicationID: app.ID,
		Purpose:          PurposePhoto,
		FilePath:         "pan-uploads/gone.png",
		FileName:         "gone.png",
		MimeType:         "image/png",
	}).Error)
	require.NoError(t, store.Put(ctx, "pan-uploads/garbage.png", []byte("not an image"), "image/png"))
	require.NoError(t, db.Create(&Document{
		ID:               uuid.New(),
		PanApplicationID: app.ID,
		Purpose:          PurposeSignature,
		FilePath:         "pan-uploads/garbage.png",
		FileName:         "garbage.png",
		MimeType:         "image/png",
	}).Error)

	record, err := pdfs.Generate(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, app.ID, record.PanApplicationID)
	assert.Contains(t, record.FilePath, "pan-pdfs/"+app.ID.String()+"/")

	data, err := store.Get(ctx, record.FilePath)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestGetOrRenderReusesUntilStale(t *testing.T) {
	db := setupTestDB(t)
	store := newMemStore()
	svc := NewService(db, store)
	pdfs := NewPDFService(db, store)
	ctx := context.Background()
	userID := uuid.New()

	app, err := svc.Save(ctx, userID, map[string]interface{}{"firstName": "Anu"})
	require.NoError(t, err)

	renderedAt := time.Now().Add(time.Hour)
	pdfs.now = func() time.Time { return renderedAt }

	record, stream, err := pdfs.GetOrRender(ctx, userID)
	require.NoError(t, err)
	data, err := io.ReadAll(stream)
	require.NoError(t, err)
	require.NoError(t, stream.Close())
	assert.Equal(t, "%PDF", string(data[:4]))
	assert.Equal(t, 1, store.puts)

	again, stream, err := pdfs.GetOrRender(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, stream.Close())
	assert.Equal(t, record.FilePath, again.FilePath)
	assert.Equal(t, 1, store.puts)

	// An edit after generation invalidates the cache.
	require.NoError(t, db.Model(&Application{}).
		Where("id = ?", app.ID).
		UpdateColumn("updated_at", renderedAt.Add(time.Minute)).Error)
	pdfs.now = func() time.Time { return renderedAt.Add(2 * time.Hour) }

	_, stream, err = pdfs.GetOrRender(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, stream.Close())
	assert.Equal(t, 2, store.puts)

	// So does a missing object.
	var current GeneratedPDF
	require.NoError(t, db.Where("pan_application_id = ?", app.ID).First(&current).Error)
	require.NoError(t, store.Delete(ctx, current.FilePath))

	_, stream, err = pdfs.GetOrRender(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, stream.Close())
	assert.Equal(t, 3, store.puts)
}
