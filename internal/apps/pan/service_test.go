package pan

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/formseva/formseva-backend/internal/storage"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&Application{}, &Document{}, &GeneratedPDF{})
	require.NoError(t, err)
	return db
}

type memStore struct {
	objects map[string][]byte
	puts    int
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (m *memStore) Put(_ context.Context, key string, data []byte, _ string) error {
	m.puts++
	m.objects[key] = data
	return nil
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

func (m *memStore) GetStream(ctx context.Context, key string) (io.ReadCloser, error) {
	data, err := m.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStore) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	if _, ok := m.objects[key]; !ok {
		return storage.ErrNotFound
	}
	delete(m.objects, key)
	return nil
}

func newTestService(t *testing.T) (*Service, *memStore, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	store := newMemStore()
	return NewService(db, store), store, db
}

func TestSaveMergesStepDataFlat(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	app, err := svc.Save(ctx, userID, map[string]interface{}{
		"lastName":           "Nair",
		"panApplicationType": "NEW_PAN_INDIAN_49A",
	})
	require.NoError(t, err)
	require.NotNil(t, app)
	assert.Equal(t, StatusDraft, app.Status)

	app, err = svc.Save(ctx, userID, map[string]interface{}{
		"firstName": "Anu",
		"lastName":  "Menon",
	})
	require.NoError(t, err)

	data := app.StepDataMap()
	assert.Equal(t, "Anu", data["firstName"])
	assert.Equal(t, "Menon", data["lastName"])
	assert.Equal(t, "NEW_PAN_INDIAN_49A", data["panApplicationType"])
}

func TestSaveValidatesEnumFields(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		key   string
		value string
		err   error
	}{
		{"panApplicationType", "NEW_PAN_MARTIAN", ErrInvalidAppType},
		{"panApplicantCategory", "ROBOT", ErrInvalidCategory},
		{"proofOfIdentity", "UTILITY_BILL", ErrInvalidPOI},
		{"proofOfAddress", "SELFIE", ErrInvalidPOA},
		{"proofOfDob", "HOROSCOPE", ErrInvalidPOB},
	}
	for _, c := range cases {
		_, err := svc.Save(ctx, uuid.New(), map[string]interface{}{c.key: c.value})
		assert.ErrorIs(t, err, c.err, c.key)
	}

	// Valid values and explicit nulls pass through.
	_, err := svc.Save(ctx, uuid.New(), map[string]interface{}{
		"panApplicationType":   "NEW_PAN_INDIAN_49A",
		"panApplicantCategory": "INDIVIDUAL",
		"proofOfIdentity":      "AADHAAR_CARD",
		"proofOfAddress":       nil,
	})
	require.NoError(t, err)
}

func TestCurrentReturnsNilWithoutApplication(t *testing.T) {
	svc, _, _ := newTestService(t)

	app, err := svc.Current(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, app)
}

func TestSubmitOnlyOnce(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Submit(ctx, userID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Save(ctx, userID, map[string]interface{}{"firstName": "Anu"})
	require.NoError(t, err)

	app, err := svc.Submit(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, app.Status)
	assert.NotNil(t, app.SubmittedAt)

	_, err = svc.Submit(ctx, userID)
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
}

func TestUploadDocumentValidatesPurpose(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.UploadDocument(context.Background(), uuid.New(), "PAN_SELFIE", "me.jpg", "image/jpeg", []byte("jpg"))
	assert.ErrorIs(t, err, ErrInvalidPurpose)
}

func TestDocumentLifecycle(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	// Uploading before any save creates the draft application.
	doc, err := svc.UploadDocument(ctx, userID, PurposePhoto, "photo.png", "image/png", []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, PurposePhoto, doc.Purpose)
	assert.Contains(t, store.objects, doc.FilePath)

	app, err := svc.Current(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, app)
	assert.Contains(t, doc.FilePath, "pan-uploads/"+app.ID.String()+"/"+PurposePhoto+"-")

	docs, err := svc.ListDocuments(ctx, userID)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	docs, err = svc.ListDocuments(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, docs)

	err = svc.DeleteDocument(ctx, uuid.New(), doc.ID)
	assert.ErrorIs(t, err, ErrDocumentNotOwned)

	err = svc.DeleteDocument(ctx, userID, uuid.New())
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	require.NoError(t, svc.DeleteDocument(ctx, userID, doc.ID))
	assert.NotContains(t, store.objects, doc.FilePath)
}
