package admission

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

	"github.com/formseva/formseva-backend/internal/models"
	"github.com/formseva/formseva-backend/internal/services"
	"github.com/formseva/formseva-backend/internal/storage"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Notification{},
		&Application{},
		&StepData{},
		&Preference{},
		&Document{},
		&GeneratedPDF{},
		&Payment{},
		&AdminAction{},
	)
	require.NoError(t, err)
	return db
}

// memStore is an in-memory ObjectStore that counts writes so tests can tell
// whether a render or upload actually happened.
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
	return NewService(db, store, services.NewNotificationService(db)), store, db
}

func TestSaveStepRejectsOutOfRangeSteps(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for _, step := range []int{0, -1, 14} {
		_, _, err := svc.SaveStep(ctx, uuid.New(), step, map[string]interface{}{})
		assert.ErrorIs(t, err, ErrInvalidStep)
	}
}

func TestSaveStepCreatesApplicationAndMergesSteps(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	current, data, err := svc.SaveStep(ctx, userID, 5, map[string]interface{}{
		"applicantName": "Anjali",
	})
	require.NoError(t, err)
	assert.Equal(t, 5, current)
	assert.Equal(t, "Anjali", data["applicantName"])

	// Revisiting an earlier step keeps the tracked step and earlier fields.
	current, data, err = svc.SaveStep(ctx, userID, 2, map[string]interface{}{
		"gender": "Female",
	})
	require.NoError(t, err)
	assert.Equal(t, 5, current)
	assert.Equal(t, "Anjali", data["applicantName"])
	assert.Equal(t, "Female", data["gender"])

	current, _, err = svc.SaveStep(ctx, userID, 9, map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, 9, current)

	app, err := svc.Current(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, app)
	assert.Equal(t, StatusDraft, app.Status)
	assert.Equal(t, 9, app.CurrentStep)
	require.NotNil(t, app.StepData)
}

func TestCurrentReturnsNilWithoutApplication(t *testing.T) {
	svc, _, _ := newTestService(t)

	app, err := svc.Current(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, app)
}

func TestReplacePreferencesSwapsWholesale(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	err := svc.ReplacePreferences(ctx, userID, []PreferenceInput{
		{PreferenceNumber: 1, SchoolCode: "14001", CombinationCode: "01"},
	})
	assert.ErrorIs(t, err, ErrApplicationNotFound)

	_, _, err = svc.SaveStep(ctx, userID, 1, map[string]interface{}{})
	require.NoError(t, err)

	err = svc.ReplacePreferences(ctx, userID, nil)
	assert.ErrorIs(t, err, ErrPreferencesRequired)

	err = svc.ReplacePreferences(ctx, userID, []PreferenceInput{
		{PreferenceNumber: 1, SchoolCode: "14001", CombinationCode: "01"},
		{PreferenceNumber: 2, SchoolCode: "14002", CombinationCode: "05"},
		{PreferenceNumber: 3, SchoolCode: "14003", CombinationCode: "02"},
	})
	require.NoError(t, err)

	err = svc.ReplacePreferences(ctx, userID, []PreferenceInput{
		{PreferenceNumber: 1, SchoolCode: "14005", CombinationCode: "07"},
		{PreferenceNumber: 2, SchoolCode: "14001", CombinationCode: "01"},
	})
	require.NoError(t, err)

	app, err := svc.Current(ctx, userID)
	require.NoError(t, err)
	require.Len(t, app.Preferences, 2)
	assert.Equal(t, "14005", app.Preferences[0].SchoolCode)
	assert.Equal(t, "14001", app.Preferences[1].SchoolCode)
	assert.Equal(t, PreferencesStep, app.CurrentStep)
}

func TestSubmitRequiresSuccessfulPayment(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Submit(ctx, userID)
	assert.ErrorIs(t, err, ErrApplicationNotFound)

	_, _, err = svc.SaveStep(ctx, userID, 13, map[string]interface{}{})
	require.NoError(t, err)

	_, err = svc.Submit(ctx, userID)
	assert.ErrorIs(t, err, ErrPaymentRequired)

	app, err := svc.Current(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, db.Create(&Payment{
		ID:            uuid.New(),
		ApplicationID: app.ID,
		OrderID:       "order_submit",
		Amount:        500,
		Status:        PaymentSuccess,
	}).Error)

	submitted, err := svc.Submit(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, submitted.Status)
	assert.NotNil(t, submitted.SubmittedAt)
	assert.Equal(t, MaxStep, submitted.CurrentStep)

	var notifications []models.Notification
	require.NoError(t, db.Where("user_id = ?", userID).Find(&notifications).Error)
	require.Len(t, notifications, 1)
	assert.Equal(t, models.NotificationSubmitted, notifications[0].Type)

	_, err = svc.Submit(ctx, userID)
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
}

func TestDocumentLifecycle(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	// Uploading before any step save creates the application.
	doc, err := svc.UploadDocument(ctx, userID, "sslc_certificate", "marks.pdf", "application/pdf", []byte("pdf-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "sslc_certificate", doc.Type)
	assert.Equal(t, int64(len("pdf-bytes")), doc.FileSize)
	assert.Contains(t, store.objects, doc.FilePath)

	app, err := svc.Current(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, app)
	assert.Equal(t, DocumentsStep, app.CurrentStep)
	assert.Contains(t, doc.FilePath, "uploads/"+app.ID.String()+"/")

	docs, err := svc.ListDocuments(ctx, userID)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	// A user with no application gets an empty list, not an error.
	docs, err = svc.ListDocuments(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, docs)

	err = svc.DeleteDocument(ctx, uuid.New(), doc.ID)
	assert.ErrorIs(t, err, ErrNotOwner)

	err = svc.DeleteDocument(ctx, userID, uuid.New())
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	require.NoError(t, svc.DeleteDocument(ctx, userID, doc.ID))
	assert.NotContains(t, store.objects, doc.FilePath)

	docs, err = svc.ListDocuments(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestVerifyRecordsActionAndNotifies(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	adminID := uuid.New()

	_, err := svc.Verify(ctx, uuid.New(), adminID, nil)
	assert.ErrorIs(t, err, ErrApplicationNotFound)

	_, _, err = svc.SaveStep(ctx, userID, 13, map[string]interface{}{})
	require.NoError(t, err)
	app, err := svc.Current(ctx, userID)
	require.NoError(t, err)

	notes := "all documents checked"
	verified, err := svc.Verify(ctx, app.ID, adminID, &notes)
	require.NoError(t, err)
	assert.Equal(t, StatusVerified, verified.Status)
	assert.NotNil(t, verified.VerifiedAt)
	require.NotNil(t, verified.VerifiedBy)
	assert.Equal(t, adminID, *verified.VerifiedBy)

	var actions []AdminAction
	require.NoError(t, db.Where("application_id = ?", app.ID).Find(&actions).Error)
	require.Len(t, actions, 1)
	assert.Equal(t, ActionVerified, actions[0].Action)
	assert.Equal(t, adminID, actions[0].AdminID)

	var notifications []models.Notification
	require.NoError(t, db.Where("user_id = ?", userID).Find(&notifications).Error)
	require.Len(t, notifications, 1)
	assert.Equal(t, models.NotificationVerified, notifications[0].Type)
}

func TestRejectRequiresNotes(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	adminID := uuid.New()

	_, _, err := svc.SaveStep(ctx, userID, 13, map[string]interface{}{})
	require.NoError(t, err)
	app, err := svc.Current(ctx, userID)
	require.NoError(t, err)

	_, err = svc.Reject(ctx, app.ID, adminID, "")
	assert.ErrorIs(t, err, ErrNotesRequired)

	rejected, err := svc.Reject(ctx, app.ID, adminID, "aadhaar number mismatch")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)

	var actions []AdminAction
	require.NoError(t, db.Where("application_id = ?", app.ID).Find(&actions).Error)
	require.Len(t, actions, 1)
	assert.Equal(t, ActionRejected, actions[0].Action)
	require.NotNil(t, actions[0].Notes)
	assert.Equal(t, "aadhaar number mismatch", *actions[0].Notes)

	var notifications []models.Notification
	require.NoError(t, db.Where("user_id = ?", userID).Find(&notifications).Error)
	require.Len(t, notifications, 1)
	assert.Contains(t, notifications[0].Message, "aadhaar number mismatch")
}

func TestAdminListFiltersAndPages(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := svc.SaveStep(ctx, uuid.New(), 1, map[string]interface{}{})
		require.NoError(t, err)
	}
	var first Application
	require.NoError(t, db.First(&first).Error)
	require.NoError(t, db.Model(&first).Update("status", StatusPending).Error)

	apps, total, err := svc.AdminList(ctx, "", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, apps, 3)

	apps, total, err = svc.AdminList(ctx, StatusPending, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, apps, 1)
	assert.Equal(t, StatusPending, apps[0].Status)

	apps, total, err = svc.AdminList(ctx, "", 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, apps, 1)
}
