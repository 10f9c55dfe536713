package admission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"path"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/formseva/formseva-backend/internal/models"
	"github.com/formseva/formseva-backend/internal/services"
	"github.com/formseva/formseva-backend/internal/storage"
)

var (
	ErrApplicationNotFound = errors.New("application not found")
	ErrInvalidStep         = errors.New("invalid step number")
	ErrAlreadySubmitted    = errors.New("application already submitted")
	ErrPaymentRequired     = errors.New("payment required before submitting")
	ErrPreferencesRequired = errors.New("preferences array required")
	ErrNotesRequired       = errors.New("rejection notes required")
	ErrDocumentNotFound    = errors.New("document not found")
	ErrNotOwner            = errors.New("document belongs to another user")
)

type PreferenceInput struct {
	PreferenceNumber int    `json:"preferenceNumber"`
	SchoolCode       string `json:"schoolCode"`
	CombinationCode  string `json:"combinationCode"`
}

type Service struct {
	db            *gorm.DB
	store         storage.ObjectStore
	notifications *services.NotificationService
}

func NewService(db *gorm.DB, store storage.ObjectStore, notifications *services.NotificationService) *Service {
	return &Service{db: db, store: store, notifications: notifications}
}

// Current returns the user's application with all relations, or nil when the
// user has not started one.
func (s *Service) Current(ctx context.Context, userID uuid.UUID) (*Application, error) {
	var app Application
	err := s.db.WithContext(ctx).
		Preload("StepData").
		Preload("Preferences", func(db *gorm.DB) *gorm.DB {
			return db.Order("preference_number ASC")
		}).
		Preload("Documents").
		Preload("GeneratedPDF").
		Where("user_id = ?", userID).
		First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load application: %w", err)
	}
	return &app, nil
}

// View renders an application for API responses, with step data hydrated
// into the shape form clients expect.
func View(app *Application) map[string]interface{} {
	if app == nil {
		return nil
	}
	raw, err := json.Marshal(app)
	if err != nil {
		return nil
	}
	out := map[string]interface{}{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	if app.StepData != nil {
		out["stepData"] = HydrateStepData(app.StepData)
	}
	return out
}

// SaveStep normalizes and stores one step's payload, creating the
// application on first save. The tracked current step only moves forward:
// revisiting an earlier step never lowers it.
func (s *Service) SaveStep(ctx context.Context, userID uuid.UUID, step int, body map[string]interface{}) (int, map[string]interface{}, error) {
	if step < MinStep || step > MaxStep {
		return 0, nil, ErrInvalidStep
	}

	updates := NormalizeStepData(body)

	var app Application
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		app = Application{
			ID:          uuid.New(),
			UserID:      userID,
			Status:      StatusDraft,
			CurrentStep: step,
		}
		if err := s.db.WithContext(ctx).Create(&app).Error; err != nil {
			return 0, nil, fmt.Errorf("failed to create application: %w", err)
		}
	} else if err != nil {
		return 0, nil, fmt.Errorf("failed to load application: %w", err)
	} else {
		next := app.CurrentStep
		if step > next {
			next = step
		}
		// Always write so the application's updated_at reflects the save.
		err := s.db.WithContext(ctx).Model(&app).Update("current_step", next).Error
		if err != nil {
			return 0, nil, fmt.Errorf("failed to advance step: %w", err)
		}
		app.CurrentStep = next
	}

	var sd StepData
	err = s.db.WithContext(ctx).Where("application_id = ?", app.ID).First(&sd).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		sd = StepData{ID: uuid.New(), ApplicationID: app.ID}
		if err := s.db.WithContext(ctx).Create(&sd).Error; err != nil {
			return 0, nil, fmt.Errorf("failed to create step data: %w", err)
		}
	} else if err != nil {
		return 0, nil, fmt.Errorf("failed to load step data: %w", err)
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&sd).Updates(updates).Error; err != nil {
			return 0, nil, fmt.Errorf("failed to save step data: %w", err)
		}
		if err := s.db.WithContext(ctx).First(&sd, "id = ?", sd.ID).Error; err != nil {
			return 0, nil, fmt.Errorf("failed to reload step data: %w", err)
		}
	}

	return app.CurrentStep, HydrateStepData(&sd), nil
}

// ReplacePreferences swaps the application's ranked choices wholesale.
// Partial updates are not supported: the client always sends the full list.
func (s *Service) ReplacePreferences(ctx context.Context, userID uuid.UUID, prefs []PreferenceInput) error {
	if len(prefs) == 0 {
		return ErrPreferencesRequired
	}

	var app Application
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrApplicationNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load application: %w", err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("application_id = ?", app.ID).Delete(&Preference{}).Error; err != nil {
			return fmt.Errorf("failed to clear preferences: %w", err)
		}

		rows := make([]Preference, 0, len(prefs))
		for _, p := range prefs {
			rows = append(rows, Preference{
				ID:               uuid.New(),
				ApplicationID:    app.ID,
				PreferenceNumber: p.PreferenceNumber,
				SchoolCode:       p.SchoolCode,
				CombinationCode:  p.CombinationCode,
			})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to save preferences: %w", err)
		}

		if err := tx.Model(&app).Update("current_step", PreferencesStep).Error; err != nil {
			return fmt.Errorf("failed to advance step: %w", err)
		}
		return nil
	})
}

// Submit finalizes a draft. It requires a successful payment and flips the
// application to PENDING for admin review.
func (s *Service) Submit(ctx context.Context, userID uuid.UUID) (*Application, error) {
	var app Application
	err := s.db.WithContext(ctx).
		Preload("Payment").
		Where("user_id = ?", userID).
		First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrApplicationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load application: %w", err)
	}

	if app.Status != StatusDraft {
		return nil, ErrAlreadySubmitted
	}
	if app.Payment == nil || app.Payment.Status != PaymentSuccess {
		return nil, ErrPaymentRequired
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":       StatusPending,
		"submitted_at": now,
		"current_step": MaxStep,
	}
	if err := s.db.WithContext(ctx).Model(&app).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to submit application: %w", err)
	}
	app.Status = StatusPending
	app.SubmittedAt = &now
	app.CurrentStep = MaxStep

	s.notifications.Notify(ctx, userID,
		"Application Submitted",
		"Your application has been submitted successfully.",
		models.NotificationSubmitted)

	return &app, nil
}

// UploadDocument stores the file and records it against the application,
// creating the application if the user jumped straight to the upload step.
func (s *Service) UploadDocument(ctx context.Context, userID uuid.UUID, docType, fileName, mimeType string, data []byte) (*Document, error) {
	var app Application
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		app = Application{
			ID:          uuid.New(),
			UserID:      userID,
			Status:      StatusDraft,
			CurrentStep: DocumentsStep,
		}
		if err := s.db.WithContext(ctx).Create(&app).Error; err != nil {
			return nil, fmt.Errorf("failed to create application: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to load application: %w", err)
	}

	key := fmt.Sprintf("uploads/%s/%s-%d-%d%s",
		app.ID, docType, time.Now().UnixMilli(), rand.Int63n(1_000_000_000), path.Ext(fileName))
	if err := s.store.Put(ctx, key, data, mimeType); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	doc := Document{
		ID:            uuid.New(),
		ApplicationID: app.ID,
		Type:          docType,
		FilePath:      key,
		FileName:      fileName,
		FileSize:      int64(len(data)),
		MimeType:      mimeType,
	}
	if err := s.db.WithContext(ctx).Create(&doc).Error; err != nil {
		return nil, fmt.Errorf("failed to record document: %w", err)
	}
	return &doc, nil
}

func (s *Service) ListDocuments(ctx context.Context, userID uuid.UUID) ([]Document, error) {
	var app Application
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []Document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load application: %w", err)
	}

	var docs []Document
	if err := s.db.WithContext(ctx).Where("application_id = ?", app.ID).Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

func (s *Service) DeleteDocument(ctx context.Context, userID, docID uuid.UUID) error {
	var doc Document
	err := s.db.WithContext(ctx).First(&doc, "id = ?", docID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrDocumentNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load document: %w", err)
	}

	var app Application
	if err := s.db.WithContext(ctx).First(&app, "id = ?", doc.ApplicationID).Error; err != nil {
		return fmt.Errorf("failed to load application: %w", err)
	}
	if app.UserID != userID {
		return ErrNotOwner
	}

	if err := s.store.Delete(ctx, doc.FilePath); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to delete stored file: %w", err)
	}
	if err := s.db.WithContext(ctx).Delete(&doc).Error; err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// AdminList pages through applications, optionally filtered by status.
func (s *Service) AdminList(ctx context.Context, status string, page, limit int) ([]Application, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	q := s.db.WithContext(ctx).Model(&Application{})
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count applications: %w", err)
	}

	var apps []Application
	err := q.
		Preload("User").
		Preload("StepData").
		Preload("Preferences", func(db *gorm.DB) *gorm.DB {
			return db.Order("preference_number ASC")
		}).
		Preload("Documents").
		Preload("GeneratedPDF").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&apps).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list applications: %w", err)
	}
	return apps, total, nil
}

func (s *Service) AdminGet(ctx context.Context, id uuid.UUID) (*Application, error) {
	var app Application
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("StepData").
		Preload("Preferences", func(db *gorm.DB) *gorm.DB {
			return db.Order("preference_number ASC")
		}).
		Preload("Documents").
		Preload("GeneratedPDF").
		Preload("AdminActions", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		First(&app, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrApplicationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load application: %w", err)
	}
	return &app, nil
}

// Verify marks an application as checked by an admin and records the action.
func (s *Service) Verify(ctx context.Context, id, adminID uuid.UUID, notes *string) (*Application, error) {
	var app Application
	err := s.db.WithContext(ctx).First(&app, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrApplicationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load application: %w", err)
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":      StatusVerified,
		"verified_at": now,
		"verified_by": adminID,
	}
	if err := s.db.WithContext(ctx).Model(&app).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to verify application: %w", err)
	}
	app.Status = StatusVerified
	app.VerifiedAt = &now
	app.VerifiedBy = &adminID

	action := AdminAction{
		ID:            uuid.New(),
		ApplicationID: app.ID,
		AdminID:       adminID,
		Action:        ActionVerified,
		Notes:         notes,
	}
	if err := s.db.WithContext(ctx).Create(&action).Error; err != nil {
		return nil, fmt.Errorf("failed to record admin action: %w", err)
	}

	s.notifications.Notify(ctx, app.UserID,
		"Application Verified",
		"Your application has been verified by the admin.",
		models.NotificationVerified)

	return &app, nil
}

// Reject marks an application as rejected. Notes are mandatory so the
// applicant always sees a reason.
func (s *Service) Reject(ctx context.Context, id, adminID uuid.UUID, notes string) (*Application, error) {
	if notes == "" {
		return nil, ErrNotesRequired
	}

	var app Application
	err := s.db.WithContext(ctx).First(&app, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrApplicationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load application: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&app).Update("status", StatusRejected).Error; err != nil {
		return nil, fmt.Errorf("failed to reject application: %w", err)
	}
	app.Status = StatusRejected

	action := AdminAction{
		ID:            uuid.New(),
		ApplicationID: app.ID,
		AdminID:       adminID,
		Action:        ActionRejected,
		Notes:         &notes,
	}
	if err := s.db.WithContext(ctx).Create(&action).Error; err != nil {
		return nil, fmt.Errorf("failed to record admin action: %w", err)
	}

	s.notifications.Notify(ctx, app.UserID,
		"Application Rejected",
		"Your application has been rejected. Reason: "+notes,
		models.NotificationRejected)

	return &app, nil
}
