package pan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"path"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/formseva/formseva-backend/internal/storage"
)

var (
	ErrNotFound         = errors.New("pan application not found")
	ErrAlreadySubmitted = errors.New("pan application already submitted")
	ErrInvalidAppType   = errors.New("invalid PAN application type")
	ErrInvalidCategory  = errors.New("invalid PAN applicant category")
	ErrInvalidPOI       = errors.New("invalid Proof of Identity document type")
	ErrInvalidPOA       = errors.New("invalid Proof of Address document type")
	ErrInvalidPOB       = errors.New("invalid Proof of Date of Birth document type")
	ErrInvalidPurpose   = errors.New("valid purpose required: PAN_POI, PAN_POA, PAN_DOB, PAN_PHOTO, PAN_SIGNATURE")
	ErrDocumentNotFound = errors.New("document not found")
	ErrDocumentNotOwned = errors.New("document belongs to another user")
)

type Service struct {
	db    *gorm.DB
	store storage.ObjectStore
}

func NewService(db *gorm.DB, store storage.ObjectStore) *Service {
	return &Service{db: db, store: store}
}

// Current returns the user's PAN application with relations, or nil when
// none exists.
func (s *Service) Current(ctx context.Context, userID uuid.UUID) (*Application, error) {
	var app Application
	err := s.db.WithContext(ctx).
		Preload("Documents").
		Preload("GeneratedPDF").
		Where("user_id = ?", userID).
		First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pan application: %w", err)
	}
	return &app, nil
}

// Save merges a step payload flat into the application's step data,
// creating the application on first save. Enum-valued fields are validated;
// everything else is stored as sent.
func (s *Service) Save(ctx context.Context, userID uuid.UUID, payload map[string]interface{}) (*Application, error) {
	if err := validateEnums(payload); err != nil {
		return nil, err
	}

	var app Application
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&app).Error
	notFound := errors.Is(err, gorm.ErrRecordNotFound)
	if err != nil && !notFound {
		return nil, fmt.Errorf("failed to load pan application: %w", err)
	}

	merged := map[string]interface{}{}
	if !notFound && len(app.StepData) > 0 {
		if err := json.Unmarshal(app.StepData, &merged); err != nil {
			merged = map[string]interface{}{}
		}
	}
	for k, v := range payload {
		merged[k] = v
	}
	raw, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("failed to encode step data: %w", err)
	}

	if notFound {
		app = Application{
			ID:       uuid.New(),
			UserID:   userID,
			Status:   StatusDraft,
			StepData: datatypes.JSON(raw),
		}
		if err := s.db.WithContext(ctx).Create(&app).Error; err != nil {
			return nil, fmt.Errorf("failed to create pan application: %w", err)
		}
	} else {
		if err := s.db.WithContext(ctx).Model(&app).Update("step_data", datatypes.JSON(raw)).Error; err != nil {
			return nil, fmt.Errorf("failed to save pan application: %w", err)
		}
		app.StepData = datatypes.JSON(raw)
	}

	return s.Current(ctx, userID)
}

func validateEnums(payload map[string]interface{}) error {
	checks := []struct {
		key   string
		valid map[string]bool
		err   error
	}{
		{"panApplicationType", applicationTypes, ErrInvalidAppType},
		{"panApplicantCategory", applicantCategories, ErrInvalidCategory},
		{"proofOfIdentity", poiTypes, ErrInvalidPOI},
		{"proofOfAddress", poaTypes, ErrInvalidPOA},
		{"proofOfDob", pobTypes, ErrInvalidPOB},
	}
	for _, c := range checks {
		if v, ok := payload[c.key]; ok && v != nil {
			if !c.valid[fmt.Sprint(v)] {
				return c.err
			}
		}
	}
	return nil
}

// Submit marks a draft as submitted. There is no payment gate: PAN
// applications are free to file through this app.
func (s *Service) Submit(ctx context.Context, userID uuid.UUID) (*Application, error) {
	var app Application
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pan application: %w", err)
	}

	if app.Status != StatusDraft {
		return nil, ErrAlreadySubmitted
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":       StatusSubmitted,
		"submitted_at": now,
	}
	if err := s.db.WithContext(ctx).Model(&app).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to submit pan application: %w", err)
	}

	return s.Current(ctx, userID)
}

// UploadDocument stores the file against the named purpose, creating the
// application if the user uploads before saving any step.
func (s *Service) UploadDocument(ctx context.Context, userID uuid.UUID, purpose, fileName, mimeType string, data []byte) (*Document, error) {
	if !validPurposes[purpose] {
		return nil, ErrInvalidPurpose
	}

	var app Application
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		app = Application{ID: uuid.New(), UserID: userID, Status: StatusDraft}
		if err := s.db.WithContext(ctx).Create(&app).Error; err != nil {
			return nil, fmt.Errorf("failed to create pan application: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to load pan application: %w", err)
	}

	key := fmt.Sprintf("pan-uploads/%s/%s-%d-%d%s",
		app.ID, purpose, time.Now().UnixMilli(), rand.Int63n(1_000_000_000), path.Ext(fileName))
	if err := s.store.Put(ctx, key, data, mimeType); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	doc := Document{
		ID:               uuid.New(),
		PanApplicationID: app.ID,
		Purpose:          purpose,
		FilePath:         key,
		FileName:         fileName,
		FileSize:         int64(len(data)),
		MimeType:         mimeType,
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
		return nil, fmt.Errorf("failed to load pan application: %w", err)
	}

	var docs []Document
	if err := s.db.WithContext(ctx).Where("pan_application_id = ?", app.ID).Find(&docs).Error; err != nil {
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
	if err := s.db.WithContext(ctx).First(&app, "id = ?", doc.PanApplicationID).Error; err != nil {
		return fmt.Errorf("failed to load pan application: %w", err)
	}
	if app.UserID != userID {
		return ErrDocumentNotOwned
	}

	if err := s.store.Delete(ctx, doc.FilePath); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to delete stored file: %w", err)
	}
	if err := s.db.WithContext(ctx).Delete(&doc).Error; err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// StepDataMap decodes the stored step data for prompts and rendering.
func (a *Application) StepDataMap() map[string]interface{} {
	out := map[string]interface{}{}
	if len(a.StepData) > 0 {
		_ = json.Unmarshal(a.StepData, &out)
	}
	return out
}
