package admission

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/formseva/formseva-backend/internal/storage"
)

var (
	ErrPDFNotReady = errors.New("application not found or incomplete")
	ErrPDFNotFound = errors.New("pdf not found")
)

const (
	pageMargin = 50.0
	a4Height   = 842.0
)

// PDFService renders the application into a single-page summary PDF and
// caches it in object storage. The cached copy is reused until the
// application or its step data changes.
type PDFService struct {
	db    *gorm.DB
	store storage.ObjectStore
	now   func() time.Time
}

func NewPDFService(db *gorm.DB, store storage.ObjectStore) *PDFService {
	return &PDFService{db: db, store: store, now: time.Now}
}

// Generate renders unconditionally, replacing any cached PDF.
func (p *PDFService) Generate(ctx context.Context, userID uuid.UUID) (*GeneratedPDF, error) {
	app, err := p.loadFull(ctx, userID)
	if err != nil {
		return nil, err
	}
	return p.buildAndSave(ctx, app)
}

// GetOrRender returns a stream of the current PDF, rendering first when the
// cached one is missing, its object was deleted, or the application changed
// after it was generated.
func (p *PDFService) GetOrRender(ctx context.Context, userID uuid.UUID) (*GeneratedPDF, io.ReadCloser, error) {
	var app Application
	err := p.db.WithContext(ctx).
		Preload("GeneratedPDF").
		Preload("StepData").
		Where("user_id = ?", userID).
		First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrPDFNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load application: %w", err)
	}

	objectExists := false
	if app.GeneratedPDF != nil {
		objectExists, err = p.store.Exists(ctx, app.GeneratedPDF.FilePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to check stored pdf: %w", err)
		}
	}

	var stepUpdated time.Time
	if app.StepData != nil {
		stepUpdated = app.StepData.UpdatedAt
	}

	pdf := app.GeneratedPDF
	if !shouldReuse(pdf, objectExists, app.UpdatedAt, stepUpdated) {
		full, err := p.loadFull(ctx, userID)
		if err != nil {
			return nil, nil, err
		}
		pdf, err = p.buildAndSave(ctx, full)
		if err != nil {
			return nil, nil, err
		}
	}

	stream, err := p.store.GetStream(ctx, pdf.FilePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open stored pdf: %w", err)
	}
	return pdf, stream, nil
}

// AdminStream serves a previously generated PDF without regenerating.
func (p *PDFService) AdminStream(ctx context.Context, applicationID uuid.UUID) (*GeneratedPDF, io.ReadCloser, error) {
	var pdf GeneratedPDF
	err := p.db.WithContext(ctx).Where("application_id = ?", applicationID).First(&pdf).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrPDFNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load pdf record: %w", err)
	}

	exists, err := p.store.Exists(ctx, pdf.FilePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check stored pdf: %w", err)
	}
	if !exists {
		return nil, nil, ErrPDFNotFound
	}

	stream, err := p.store.GetStream(ctx, pdf.FilePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open stored pdf: %w", err)
	}
	return &pdf, stream, nil
}

// shouldReuse decides whether a cached PDF is still current: its record and
// object must both exist, and nothing may have changed since it was
// generated.
func shouldReuse(pdf *GeneratedPDF, objectExists bool, appUpdated, stepUpdated time.Time) bool {
	if pdf == nil || !objectExists {
		return false
	}
	latest := appUpdated
	if stepUpdated.After(latest) {
		latest = stepUpdated
	}
	return !latest.After(pdf.GeneratedAt)
}

func (p *PDFService) loadFull(ctx context.Context, userID uuid.UUID) (*Application, error) {
	var app Application
	err := p.db.WithContext(ctx).
		Preload("StepData").
		Preload("Preferences", func(db *gorm.DB) *gorm.DB {
			return db.Order("preference_number ASC")
		}).
		Where("user_id = ?", userID).
		First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPDFNotReady
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load application: %w", err)
	}
	if app.StepData == nil {
		return nil, ErrPDFNotReady
	}
	return &app, nil
}

func (p *PDFService) buildAndSave(ctx context.Context, app *Application) (*GeneratedPDF, error) {
	data, err := p.render(ctx, app)
	if err != nil {
		return nil, err
	}

	fileName := fmt.Sprintf("application-%s-%d.pdf", app.ID, p.now().UnixMilli())
	key := fmt.Sprintf("pdfs/%s/%s", app.ID, fileName)
	if err := p.store.Put(ctx, key, data, "application/pdf"); err != nil {
		return nil, fmt.Errorf("failed to store pdf: %w", err)
	}

	now := p.now().UTC()
	var record GeneratedPDF
	err = p.db.WithContext(ctx).Where("application_id = ?", app.ID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		record = GeneratedPDF{
			ID:            uuid.New(),
			ApplicationID: app.ID,
			FilePath:      key,
			FileName:      fileName,
			FileSize:      int64(len(data)),
			GeneratedAt:   now,
		}
		if err := p.db.WithContext(ctx).Create(&record).Error; err != nil {
			return nil, fmt.Errorf("failed to record pdf: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to load pdf record: %w", err)
	} else {
		updates := map[string]interface{}{
			"file_path":    key,
			"file_name":    fileName,
			"file_size":    int64(len(data)),
			"generated_at": now,
		}
		if err := p.db.WithContext(ctx).Model(&record).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update pdf record: %w", err)
		}
		record.FilePath = key
		record.FileName = fileName
		record.FileSize = int64(len(data))
		record.GeneratedAt = now
	}

	return &record, nil
}

// pdfWriter tracks a descending text cursor on an A4 page.
type pdfWriter struct {
	doc *fpdf.Fpdf
	y   float64
}

// text truncates long values so a single over-long field cannot run off the
// page.
func (w *pdfWriter) text(s string, x, size float64, bold bool) {
	if len(s) > 80 {
		s = s[:77] + "..."
	}
	style := ""
	if bold {
		style = "B"
	}
	w.doc.SetFont("Helvetica", style, size)
	w.doc.Text(x, w.y, s)
	w.y += size + 5
}

func (p *PDFService) render(ctx context.Context, app *Application) ([]byte, error) {
	doc := fpdf.New("P", "pt", "A4", "")
	doc.SetAutoPageBreak(false, 0)
	doc.AddPage()

	w := &pdfWriter{doc: doc, y: a4Height - 800}
	data := app.StepData

	w.text("KERALA HSCAP APPENDIX-8 FORM", pageMargin, 16, true)
	w.y += 10

	w.text("1. QUALIFYING EXAMINATION", pageMargin, 12, true)
	if v := strv(data.ExamCode); v != "" {
		w.text("Exam Code: "+v, pageMargin+20, 10, false)
	}
	if v := strv(data.ExamName); v != "" {
		w.text("Exam Name: "+v, pageMargin+20, 10, false)
	}
	if v := strv(data.RegisterNumber); v != "" {
		w.text("Register Number: "+v, pageMargin+20, 10, false)
	}
	if data.PassingMonth != nil && data.PassingYear != nil {
		w.text(fmt.Sprintf("Passing: %d/%d", *data.PassingMonth, *data.PassingYear), pageMargin+20, 10, false)
	}
	if v := strv(data.SchoolCode); v != "" {
		w.text("School Code: "+v, pageMargin+20, 10, false)
	}
	if v := strv(data.SchoolName); v != "" {
		w.text("School Name: "+v, pageMargin+20, 10, false)
	}
	w.y += 10

	w.text("2. APPLICANT DETAILS", pageMargin, 12, true)
	if v := strv(data.ApplicantName); v != "" {
		w.text("Name: "+v, pageMargin+20, 10, false)
	}
	if v := strv(data.AadhaarNumber); v != "" {
		w.text("Aadhaar: "+v, pageMargin+20, 10, false)
	}
	if v := strv(data.Gender); v != "" {
		w.text("Gender: "+v, pageMargin+20, 10, false)
	}
	if v := strv(data.Category); v != "" {
		w.text(fmt.Sprintf("Category: %s (%s)", v, strv(data.CategoryCode)), pageMargin+20, 10, false)
	}
	if data.DateOfBirth != nil {
		w.text("DOB: "+data.DateOfBirth.Format("02/01/2006"), pageMargin+20, 10, false)
	}
	w.y += 10

	if len(app.Preferences) > 0 {
		w.text("SCHOOL PREFERENCES", pageMargin, 12, true)
		for _, pref := range app.Preferences {
			line := fmt.Sprintf("%d. School: %s, Combination: %s",
				pref.PreferenceNumber, pref.SchoolCode, pref.CombinationCode)
			w.text(line, pageMargin+20, 10, false)
		}
		w.y += 10
	}

	p.embedSignature(ctx, w, strv(data.ApplicantSignature), pageMargin, "Applicant Signature")
	p.embedSignature(ctx, w, strv(data.ParentSignature), pageMargin+200, "Parent/Guardian Signature")

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// embedSignature draws a stored signature image if the key resolves to a
// valid PNG. Any failure skips the signature rather than failing the render.
func (p *PDFService) embedSignature(ctx context.Context, w *pdfWriter, key string, x float64, label string) {
	if key == "" {
		return
	}
	exists, err := p.store.Exists(ctx, key)
	if err != nil || !exists {
		return
	}
	data, err := p.store.Get(ctx, key)
	if err != nil {
		return
	}
	// Probe before handing to fpdf; a bad image would poison the document.
	if _, err := png.DecodeConfig(bytes.NewReader(data)); err != nil {
		return
	}

	name := "sig-" + label
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	w.doc.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	w.doc.ImageOptions(name, x, w.y+20, 100, 30, false, opts, 0, "")
	w.text(label, x, 10, false)
	w.y += 60
}

func strv(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
