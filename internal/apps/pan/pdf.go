package pan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"
	"time"

	_ "image/jpeg"
	_ "image/png"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/formseva/formseva-backend/internal/storage"
)

var (
	ErrPDFNotReady = errors.New("pan application not found or incomplete")
	ErrPDFNotFound = errors.New("pdf not found")
)

const (
	pageMargin = 50.0
	a4Height   = 842.0
)

var applicationTypeLabels = map[string]string{
	"NEW_PAN_INDIAN_49A":    "New PAN - Indian Citizen (Form 49A)",
	"NEW_PAN_FOREIGN_49AA":  "New PAN - Foreign Citizen (Form 49AA)",
	"PAN_CHANGE_OR_REPRINT": "Changes or Correction in existing PAN Data / Reprint of PAN Card (No changes in existing PAN Data)",
}

var applicantCategoryLabels = map[string]string{
	"INDIVIDUAL":                    "INDIVIDUAL",
	"ASSOCIATION_OF_PERSONS":        "ASSOCIATION OF PERSONS",
	"BODY_OF_INDIVIDUALS":           "BODY OF INDIVIDUALS",
	"COMPANY":                       "COMPANY",
	"TRUST":                         "TRUST",
	"LIMITED_LIABILITY_PARTNERSHIP": "LIMITED LIABILITY PARTNERSHIP",
	"FIRM":                          "FIRM",
	"GOVERNMENT":                    "GOVERNMENT",
	"HINDU_UNDIVIDED_FAMILY":        "HINDU UNDIVIDED FAMILY",
	"ARTIFICIAL_JURIDICAL_PERSON":   "ARTIFICIAL JURIDICAL PERSON",
	"LOCAL_AUTHORITY":               "LOCAL AUTHORITY",
}

// Checkbox keys and their printed labels for source of income. Order matters
// for stable output.
var incomeSourceKeys = []string{
	"incomeFromSalary",
	"incomeFromHouseProperty",
	"incomeFromBusinessProfession",
	"incomeFromOtherSources",
	"incomeFromCapitalGains",
	"incomeNoIncome",
}

var incomeSourceLabels = map[string]string{
	"incomeFromSalary":             "Salary",
	"incomeFromHouseProperty":      "Income from House property",
	"incomeFromBusinessProfession": "Income from Business / Profession",
	"incomeFromOtherSources":       "Income from Other sources",
	"incomeFromCapitalGains":       "Capital Gains",
	"incomeNoIncome":               "No income",
}

var poiLabels = map[string]string{
	"AADHAAR_CARD":           "Aadhaar Card",
	"VOTER_ID":               "Voter ID",
	"PASSPORT":               "Passport",
	"DRIVING_LICENSE":        "Driving License",
	"RATION_CARD_WITH_PHOTO": "Ration Card with Photo",
	"GOVT_PHOTO_ID":          "Photo ID issued by Govt",
	"ARMS_LICENSE":           "Arm's License",
	"PENSIONER_CARD":         "Pensioner Card",
}

var poaLabels = map[string]string{
	"AADHAAR_CARD":         "Aadhaar Card",
	"ELECTRICITY_BILL_3M":  "Electricity Bill (<= 3 months old)",
	"WATER_BILL_3M":        "Water Bill (<= 3 months old)",
	"BANK_STATEMENT_3M":    "Bank Statement (<= 3 months old)",
	"PASSPORT":             "Passport",
	"VOTER_ID":             "Voter ID",
	"DRIVING_LICENSE":      "Driving License",
	"POST_OFFICE_PASSBOOK": "Post Office Passbook",
}

var pobLabels = map[string]string{
	"BIRTH_CERTIFICATE":         "Birth Certificate",
	"SSLC_CERTIFICATE":          "SSLC/10th Certificate",
	"PASSPORT":                  "Passport",
	"DRIVING_LICENSE":           "Driving License",
	"AADHAAR_CARD":              "Aadhaar Card",
	"MATRICULATION_CERTIFICATE": "Matriculation Certificate",
}

// PDFService renders the Form 49A summary PDF and caches it in object
// storage until the application changes.
type PDFService struct {
	db    *gorm.DB
	store storage.ObjectStore
	now   func() time.Time
}

func NewPDFService(db *gorm.DB, store storage.ObjectStore) *PDFService {
	return &PDFService{db: db, store: store, now: time.Now}
}

func (p *PDFService) Generate(ctx context.Context, userID uuid.UUID) (*GeneratedPDF, error) {
	app, err := p.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return p.buildAndSave(ctx, app)
}

func (p *PDFService) GetOrRender(ctx context.Context, userID uuid.UUID) (*GeneratedPDF, io.ReadCloser, error) {
	app, err := p.load(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	objectExists := false
	if app.GeneratedPDF != nil {
		objectExists, err = p.store.Exists(ctx, app.GeneratedPDF.FilePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to check stored pdf: %w", err)
		}
	}

	pdf := app.GeneratedPDF
	if pdf == nil || !objectExists || app.UpdatedAt.After(pdf.GeneratedAt) {
		pdf, err = p.buildAndSave(ctx, app)
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

func (p *PDFService) load(ctx context.Context, userID uuid.UUID) (*Application, error) {
	var app Application
	err := p.db.WithContext(ctx).
		Preload("Documents").
		Preload("GeneratedPDF").
		Where("user_id = ?", userID).
		First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPDFNotReady
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pan application: %w", err)
	}
	if len(app.StepData) == 0 {
		return nil, ErrPDFNotReady
	}
	return &app, nil
}

func (p *PDFService) buildAndSave(ctx context.Context, app *Application) (*GeneratedPDF, error) {
	data, err := p.render(ctx, app)
	if err != nil {
		return nil, err
	}

	fileName := fmt.Sprintf("pan-%s-%d.pdf", app.ID, p.now().UnixMilli())
	key := fmt.Sprintf("pan-pdfs/%s/%s", app.ID, fileName)
	if err := p.store.Put(ctx, key, data, "application/pdf"); err != nil {
		return nil, fmt.Errorf("failed to store pdf: %w", err)
	}

	now := p.now().UTC()
	var record GeneratedPDF
	err = p.db.WithContext(ctx).Where("pan_application_id = ?", app.ID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		record = GeneratedPDF{
			ID:               uuid.New(),
			PanApplicationID: app.ID,
			FilePath:         key,
			FileName:         fileName,
			FileSize:         int64(len(data)),
			GeneratedAt:      now,
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

type pdfWriter struct {
	doc *fpdf.Fpdf
	y   float64
}

// text truncates long values so a single over-long field cannot run off the
// page.
func (w *pdfWriter) text(s string, x, size float64, bold bool) {
	if s == "" {
		return
	}
	if len(s) > 80 {
		s = s[:77] + "..."
	}
	style := ""
	if bold {
		style = "B"
	}
	w.doc.SetFont("Helvetica", style, size)
	w.doc.Text(x, w.y, s)
	w.y += size + 4
}

func field(data map[string]interface{}, key string) string {
	v, ok := data[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func label(m map[string]string, raw string) string {
	if raw == "" {
		return ""
	}
	if l, ok := m[raw]; ok {
		return l
	}
	return raw
}

func (p *PDFService) render(ctx context.Context, app *Application) ([]byte, error) {
	doc := fpdf.New("P", "pt", "A4", "")
	doc.SetAutoPageBreak(false, 0)
	doc.AddPage()

	w := &pdfWriter{doc: doc, y: a4Height - 820}
	data := app.StepDataMap()

	w.text("APPLICATION FOR ALLOTMENT OF PERMANENT ACCOUNT NUMBER (Form 49A)", pageMargin, 14, true)
	w.y += 8

	w.text("Application type: "+label(applicationTypeLabels, field(data, "panApplicationType")), pageMargin, 10, false)
	w.text("Applicant category: "+label(applicantCategoryLabels, field(data, "panApplicantCategory")), pageMargin, 10, false)
	w.y += 4

	w.text("1. APPLICANT & NAME", pageMargin, 12, true)
	w.text(strings.TrimSpace(fmt.Sprintf("Name: %s %s %s",
		field(data, "lastName"), field(data, "firstName"), field(data, "middleName"))), pageMargin+15, 10, false)
	w.text(strings.TrimSpace(fmt.Sprintf("Father: %s %s %s",
		field(data, "fatherLastName"), field(data, "fatherFirstName"), field(data, "fatherMiddleName"))), pageMargin+15, 10, false)
	w.text(strings.TrimSpace(fmt.Sprintf("Mother: %s %s %s",
		field(data, "motherLastName"), field(data, "motherFirstName"), field(data, "motherMiddleName"))), pageMargin+15, 10, false)
	w.y += 8

	w.text("2. PERSONAL & CONTACT", pageMargin, 12, true)
	w.text("DOB: "+field(data, "dateOfBirth"), pageMargin+15, 10, false)
	w.text("Gender: "+field(data, "gender"), pageMargin+15, 10, false)
	w.text(fmt.Sprintf("Mobile: %s %s", field(data, "mobileCountryCode"), field(data, "mobileNumber")), pageMargin+15, 10, false)
	w.text("Email: "+field(data, "email"), pageMargin+15, 10, false)
	w.text("Address for communication: "+field(data, "addressForCommunication"), pageMargin+15, 10, false)
	var sources []string
	for _, key := range incomeSourceKeys {
		if v, ok := data[key]; ok && truthy(v) {
			sources = append(sources, incomeSourceLabels[key])
		}
	}
	if len(sources) > 0 {
		w.text("Source of Income: "+strings.Join(sources, ", "), pageMargin+15, 10, false)
	}
	if bp := field(data, "businessProfessionCode"); bp != "" {
		w.text("Business/Profession code: "+bp, pageMargin+15, 10, false)
	}
	w.y += 8

	w.text("3. ADDRESS", pageMargin, 12, true)
	w.text("Premises: "+field(data, "premisesVillage"), pageMargin+15, 10, false)
	w.text("Road: "+field(data, "roadStreetLane"), pageMargin+15, 10, false)
	w.text("Area: "+field(data, "areaLocalityTaluk"), pageMargin+15, 10, false)
	w.text("Town/City: "+field(data, "townCityDistrict"), pageMargin+15, 10, false)
	w.text(fmt.Sprintf("State: %s  Pincode: %s  Country: %s",
		field(data, "state"), field(data, "pincode"), field(data, "country")), pageMargin+15, 10, false)
	if field(data, "officePremisesVillage") != "" {
		w.text("Office:", pageMargin+15, 10, false)
		w.text("  "+field(data, "officePremisesVillage"), pageMargin+20, 10, false)
		w.text(fmt.Sprintf("  %s %s", field(data, "officeTownCityDistrict"), field(data, "officePincode")), pageMargin+20, 10, false)
	}
	w.y += 8

	w.text("4. AO CODE & DOCUMENTS", pageMargin, 12, true)
	w.text(fmt.Sprintf("AO Area: %s Type: %s Range: %s No: %s",
		field(data, "aoAreaCode"), field(data, "aoType"), field(data, "aoRangeCode"), field(data, "aoNumber")), pageMargin+15, 10, false)
	w.text("Proof of Identity: "+label(poiLabels, field(data, "proofOfIdentity")), pageMargin+15, 10, false)
	w.text("Proof of Address: "+label(poaLabels, field(data, "proofOfAddress")), pageMargin+15, 10, false)
	w.text("Proof of DOB: "+label(pobLabels, field(data, "proofOfDob")), pageMargin+15, 10, false)
	w.text("Aadhaar: "+field(data, "aadhaarNumber"), pageMargin+15, 10, false)
	w.y += 8

	w.text("5. DECLARATION", pageMargin, 12, true)
	if truthy(data["declarationAccepted"]) {
		w.text("I hereby declare that the information given is true and correct.", pageMargin+15, 10, false)
	} else {
		w.text("(Not accepted)", pageMargin+15, 10, false)
	}
	w.y += 10

	for _, d := range app.Documents {
		if d.Purpose != PurposePhoto && d.Purpose != PurposeSignature {
			continue
		}
		if !strings.HasPrefix(d.MimeType, "image/") {
			continue
		}
		caption := "Signature"
		if d.Purpose == PurposePhoto {
			caption = "Photo"
		}
		p.embedImage(ctx, w, d, caption)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// embedImage draws an uploaded photo or signature scaled to 80pt wide. Any
// failure skips the image rather than failing the render.
func (p *PDFService) embedImage(ctx context.Context, w *pdfWriter, d Document, caption string) {
	exists, err := p.store.Exists(ctx, d.FilePath)
	if err != nil || !exists {
		return
	}
	raw, err := p.store.Get(ctx, d.FilePath)
	if err != nil {
		return
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil || cfg.Width == 0 {
		return
	}
	var imageType string
	switch format {
	case "png":
		imageType = "PNG"
	case "jpeg":
		imageType = "JPG"
	default:
		return
	}

	width := 80.0
	height := float64(cfg.Height) / float64(cfg.Width) * width
	if height > 60 {
		height = 60
	}

	opts := fpdf.ImageOptions{ImageType: imageType}
	w.doc.RegisterImageOptionsReader(d.ID.String(), opts, bytes.NewReader(raw))
	w.doc.ImageOptions(d.ID.String(), pageMargin, w.y, width, height, false, opts, 0, "")
	w.y += height + 2
	w.text(caption, pageMargin, 9, false)
	w.y += 13
}

func truthy(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != "" && x != "false"
	case float64:
		return x != 0
	default:
		return true
	}
}
