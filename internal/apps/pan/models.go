package pan

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// PAN application statuses.
const (
	StatusDraft     = "DRAFT"
	StatusSubmitted = "SUBMITTED"
)

// Document purposes.
const (
	PurposePOI       = "PAN_POI"
	PurposePOA       = "PAN_POA"
	PurposeDOB       = "PAN_DOB"
	PurposePhoto     = "PAN_PHOTO"
	PurposeSignature = "PAN_SIGNATURE"
)

var validPurposes = map[string]bool{
	PurposePOI:       true,
	PurposePOA:       true,
	PurposeDOB:       true,
	PurposePhoto:     true,
	PurposeSignature: true,
}

var applicationTypes = map[string]bool{
	"NEW_PAN_INDIAN_49A":    true,
	"NEW_PAN_FOREIGN_49AA":  true,
	"PAN_CHANGE_OR_REPRINT": true,
}

var applicantCategories = map[string]bool{
	"INDIVIDUAL":                    true,
	"ASSOCIATION_OF_PERSONS":        true,
	"BODY_OF_INDIVIDUALS":           true,
	"COMPANY":                       true,
	"TRUST":                         true,
	"LIMITED_LIABILITY_PARTNERSHIP": true,
	"FIRM":                          true,
	"GOVERNMENT":                    true,
	"HINDU_UNDIVIDED_FAMILY":        true,
	"ARTIFICIAL_JURIDICAL_PERSON":   true,
	"LOCAL_AUTHORITY":               true,
}

var poiTypes = map[string]bool{
	"AADHAAR_CARD":           true,
	"VOTER_ID":               true,
	"PASSPORT":               true,
	"DRIVING_LICENSE":        true,
	"RATION_CARD_WITH_PHOTO": true,
	"GOVT_PHOTO_ID":          true,
	"ARMS_LICENSE":           true,
	"PENSIONER_CARD":         true,
}

var poaTypes = map[string]bool{
	"AADHAAR_CARD":         true,
	"ELECTRICITY_BILL_3M":  true,
	"WATER_BILL_3M":        true,
	"BANK_STATEMENT_3M":    true,
	"PASSPORT":             true,
	"VOTER_ID":             true,
	"DRIVING_LICENSE":      true,
	"POST_OFFICE_PASSBOOK": true,
}

var pobTypes = map[string]bool{
	"BIRTH_CERTIFICATE":         true,
	"SSLC_CERTIFICATE":          true,
	"PASSPORT":                  true,
	"DRIVING_LICENSE":           true,
	"AADHAAR_CARD":              true,
	"MATRICULATION_CERTIFICATE": true,
}

// Application is a user's PAN Form 49A application. Unlike the admission
// form, step data is schemaless: each save merges flat keys into one JSON
// document.
type Application struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"userId"`
	Status      string         `gorm:"size:20;not null;default:'DRAFT'" json:"status"`
	StepData    datatypes.JSON `gorm:"type:jsonb" json:"stepData"`
	SubmittedAt *time.Time     `json:"submittedAt"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`

	Documents    []Document    `gorm:"foreignKey:PanApplicationID" json:"documents,omitempty"`
	GeneratedPDF *GeneratedPDF `gorm:"foreignKey:PanApplicationID" json:"generatedPdf,omitempty"`
}

func (Application) TableName() string {
	return "pan_applications"
}

// Document is a supporting file uploaded for one of the five purposes.
type Document struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PanApplicationID uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	Purpose          string    `gorm:"size:20;not null" json:"purpose"`
	FilePath         string    `gorm:"size:500;not null" json:"filePath"`
	FileName         string    `gorm:"size:255;not null" json:"fileName"`
	FileSize         int64     `gorm:"not null" json:"fileSize"`
	MimeType         string    `gorm:"size:100;not null" json:"mimeType"`
	CreatedAt        time.Time `json:"createdAt"`
}

func (Document) TableName() string {
	return "pan_documents"
}

// GeneratedPDF tracks the latest rendered Form 49A PDF, one per application.
type GeneratedPDF struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PanApplicationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"-"`
	FilePath         string    `gorm:"size:500;not null" json:"filePath"`
	FileName         string    `gorm:"size:255;not null" json:"fileName"`
	FileSize         int64     `gorm:"not null" json:"fileSize"`
	GeneratedAt      time.Time `gorm:"not null" json:"generatedAt"`
}

func (GeneratedPDF) TableName() string {
	return "generated_pan_pdfs"
}
