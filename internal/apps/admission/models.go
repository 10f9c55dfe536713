package admission

import (
	"time"

	"github.com/google/uuid"

	"github.com/formseva/formseva-backend/internal/models"
)

// Application statuses.
const (
	StatusDraft    = "DRAFT"
	StatusPending  = "PENDING"
	StatusVerified = "VERIFIED"
	StatusRejected = "REJECTED"
)

// Payment statuses.
const (
	PaymentPending = "PENDING"
	PaymentSuccess = "SUCCESS"
)

// Admin action types.
const (
	ActionVerified = "VERIFIED"
	ActionRejected = "REJECTED"
)

// The form has steps 1..13; step 11 is preferences, 12 documents,
// 13 declaration and submit.
const (
	MinStep         = 1
	MaxStep         = 13
	PreferencesStep = 11
	DocumentsStep   = 12
)

// Application is one applicant's Appendix-8 admission form. Each user has at
// most one.
type Application struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"userId"`
	Status      string     `gorm:"size:20;not null;default:'DRAFT';index" json:"status"`
	CurrentStep int        `gorm:"not null;default:1" json:"currentStep"`
	SubmittedAt *time.Time `json:"submittedAt"`
	VerifiedAt  *time.Time `json:"verifiedAt"`
	VerifiedBy  *uuid.UUID `gorm:"type:uuid" json:"verifiedBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	User         *models.User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
	StepData     *StepData     `gorm:"foreignKey:ApplicationID" json:"stepData,omitempty"`
	Preferences  []Preference  `gorm:"foreignKey:ApplicationID" json:"preferences,omitempty"`
	Documents    []Document    `gorm:"foreignKey:ApplicationID" json:"documents,omitempty"`
	GeneratedPDF *GeneratedPDF `gorm:"foreignKey:ApplicationID" json:"generatedPdf,omitempty"`
	Payment      *Payment      `gorm:"foreignKey:ApplicationID" json:"payment,omitempty"`
	AdminActions []AdminAction `gorm:"foreignKey:ApplicationID" json:"adminActions,omitempty"`
}

// StepData holds every form field across all 13 steps in one wide row.
// All fields are nullable; each step's save fills in its slice of them.
// Array- and map-valued fields (clubs, previousAttempts, subjectGrades,
// the *Counts fields) are stored as JSON text and parsed back on read.
type StepData struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	ApplicationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"-"`

	// Step 1: qualifying examination
	ExamCode        *string `gorm:"size:50" json:"examCode"`
	ExamName        *string `gorm:"size:255" json:"examName"`
	ExamNameOther   *string `gorm:"size:255" json:"examNameOther"`
	RegisterNumber  *string `gorm:"size:50" json:"registerNumber"`
	PassingMonth    *int    `json:"passingMonth"`
	PassingYear     *int    `json:"passingYear"`
	SchoolCode      *string `gorm:"size:50" json:"schoolCode"`
	SchoolName      *string `gorm:"size:255" json:"schoolName"`
	PassedBoardExam *bool   `json:"passedBoardExam"`

	// Step 2: applicant details
	ApplicantName *string    `gorm:"size:255" json:"applicantName"`
	AadhaarNumber *string    `gorm:"size:20" json:"aadhaarNumber"`
	Gender        *string    `gorm:"size:20" json:"gender"`
	DateOfBirth   *time.Time `json:"dateOfBirth"`
	MotherName    *string    `gorm:"size:255" json:"motherName"`
	FatherName    *string    `gorm:"size:255" json:"fatherName"`
	GuardianName  *string    `gorm:"size:255" json:"guardianName"`

	// Step 3: reservation and special categories
	Category                   *string `gorm:"size:100" json:"category"`
	CategoryCode               *string `gorm:"size:50" json:"categoryCode"`
	EwsEligible                *bool   `json:"ewsEligible"`
	Caste                      *string `gorm:"size:100" json:"caste"`
	Religion                   *string `gorm:"size:100" json:"religion"`
	Oec                        *bool   `json:"oec"`
	LinguisticMinority         *bool   `json:"linguisticMinority"`
	LinguisticLanguage         *string `gorm:"size:100" json:"linguisticLanguage"`
	DifferentlyAbled           *bool   `json:"differentlyAbled"`
	DifferentlyAbledPercentage *string `gorm:"size:20" json:"differentlyAbledPercentage"`
	DifferentlyAbledTypes      *string `gorm:"type:text" json:"differentlyAbledTypes"`

	// Step 4: residence and address
	NativeState          *string `gorm:"size:100" json:"nativeState"`
	NativeStateCode      *string `gorm:"size:50" json:"nativeStateCode"`
	NativeDistrict       *string `gorm:"size:100" json:"nativeDistrict"`
	NativeDistrictCode   *string `gorm:"size:50" json:"nativeDistrictCode"`
	NativeTaluk          *string `gorm:"size:100" json:"nativeTaluk"`
	NativeTalukCode      *string `gorm:"size:50" json:"nativeTalukCode"`
	NativePanchayat      *string `gorm:"size:100" json:"nativePanchayat"`
	NativePanchayatCode  *string `gorm:"size:50" json:"nativePanchayatCode"`
	NativeCountry        *string `gorm:"size:100" json:"nativeCountry"`
	PermanentAddress     *string `gorm:"type:text" json:"permanentAddress"`
	PermanentPinCode     *string `gorm:"size:10" json:"permanentPinCode"`
	CommunicationAddress *string `gorm:"type:text" json:"communicationAddress"`
	CommunicationPinCode *string `gorm:"size:10" json:"communicationPinCode"`
	Phone                *string `gorm:"size:15" json:"phone"`
	Email                *string `gorm:"size:255" json:"email"`

	// Step 5: grace / bonus marks
	GraceMarks       *bool   `json:"graceMarks"`
	Ncc              *bool   `json:"ncc"`
	Scouts           *bool   `json:"scouts"`
	Spc              *bool   `json:"spc"`
	DefenceDependent *bool   `json:"defenceDependent"`
	LittleKitesGrade *string `gorm:"size:10" json:"littleKitesGrade"`

	// Step 6: sports participation
	SportsStateCount           *int `json:"sportsStateCount"`
	SportsDistrictFirst        *int `json:"sportsDistrictFirst"`
	SportsDistrictSecond       *int `json:"sportsDistrictSecond"`
	SportsDistrictThird        *int `json:"sportsDistrictThird"`
	SportsDistrictParticipation *int `json:"sportsDistrictParticipation"`

	// Step 7: kalolsavam
	KalolsavamStateCount           *int `json:"kalolsavamStateCount"`
	KalolsavamDistrictA            *int `json:"kalolsavamDistrictA"`
	KalolsavamDistrictB            *int `json:"kalolsavamDistrictB"`
	KalolsavamDistrictC            *int `json:"kalolsavamDistrictC"`
	KalolsavamDistrictParticipation *int `json:"kalolsavamDistrictParticipation"`

	// Step 8: scholarships
	Ntse *bool `json:"ntse"`
	Nmms *bool `json:"nmms"`
	Uss  *bool `json:"uss"`
	Lss  *bool `json:"lss"`

	// Step 9: co-curricular
	ScienceFairGrade        *string `gorm:"size:10" json:"scienceFairGrade"`
	ScienceFairCounts       *string `gorm:"type:text" json:"scienceFairCounts"`
	MathsFairGrade          *string `gorm:"size:10" json:"mathsFairGrade"`
	MathsFairCounts         *string `gorm:"type:text" json:"mathsFairCounts"`
	ItFairGrade             *string `gorm:"size:10" json:"itFairGrade"`
	ItFairCounts            *string `gorm:"type:text" json:"itFairCounts"`
	WorkExperienceGrade     *string `gorm:"size:10" json:"workExperienceGrade"`
	WorkExperienceCounts    *string `gorm:"type:text" json:"workExperienceCounts"`
	SocialScienceFairCounts *string `gorm:"type:text" json:"socialScienceFairCounts"`
	Clubs                   *string `gorm:"type:text" json:"clubs"`

	// Step 10: SSLC attempts and marks
	SslcAttempts     *int    `json:"sslcAttempts"`
	PreviousAttempts *string `gorm:"type:text" json:"previousAttempts"`
	SubjectGrades    *string `gorm:"type:text" json:"subjectGrades"`

	// Step 13: declaration
	ApplicantSignature *string `gorm:"size:500" json:"applicantSignature"`
	ParentSignature    *string `gorm:"size:500" json:"parentSignature"`
	DisclaimerAccepted *bool   `json:"disclaimerAccepted"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (StepData) TableName() string {
	return "application_step_data"
}

// Preference is one ranked school+combination choice (step 11).
type Preference struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ApplicationID    uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	PreferenceNumber int       `gorm:"not null" json:"preferenceNumber"`
	SchoolCode       string    `gorm:"size:50;not null" json:"schoolCode"`
	CombinationCode  string    `gorm:"size:50;not null" json:"combinationCode"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Document is an uploaded supporting file (step 12). FilePath is the object
// storage key, not a filesystem path.
type Document struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ApplicationID uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	Type          string    `gorm:"size:50;not null" json:"type"`
	FilePath      string    `gorm:"size:500;not null" json:"filePath"`
	FileName      string    `gorm:"size:255;not null" json:"fileName"`
	FileSize      int64     `gorm:"not null" json:"fileSize"`
	MimeType      string    `gorm:"size:100;not null" json:"mimeType"`
	CreatedAt     time.Time `json:"createdAt"`
}

// GeneratedPDF tracks the latest rendered application PDF. One row per
// application; regeneration overwrites it.
type GeneratedPDF struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ApplicationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"-"`
	FilePath      string    `gorm:"size:500;not null" json:"filePath"`
	FileName      string    `gorm:"size:255;not null" json:"fileName"`
	FileSize      int64     `gorm:"not null" json:"fileSize"`
	GeneratedAt   time.Time `gorm:"not null" json:"generatedAt"`
}

func (GeneratedPDF) TableName() string {
	return "generated_pdfs"
}

// Payment is the one Razorpay payment backing an application.
type Payment struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ApplicationID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"-"`
	OrderID       string     `gorm:"size:100;not null" json:"orderId"`
	PaymentID     *string    `gorm:"size:100" json:"paymentId"`
	Signature     *string    `gorm:"size:255" json:"signature"`
	Amount        int        `gorm:"not null" json:"amount"`
	Status        string     `gorm:"size:20;not null;default:'PENDING'" json:"status"`
	PaidAt        *time.Time `json:"paidAt"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// AdminAction is the audit trail of verify/reject decisions.
type AdminAction struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ApplicationID uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	AdminID       uuid.UUID `gorm:"type:uuid;not null" json:"adminId"`
	Action        string    `gorm:"size:20;not null" json:"action"`
	Notes         *string   `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time `json:"createdAt"`
}
