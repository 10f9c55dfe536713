package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SeedData types.
const (
	SeedSchool      = "SCHOOL"
	SeedCombination = "COMBINATION"
	SeedCategory    = "CATEGORY"
	SeedDistrict    = "DISTRICT"
	SeedTaluk       = "TALUK"
	SeedPanchayat   = "PANCHAYAT"
)

// SeedData holds the lookup taxonomy the form UI drives its dropdowns from
// (schools, subject combinations, reservation categories, geography).
// Metadata carries parent links, e.g. {"districtCode":"TVM"} on a taluk.
type SeedData struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Type      string         `gorm:"size:20;not null;uniqueIndex:idx_seed_type_code" json:"type"`
	Code      string         `gorm:"size:50;not null;uniqueIndex:idx_seed_type_code" json:"code"`
	Name      string         `gorm:"size:255;not null" json:"name"`
	NameMl    *string        `gorm:"size:255" json:"name_ml"`
	Metadata  datatypes.JSON `gorm:"type:jsonb" json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
