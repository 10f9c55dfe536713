package models

import (
	"time"

	"github.com/google/uuid"
)

// ExploreContent is admin-managed bilingual guidance content (articles and
// videos) shown in the app's explore tab.
type ExploreContent struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Type        string     `gorm:"size:20;not null" json:"type"`
	TitleEn     string     `gorm:"size:255;not null" json:"title_en"`
	TitleMl     *string    `gorm:"size:255" json:"title_ml"`
	ContentEn   *string    `gorm:"type:text" json:"content_en"`
	ContentMl   *string    `gorm:"type:text" json:"content_ml"`
	VideoURL    *string    `gorm:"size:500" json:"video_url"`
	Category    *string    `gorm:"size:100;index" json:"category"`
	Published   bool       `gorm:"default:false;index" json:"published"`
	PublishedAt *time.Time `json:"published_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
