package dto

// ContentUpsertRequest covers both create and update of explore content.
type ContentUpsertRequest struct {
	Type      string  `json:"type"`
	TitleEn   string  `json:"title_en"`
	TitleMl   *string `json:"title_ml"`
	ContentEn *string `json:"content_en"`
	ContentMl *string `json:"content_ml"`
	VideoURL  *string `json:"video_url"`
	Category  *string `json:"category"`
	Published bool    `json:"published"`
}
