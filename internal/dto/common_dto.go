package dto

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

type ChatRequest struct {
	Message     string `json:"message"`
	CurrentStep int    `json:"currentStep"`
}

type ChatResponse struct {
	Success  bool   `json:"success"`
	Response string `json:"response"`
}

type TranslateRequest struct {
	TitleEn   string `json:"title_en"`
	ContentEn string `json:"content_en"`
}

type TranslateResponse struct {
	TitleMl   string `json:"title_ml"`
	ContentMl string `json:"content_ml"`
}
