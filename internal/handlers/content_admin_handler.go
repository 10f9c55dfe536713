package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/formseva/formseva-backend/internal/dto"
	"github.com/formseva/formseva-backend/internal/models"
	"github.com/formseva/formseva-backend/internal/services"
)

// ContentAdminHandler manages explore content from the admin console,
// including AI-assisted Malayalam translation.
type ContentAdminHandler struct {
	db *gorm.DB
	ai *services.AIService
}

func NewContentAdminHandler(db *gorm.DB, ai *services.AIService) *ContentAdminHandler {
	return &ContentAdminHandler{db: db, ai: ai}
}

func (h *ContentAdminHandler) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	q := h.db.WithContext(c.Context()).Model(&models.ExploreContent{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to load content",
		})
	}

	var rows []models.ExploreContent
	err := q.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to load content",
		})
	}

	pages := int((total + int64(limit) - 1) / int64(limit))
	return c.JSON(fiber.Map{
		"success": true,
		"data":    rows,
		"pagination": dto.Pagination{
			Page: page, Limit: limit, Total: total, Pages: pages,
		},
	})
}

func (h *ContentAdminHandler) Create(c *fiber.Ctx) error {
	var req dto.ContentUpsertRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}
	if req.Type == "" || req.TitleEn == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Type and English title are required",
		})
	}

	content := models.ExploreContent{
		ID:        uuid.New(),
		Type:      req.Type,
		TitleEn:   req.TitleEn,
		TitleMl:   req.TitleMl,
		ContentEn: req.ContentEn,
		ContentMl: req.ContentMl,
		VideoURL:  req.VideoURL,
		Category:  req.Category,
		Published: req.Published,
	}
	if req.Published {
		now := time.Now().UTC()
		content.PublishedAt = &now
	}

	if err := h.db.WithContext(c.Context()).Create(&content).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to create content",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": content})
}

func (h *ContentAdminHandler) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid content id",
		})
	}

	var req dto.ContentUpsertRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	var content models.ExploreContent
	err = h.db.WithContext(c.Context()).First(&content, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Content not found",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to load content",
		})
	}

	if req.Type != "" {
		content.Type = req.Type
	}
	if req.TitleEn != "" {
		content.TitleEn = req.TitleEn
	}
	content.TitleMl = req.TitleMl
	content.ContentEn = req.ContentEn
	content.ContentMl = req.ContentMl
	content.VideoURL = req.VideoURL
	content.Category = req.Category
	if req.Published && !content.Published {
		now := time.Now().UTC()
		content.PublishedAt = &now
	}
	content.Published = req.Published

	if err := h.db.WithContext(c.Context()).Save(&content).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to update content",
		})
	}

	return c.JSON(fiber.Map{"success": true, "data": content})
}

func (h *ContentAdminHandler) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid content id",
		})
	}

	res := h.db.WithContext(c.Context()).Delete(&models.ExploreContent{}, "id = ?", id)
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to delete content",
		})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Content not found",
		})
	}

	return c.JSON(dto.SuccessResponse{Success: true})
}

// Translate produces Malayalam title and body for the given English text so
// admins can review before publishing.
func (h *ContentAdminHandler) Translate(c *fiber.Ctx) error {
	var req dto.TranslateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}
	if req.TitleEn == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "English title is required",
		})
	}

	titleMl, contentMl, err := h.ai.Translate(c.Context(), req.TitleEn, req.ContentEn)
	if err != nil {
		if errors.Is(err, services.ErrAIUnavailable) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Error: true, Message: "Translation is not available",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Translation failed",
		})
	}

	return c.JSON(dto.TranslateResponse{TitleMl: titleMl, ContentMl: contentMl})
}
