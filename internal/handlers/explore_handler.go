package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/formseva/formseva-backend/internal/dto"
	"github.com/formseva/formseva-backend/internal/models"
)

type ExploreHandler struct {
	db *gorm.DB
}

func NewExploreHandler(db *gorm.DB) *ExploreHandler {
	return &ExploreHandler{db: db}
}

// List returns published content, newest first. Supports ?type=, ?category=
// and ?page=/?limit= pagination.
func (h *ExploreHandler) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	q := h.db.WithContext(c.Context()).
		Model(&models.ExploreContent{}).
		Where("published = ?", true)
	if typ := c.Query("type"); typ != "" {
		q = q.Where("type = ?", typ)
	}
	if category := c.Query("category"); category != "" {
		q = q.Where("category = ?", category)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to load content",
		})
	}

	var rows []models.ExploreContent
	err := q.Order("published_at DESC NULLS LAST").
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

func (h *ExploreHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid content id",
		})
	}

	var content models.ExploreContent
	err = h.db.WithContext(c.Context()).
		Where("id = ? AND published = ?", id, true).
		First(&content).Error
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

	return c.JSON(fiber.Map{"success": true, "data": content})
}
