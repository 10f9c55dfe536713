package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/formseva/formseva-backend/internal/dto"
	"github.com/formseva/formseva-backend/internal/models"
)

var seedTypes = map[string]string{
	"schools":      models.SeedSchool,
	"combinations": models.SeedCombination,
	"categories":   models.SeedCategory,
	"districts":    models.SeedDistrict,
	"taluks":       models.SeedTaluk,
	"panchayats":   models.SeedPanchayat,
}

type SeedHandler struct {
	db *gorm.DB
}

func NewSeedHandler(db *gorm.DB) *SeedHandler {
	return &SeedHandler{db: db}
}

// List serves lookup data for one taxonomy type, e.g. GET /api/seed/districts.
// An optional ?code= filter narrows by parent code held in metadata, so
// /api/seed/taluks?code=TVM lists the taluks of one district.
func (h *SeedHandler) List(c *fiber.Ctx) error {
	seedType, ok := seedTypes[strings.ToLower(c.Params("type"))]
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Unknown seed type",
		})
	}

	q := h.db.WithContext(c.Context()).Where("type = ?", seedType)
	if code := c.Query("code"); code != "" {
		q = q.Where("metadata->>'parentCode' = ?", code)
	}

	var rows []models.SeedData
	if err := q.Order("name ASC").Find(&rows).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to load seed data",
		})
	}

	return c.JSON(fiber.Map{"success": true, "data": rows})
}
