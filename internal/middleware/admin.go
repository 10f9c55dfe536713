package middleware

import (
	"github.com/formseva/formseva-backend/internal/dto"
	"github.com/formseva/formseva-backend/internal/models"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// AdminRequired verifies the token carries an admin_id claim that resolves
// to an existing Admin row. User tokens (sub claim only) are rejected.
func AdminRequired(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		adminID, err := GetAdminID(c)
		if err != nil {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: true, Message: "Admin access required",
			})
		}

		var admin models.Admin
		if err := db.First(&admin, "id = ?", adminID).Error; err != nil {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: true, Message: "Admin access required",
			})
		}

		c.Locals("admin_id", admin.ID)
		return c.Next()
	}
}
