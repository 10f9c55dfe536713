package apps

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/formseva/formseva-backend/internal/config"
	"github.com/formseva/formseva-backend/internal/services"
	"github.com/formseva/formseva-backend/internal/storage"
)

// Deps carries the shared infrastructure every form app builds on.
type Deps struct {
	DB            *gorm.DB
	Config        *config.Config
	Store         storage.ObjectStore
	AI            *services.AIService
	Notifications *services.NotificationService
}

// Plugin defines the interface every form app must implement.
type Plugin interface {
	// ID returns the unique app identifier.
	ID() string

	// Models returns the list of GORM model pointers for AutoMigrate.
	Models() []interface{}

	// RegisterRoutes mounts app-specific routes on the given Fiber group.
	// The group is already prefixed with /api and has JWT middleware applied.
	RegisterRoutes(router fiber.Router, deps Deps)
}

// AdminPlugin extends Plugin with admin-only route registration. The group
// passed in has both JWT and admin middleware applied.
type AdminPlugin interface {
	Plugin

	RegisterAdminRoutes(router fiber.Router, deps Deps)
}
