package pan

import (
	"github.com/gofiber/fiber/v2"

	"github.com/formseva/formseva-backend/internal/apps"
)

// App is the PAN Form 49A plugin.
type App struct{}

func New() *App {
	return &App{}
}

func (a *App) ID() string {
	return "pan"
}

func (a *App) Models() []interface{} {
	return []interface{}{
		&Application{},
		&Document{},
		&GeneratedPDF{},
	}
}

func (a *App) RegisterRoutes(router fiber.Router, deps apps.Deps) {
	service := NewService(deps.DB, deps.Store)
	pdfs := NewPDFService(deps.DB, deps.Store)
	h := NewHandler(service, pdfs, deps.AI)

	group := router.Group("/pan")
	group.Get("/", h.Get)
	group.Post("/", h.Save)
	group.Post("/submit", h.Submit)

	group.Post("/documents", h.UploadDocument)
	group.Get("/documents", h.ListDocuments)
	group.Delete("/documents/:id", h.DeleteDocument)

	group.Post("/pdf/generate", h.GeneratePDF)
	group.Get("/pdf", h.GetPDF)

	group.Post("/ai/chat", h.Chat)
}
