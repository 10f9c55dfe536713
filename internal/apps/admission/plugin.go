package admission

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/formseva/formseva-backend/internal/apps"
)

// App is the Appendix-8 admission form plugin.
type App struct{}

func New() *App {
	return &App{}
}

func (a *App) ID() string {
	return "admission"
}

func (a *App) Models() []interface{} {
	return []interface{}{
		&Application{},
		&StepData{},
		&Preference{},
		&Document{},
		&GeneratedPDF{},
		&Payment{},
		&AdminAction{},
	}
}

func (a *App) RegisterRoutes(router fiber.Router, deps apps.Deps) {
	h := a.handler(deps)

	application := router.Group("/application")
	application.Get("/", h.GetApplication)
	application.Post("/step/:stepNumber", h.SaveStep)
	application.Post("/preferences", h.SavePreferences)
	application.Post("/submit", h.Submit)

	documents := router.Group("/documents")
	documents.Post("/upload", h.UploadDocument)
	documents.Get("/", h.ListDocuments)
	documents.Delete("/:id", h.DeleteDocument)

	pdf := router.Group("/pdf")
	pdf.Post("/generate", h.GeneratePDF)
	pdf.Get("/", h.GetPDF)

	router.Post("/ai/chat", h.Chat)

	// Gateway calls are slow and billable; keep retry storms off them.
	payment := router.Group("/payment", limiter.New(limiter.Config{
		Max:               20,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	payment.Post("/create-order", h.CreateOrder)
	payment.Post("/verify", h.VerifyPayment)
	payment.Get("/status", h.PaymentStatus)
}

func (a *App) RegisterAdminRoutes(router fiber.Router, deps apps.Deps) {
	h := a.handler(deps)

	applications := router.Group("/applications")
	applications.Get("/", h.AdminList)
	applications.Get("/:id", h.AdminGet)
	applications.Post("/:id/verify", h.AdminVerify)
	applications.Post("/:id/reject", h.AdminReject)
	applications.Get("/:id/pdf", h.AdminPDF)
}

func (a *App) handler(deps apps.Deps) *Handler {
	service := NewService(deps.DB, deps.Store, deps.Notifications)
	orders := NewRazorpayOrders(deps.Config.RazorpayKeyID, deps.Config.RazorpayKeySecret)
	payments := NewPaymentService(deps.DB, orders, deps.Notifications,
		deps.Config.RazorpayKeyID, deps.Config.RazorpayKeySecret, deps.Config.ApplicationFee)
	pdfs := NewPDFService(deps.DB, deps.Store)
	return NewHandler(service, payments, pdfs, deps.AI)
}
