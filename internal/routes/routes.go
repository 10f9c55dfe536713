package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/formseva/formseva-backend/internal/apps"
	"github.com/formseva/formseva-backend/internal/handlers"
	"github.com/formseva/formseva-backend/internal/middleware"
)

func Setup(
	app *fiber.App,
	deps apps.Deps,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	seedHandler *handlers.SeedHandler,
	exploreHandler *handlers.ExploreHandler,
	notificationHandler *handlers.NotificationHandler,
	contentAdminHandler *handlers.ContentAdminHandler,
	plugins []apps.Plugin,
) {
	cfg := deps.Config
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Lookup data the form UI needs before login.
	api.Get("/seed/:type", seedHandler.List)

	// OTP endpoints get a stricter limit so a single IP cannot farm codes.
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/send-otp", authHandler.SendOTP)
	auth.Post("/verify-otp", authHandler.VerifyOTP)
	auth.Post("/admin/login", authHandler.AdminLogin)

	// Protected user routes.
	protected := api.Group("", middleware.JWTProtected(cfg))
	protected.Get("/profile", authHandler.GetProfile)
	protected.Put("/profile", authHandler.UpdateProfile)

	protected.Get("/explore", exploreHandler.List)
	protected.Get("/explore/:id", exploreHandler.Get)

	protected.Get("/notifications", notificationHandler.List)
	protected.Put("/notifications/read-all", notificationHandler.MarkAllRead)
	protected.Put("/notifications/:id/read", notificationHandler.MarkRead)

	// Admin panel routes.
	admin := api.Group("/admin", middleware.JWTProtected(cfg), middleware.AdminRequired(deps.DB))
	admin.Get("/content", contentAdminHandler.List)
	admin.Post("/content", contentAdminHandler.Create)
	admin.Put("/content/:id", contentAdminHandler.Update)
	admin.Delete("/content/:id", contentAdminHandler.Delete)
	admin.Post("/translate", contentAdminHandler.Translate)

	for _, p := range plugins {
		p.RegisterRoutes(protected, deps)
		if ap, ok := p.(apps.AdminPlugin); ok {
			ap.RegisterAdminRoutes(admin, deps)
		}
	}
}
