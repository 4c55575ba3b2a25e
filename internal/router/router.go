package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/chulseok-go-api/internal/config"
	"github.com/noah-isme/chulseok-go-api/internal/handler"
	"github.com/noah-isme/chulseok-go-api/internal/middleware"
	"github.com/noah-isme/chulseok-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler       *handler.AuthHandler
	UploadHandler     *handler.UploadHandler
	AttendanceHandler *handler.AttendanceHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/v1/health", handler.HealthCheck(cfg))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.AuthHandler != nil {
		api.Post("/login", middleware.RateLimit("login", 10, time.Minute), deps.AuthHandler.Login)
	}

	if deps.UploadHandler != nil {
		upload := api.Group("/upload", jwtMiddleware, middleware.RequireRole("admin"))
		deps.UploadHandler.Register(upload)
	}

	if deps.AttendanceHandler != nil {
		attendance := api.Group("/attendance", jwtMiddleware)
		deps.AttendanceHandler.Register(attendance)
	}
}
