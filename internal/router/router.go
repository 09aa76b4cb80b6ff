package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-assessment/internal/config"
	"github.com/noah-isme/gema-assessment/internal/handler"
	"github.com/noah-isme/gema-assessment/internal/middleware"
	"github.com/noah-isme/gema-assessment/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	SubmissionHandler *handler.SubmissionHandler
	ResultHandler     *handler.ResultHandler
	SettingsHandler   *handler.SettingsHandler
	Health            handler.HealthDependencies
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.Health))
	api.Get("/metrics", observability.MetricsHandler())

	assessments := api.Group("/assessments")

	// Submissions arrive from quiz and practical tooling and may be replayed in bursts
	if deps.SubmissionHandler != nil {
		limiter := middleware.RateLimit("assessment_submissions", cfg.RateLimitMax, cfg.RateLimitSpan)
		deps.SubmissionHandler.Register(assessments, limiter)
	}

	if deps.ResultHandler != nil {
		deps.ResultHandler.Register(assessments)
	}

	if deps.SettingsHandler != nil {
		deps.SettingsHandler.Register(assessments)
	}
}
