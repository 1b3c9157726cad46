package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/fumi-go-api/internal/config"
	"github.com/noah-isme/fumi-go-api/internal/handler"
	"github.com/noah-isme/fumi-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	QuestionHandler   *handler.QuestionHandler
	TaskHandler       *handler.TaskHandler
	SubmissionHandler *handler.SubmissionHandler
	StreamHandler     *handler.StreamHandler
	SeedHandler       *handler.SeedHandler
	HealthProbes      map[string]handler.HealthProbe
	JWTMiddleware     fiber.Handler
	ExposeMetrics     bool
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	if deps.ExposeMetrics {
		app.Get("/metrics", observability.MetricsHandler())
	}

	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	// Seeding is token-guarded rather than JWT-guarded.
	if deps.SeedHandler != nil {
		deps.SeedHandler.Register(api.Group("/seed"))
	}

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.QuestionHandler != nil {
		deps.QuestionHandler.Register(api.Group("/questions", jwtMiddleware))
	}

	if deps.TaskHandler != nil {
		deps.TaskHandler.Register(api.Group("/tasks", jwtMiddleware))
	}

	if deps.SubmissionHandler != nil || deps.StreamHandler != nil {
		submissions := api.Group("/submissions", jwtMiddleware)
		if deps.StreamHandler != nil {
			deps.StreamHandler.Register(submissions)
		}
		if deps.SubmissionHandler != nil {
			deps.SubmissionHandler.Register(submissions)
		}
	}
}
