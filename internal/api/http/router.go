package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/semillero-service/internal/api/http/handlers"
	"github.com/spec-kit/semillero-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Metrics *handlers.MetricsHandler
	Session *handlers.SessionHandler
	Stream  *handlers.SessionStream
	Auth    *auth.SessionMiddleware
	// AttemptsPerMinute caps login and verify calls per session; zero disables the limit.
	AttemptsPerMinute int
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics.Get)
	}

	app.Get("/catalog", cfg.Session.Catalog)
	app.Post("/sessions", cfg.Session.Start)

	current := app.Group("/sessions/current", cfg.Auth.Handle)
	current.Get("", cfg.Session.Current)
	current.Get("/history", cfg.Session.History)
	current.Put("/auth", cfg.Session.EditAuth)
	current.Post("/enrollment/open", cfg.Session.OpenEnrollment)
	current.Post("/logout", cfg.Session.Logout)
	current.Post("/payments/:id", cfg.Session.SelectPayment)
	current.Delete("/payment", cfg.Session.CancelPayment)
	current.Post("/payment/confirm", cfg.Session.ConfirmPayment)
	current.Put("/enrollment", cfg.Session.EditEnrollment)
	current.Post("/enrollment", cfg.Session.SubmitEnrollment)
	current.Post("/back", cfg.Session.Back)

	attempts := []fiber.Handler{}
	if cfg.AttemptsPerMinute > 0 {
		attempts = append(attempts, credentialLimiter(cfg.AttemptsPerMinute, time.Minute))
	}
	current.Post("/login", append(attempts, cfg.Session.Login)...)
	current.Post("/verify", append(attempts, cfg.Session.Verify)...)

	if cfg.Stream != nil {
		app.Get("/ws/sessions", cfg.Auth.Handle, cfg.Stream.Upgrade, cfg.Stream.Handle())
	}
}
