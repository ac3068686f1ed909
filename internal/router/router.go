package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hivedesk/taskhub-api/internal/config"
	"github.com/hivedesk/taskhub-api/internal/handler"
	"github.com/hivedesk/taskhub-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler     *handler.AuthHandler
	TaskHandler     *handler.TaskHandler
	UserHandler     *handler.UserHandler
	ActivityHandler *handler.ActivityHandler
	RealtimeHandler *handler.RealtimeHandler
	JWTMiddleware   fiber.Handler
	ActorMiddleware fiber.Handler
	LoginRateLimit  fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	noop := func(c *fiber.Ctx) error { return c.Next() }
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = noop
	}
	actorMiddleware := deps.ActorMiddleware
	if actorMiddleware == nil {
		actorMiddleware = noop
	}

	if deps.AuthHandler != nil {
		auth := api.Group("/auth")
		if deps.LoginRateLimit != nil {
			auth.Use("/login", deps.LoginRateLimit)
		}
		deps.AuthHandler.Register(auth)
		deps.AuthHandler.RegisterProtected(auth.Group("", jwtMiddleware, actorMiddleware))
	}

	if deps.TaskHandler != nil {
		tasks := api.Group("/tasks", jwtMiddleware, actorMiddleware)
		deps.TaskHandler.Register(tasks)
	}

	if deps.UserHandler != nil {
		users := api.Group("/users", jwtMiddleware, actorMiddleware)
		deps.UserHandler.Register(users)
	}

	if deps.ActivityHandler != nil {
		activity := api.Group("/activity", jwtMiddleware, actorMiddleware)
		deps.ActivityHandler.Register(activity)
	}

	// Websocket handshake authenticates via a query token; the realtime
	// handler verifies it itself instead of the bearer middleware.
	if deps.RealtimeHandler != nil {
		deps.RealtimeHandler.Register(app)
	}
}
