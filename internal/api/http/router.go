package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/case-service/internal/api/http/handlers"
	"github.com/spec-kit/case-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.CasesHandler
	Incidents      *handlers.CasesHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/password/reset/request", cfg.Auth.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Auth.ConfirmPasswordReset)

	protectedAuth := authGroup.Group("", cfg.AuthMiddleware.Handle)
	protectedAuth.Post("/logout", cfg.Auth.Logout)
	protectedAuth.Get("/me", cfg.Auth.Me)
	protectedAuth.Post("/password/change", cfg.Auth.ChangePassword)

	registerCaseRoutes(app.Group("/tickets", cfg.AuthMiddleware.Handle), cfg.Tickets)
	registerCaseRoutes(app.Group("/incidents", cfg.AuthMiddleware.Handle), cfg.Incidents)

	my := app.Group("/my", cfg.AuthMiddleware.Handle)
	my.Get("/tickets", cfg.Tickets.ListMine)
	my.Get("/incidents", cfg.Incidents.ListMine)

	notifications := app.Group("/notifications", cfg.AuthMiddleware.Handle)
	notifications.Get("", cfg.Notifications.List)
	notifications.Post("/:id/read", cfg.Notifications.MarkRead)
}

func registerCaseRoutes(group fiber.Router, h *handlers.CasesHandler) {
	group.Get("", h.List)
	group.Post("", h.Create)
	group.Get("/export", h.Export)
	group.Get("/:id", h.Get)
	group.Patch("/:id", h.Update)
	group.Post("/:id/take", h.Take)
	group.Post("/:id/assign", h.Assign)
	group.Post("/:id/unassign", h.Unassign)
	group.Post("/:id/escalate", h.Escalate)
	group.Post("/:id/comments", h.Comment)
	group.Post("/:id/attachments", h.UploadAttachment)
	group.Get("/:id/attachments/:attachmentID", h.DownloadAttachment)
	group.Delete("/:id/attachments/:attachmentID", h.DeleteAttachment)
}
