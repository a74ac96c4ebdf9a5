package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/municipal-service/internal/api/http/handlers"
	"github.com/spec-kit/municipal-service/internal/auth"
	"github.com/spec-kit/municipal-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health            *handlers.HealthHandler
	Issues            *handlers.IssuesHandler
	Technicians       *handlers.TechniciansHandler
	Payments          *handlers.PaymentsHandler
	Users             *handlers.UsersHandler
	Staff             *handlers.StaffHandler
	AuthMiddleware    *auth.AuthMiddleware
	SubmissionLimiter *SubmissionLimiter
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/users/register", cfg.Users.Register)
	authGroup.Post("/users/login", cfg.Users.Login)
	authGroup.Post("/staff/login", cfg.Staff.Login)
	authGroup.Post("/password/reset/request", cfg.Staff.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Staff.ConfirmPasswordReset)

	authProtected := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	authProtected.Post("/password/change", cfg.Staff.ChangePassword)
	authProtected.Get("/users/me", cfg.Users.Me)

	api := app.Group("/api")

	// Public citizen surface: submission (rate limited), tracking, rating.
	api.Post("/issues", cfg.SubmissionLimiter.Handle, cfg.AuthMiddleware.HandleOptional, cfg.Issues.CreateIssue)
	api.Get("/issues/reference/:reference", cfg.Issues.TrackIssue)
	api.Post("/issues/:id/rating", cfg.AuthMiddleware.HandleOptional, cfg.Issues.RateIssue)

	staffOnly := api.Group("", cfg.AuthMiddleware.Handle, auth.RequireStaffRole())
	staffOnly.Get("/issues", cfg.Issues.ListIssues)
	staffOnly.Get("/issues/:id", cfg.Issues.GetIssue)
	staffOnly.Get("/issues/:id/notes", cfg.Issues.ListNotes)
	staffOnly.Post("/issues/:id/notes", cfg.Issues.AddNote)
	staffOnly.Get("/issues/:id/escalations", cfg.Issues.ListEscalations)
	staffOnly.Get("/technicians", cfg.Technicians.ListTechnicians)
	staffOnly.Get("/technicians/:id", cfg.Technicians.GetTechnician)
	staffOnly.Post("/technicians/nearest", cfg.Technicians.FindNearest)
	staffOnly.Get("/teams", cfg.Technicians.ListTeams)

	triage := api.Group("", cfg.AuthMiddleware.Handle,
		auth.RequireStaffRole(domain.StaffRoleAgent, domain.StaffRoleManager, domain.StaffRoleAdmin))
	triage.Patch("/issues/:id", cfg.Issues.UpdateIssue)
	triage.Post("/issues/:id/escalate", cfg.Issues.EscalateIssue)
	triage.Post("/technicians/:techId/assign/:issueId", cfg.Technicians.AssignIssue)

	field := api.Group("", cfg.AuthMiddleware.Handle,
		auth.RequireStaffRole(domain.StaffRoleTechnician, domain.StaffRoleManager, domain.StaffRoleAdmin))
	field.Post("/technicians/:techId/start/:issueId", cfg.Technicians.StartWork)
	field.Post("/technicians/:techId/complete/:issueId", cfg.Technicians.CompleteWork)
	field.Patch("/technicians/:id", cfg.Technicians.UpdateTechnician)

	admin := api.Group("", cfg.AuthMiddleware.Handle,
		auth.RequireStaffRole(domain.StaffRoleManager, domain.StaffRoleAdmin))
	admin.Post("/technicians", cfg.Technicians.CreateTechnician)
	admin.Post("/teams", cfg.Technicians.CreateTeam)

	adminOnly := api.Group("", cfg.AuthMiddleware.Handle, auth.RequireStaffRole(domain.StaffRoleAdmin))
	adminOnly.Delete("/issues/:id", cfg.Issues.DeleteIssue)
	adminOnly.Post("/payments/sweep-overdue", cfg.Payments.SweepOverdue)

	billing := api.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	billing.Get("/payments", cfg.Payments.ListPayments)
	billing.Post("/payments/:id/pay", cfg.Payments.PayBill)
	billing.Post("/vouchers", cfg.Payments.BuyVoucher)
	billing.Post("/vouchers/redeem", cfg.Payments.RedeemVoucher)
	billing.Get("/vouchers", cfg.Payments.ListVouchers)
}
