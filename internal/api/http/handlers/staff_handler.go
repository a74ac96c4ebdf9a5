package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/municipal-service/internal/api/dto"
	"github.com/spec-kit/municipal-service/internal/auth"
	"github.com/spec-kit/municipal-service/internal/domain"
	"github.com/spec-kit/municipal-service/internal/service"
	apperrors "github.com/spec-kit/municipal-service/pkg/util"
)

// StaffHandler manages staff login and password flows for both account kinds.
type StaffHandler struct {
	service *service.AuthService
}

// NewStaffHandler constructs handler.
func NewStaffHandler(authService *service.AuthService) *StaffHandler {
	return &StaffHandler{service: authService}
}

// Login POST /auth/staff/login.
func (h *StaffHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	staff, token, expiresAt, err := h.service.LoginStaff(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	staffResp := dto.FromStaff(staff)
	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Staff:     &staffResp,
	}})
}

// ChangePassword POST /auth/password/change.
func (h *StaffHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	var subjectID int64
	switch {
	case principal.User != nil:
		subjectID = principal.User.ID
	case principal.Staff != nil:
		subjectID = principal.Staff.ID
	default:
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.ChangePassword(c.Context(), principal.SubjectType, subjectID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"changed": true}})
}

// passwordResetRequest optionally names the account kind; citizen by default.
type passwordResetRequest struct {
	Email   string              `json:"email"`
	Subject *domain.SubjectType `json:"subject"`
}

// RequestPasswordReset POST /auth/password/reset/request. Always answers
// 200 so the endpoint cannot be used to probe for registered emails.
func (h *StaffHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var req passwordResetRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" {
		return apperrors.NewValidationError("email required", nil)
	}
	subject := domain.SubjectTypeCitizen
	if req.Subject != nil {
		subject = *req.Subject
	}
	if _, err := h.service.RequestPasswordReset(c.Context(), subject, req.Email); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"requested": true}})
}

// ConfirmPasswordReset POST /auth/password/reset/confirm.
func (h *StaffHandler) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Token == "" || req.NewPassword == "" {
		return apperrors.NewValidationError("token and new password required", nil)
	}
	if err := h.service.ConfirmPasswordReset(c.Context(), req.Token, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"reset": true}})
}
