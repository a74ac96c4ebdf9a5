package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/municipal-service/internal/api/dto"
	"github.com/spec-kit/municipal-service/internal/auth"
	"github.com/spec-kit/municipal-service/internal/service"
	apperrors "github.com/spec-kit/municipal-service/pkg/util"
)

// UsersHandler manages citizen account endpoints.
type UsersHandler struct {
	service *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{service: authService}
}

// Register POST /auth/users/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return apperrors.NewValidationError("name, email, password required", nil)
	}
	user, token, expiresAt, err := h.service.RegisterCitizen(c.Context(), req.Name, req.Email, req.Password, req.Phone)
	if err != nil {
		return err
	}
	userResp := dto.FromUser(user)
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      &userResp,
	}})
}

// Login POST /auth/users/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, token, expiresAt, err := h.service.LoginCitizen(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	userResp := dto.FromUser(user)
	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      &userResp,
	}})
}

// Me GET /auth/users/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("citizen account required")
	}
	return c.JSON(fiber.Map{"data": dto.FromUser(principal.User)})
}
