package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/municipal-service/internal/api/dto"
	"github.com/spec-kit/municipal-service/internal/domain"
	"github.com/spec-kit/municipal-service/internal/repository"
	"github.com/spec-kit/municipal-service/internal/service"
	apperrors "github.com/spec-kit/municipal-service/pkg/util"
)

// TechniciansHandler manages technician records, dispatch and teams.
type TechniciansHandler struct {
	technicians *service.TechnicianService
	dispatch    *service.DispatchService
}

// NewTechniciansHandler constructs handler.
func NewTechniciansHandler(technicians *service.TechnicianService, dispatch *service.DispatchService) *TechniciansHandler {
	return &TechniciansHandler{technicians: technicians, dispatch: dispatch}
}

// CreateTechnician POST /api/technicians.
func (h *TechniciansHandler) CreateTechnician(c *fiber.Ctx) error {
	var req dto.CreateTechnicianRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	tech, err := h.technicians.CreateTechnician(c.Context(), service.TechnicianCreateInput{
		Name:            req.Name,
		Phone:           req.Phone,
		Email:           req.Email,
		Department:      req.Department,
		Skills:          req.Skills,
		CurrentLocation: req.CurrentLocation,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromTechnician(tech)})
}

// ListTechnicians GET /api/technicians.
func (h *TechniciansHandler) ListTechnicians(c *fiber.Ctx) error {
	filter := repository.TechnicianFilter{}
	if s := c.Query("status"); s != "" {
		status := domain.TechnicianStatus(s)
		filter.Status = &status
	}
	if s := c.Query("department"); s != "" {
		department := s
		filter.Department = &department
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize

	techs, err := h.technicians.ListTechnicians(c.Context(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TechnicianResponse, 0, len(techs))
	for i := range techs {
		items = append(items, dto.FromTechnician(&techs[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTechnician GET /api/technicians/:id.
func (h *TechniciansHandler) GetTechnician(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	tech, err := h.technicians.GetTechnician(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTechnician(tech)})
}

// UpdateTechnician PATCH /api/technicians/:id.
func (h *TechniciansHandler) UpdateTechnician(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateTechnicianRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	tech, err := h.technicians.UpdateTechnician(c.Context(), id, service.TechnicianUpdateCommand{
		Name:            req.Name,
		Phone:           req.Phone,
		Email:           req.Email,
		Department:      req.Department,
		Skills:          req.Skills,
		Status:          req.Status,
		CurrentLocation: req.CurrentLocation,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTechnician(tech)})
}

// nearestRequest accepts a point, or an issue id to resolve the department
// from the issue's category.
type nearestRequest struct {
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	Department *string  `json:"department"`
	IssueID    *int64   `json:"issueId"`
}

// FindNearest POST /api/technicians/nearest.
func (h *TechniciansHandler) FindNearest(c *fiber.Ctx) error {
	var req nearestRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Latitude == nil || req.Longitude == nil {
		return apperrors.NewValidationError("latitude and longitude required", nil)
	}

	var (
		ranked []service.RankedTechnician
		err    error
	)
	if req.IssueID != nil {
		ranked, err = h.dispatch.FindTechniciansForIssue(c.Context(), *req.IssueID, *req.Latitude, *req.Longitude)
	} else {
		ranked, err = h.dispatch.FindNearestTechnicians(c.Context(), *req.Latitude, *req.Longitude, req.Department)
	}
	if err != nil {
		return err
	}

	items := make([]dto.TechnicianResponse, 0, len(ranked))
	for _, r := range ranked {
		items = append(items, dto.FromRankedTechnician(r))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AssignIssue POST /api/technicians/:techId/assign/:issueId.
func (h *TechniciansHandler) AssignIssue(c *fiber.Ctx) error {
	techID, err := parseID(c, "techId")
	if err != nil {
		return err
	}
	issueID, err := parseID(c, "issueId")
	if err != nil {
		return err
	}
	if err := h.dispatch.AssignTechnician(c.Context(), techID, issueID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"assigned": true}})
}

// StartWork POST /api/technicians/:techId/start/:issueId.
func (h *TechniciansHandler) StartWork(c *fiber.Ctx) error {
	techID, err := parseID(c, "techId")
	if err != nil {
		return err
	}
	issueID, err := parseID(c, "issueId")
	if err != nil {
		return err
	}
	issue, err := h.dispatch.StartWork(c.Context(), techID, issueID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromIssue(issue)})
}

// CompleteWork POST /api/technicians/:techId/complete/:issueId.
func (h *TechniciansHandler) CompleteWork(c *fiber.Ctx) error {
	techID, err := parseID(c, "techId")
	if err != nil {
		return err
	}
	issueID, err := parseID(c, "issueId")
	if err != nil {
		return err
	}
	issue, err := h.dispatch.CompleteWork(c.Context(), techID, issueID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromIssue(issue)})
}

// CreateTeam POST /api/teams.
func (h *TechniciansHandler) CreateTeam(c *fiber.Ctx) error {
	var req dto.CreateTeamRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	team, err := h.technicians.CreateTeam(c.Context(), req.Name, req.Department, req.Description)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromTeam(team)})
}

// ListTeams GET /api/teams.
func (h *TechniciansHandler) ListTeams(c *fiber.Ctx) error {
	var department *string
	if s := c.Query("department"); s != "" {
		department = &s
	}
	includeInactive := c.Query("include_inactive") == "true"
	teams, err := h.technicians.ListTeams(c.Context(), department, includeInactive)
	if err != nil {
		return err
	}
	items := make([]dto.TeamResponse, 0, len(teams))
	for i := range teams {
		items = append(items, dto.FromTeam(&teams[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
