package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/municipal-service/internal/api/dto"
	"github.com/spec-kit/municipal-service/internal/auth"
	"github.com/spec-kit/municipal-service/internal/domain"
	"github.com/spec-kit/municipal-service/internal/repository"
	"github.com/spec-kit/municipal-service/internal/service"
	apperrors "github.com/spec-kit/municipal-service/pkg/util"
)

// IssuesHandler manages citizen-facing and staff-facing issue endpoints.
type IssuesHandler struct {
	service *service.IssueService
}

// NewIssuesHandler constructs handler.
func NewIssuesHandler(issueService *service.IssueService) *IssuesHandler {
	return &IssuesHandler{service: issueService}
}

// CreateIssue POST /api/issues. Submission is open to the public; a
// logged-in citizen gets the issue linked to their account.
func (h *IssuesHandler) CreateIssue(c *fiber.Ctx) error {
	var req dto.CreateIssueRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.IssueCreateInput{
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		Priority:      req.Priority,
		Location:      req.Location,
		Ward:          req.Ward,
		ReporterName:  req.ReporterName,
		ReporterPhone: req.ReporterPhone,
		Photos:        req.Photos,
	}
	if principal, ok := auth.PrincipalFromContext(c); ok && principal.User != nil {
		input.ReporterUserID = &principal.User.ID
		if input.ReporterName == nil {
			input.ReporterName = &principal.User.Name
		}
		if input.ReporterPhone == nil {
			input.ReporterPhone = principal.User.Phone
		}
	}

	issue, err := h.service.CreateIssue(c.Context(), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromIssue(issue)})
}

// ListIssues GET /api/issues.
func (h *IssuesHandler) ListIssues(c *fiber.Ctx) error {
	issues, err := h.service.ListIssues(c.Context(), parseIssueQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.IssueResponse, 0, len(issues))
	for i := range issues {
		items = append(items, dto.FromIssue(&issues[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetIssue GET /api/issues/:id.
func (h *IssuesHandler) GetIssue(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	issue, err := h.service.GetIssue(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromIssue(issue)})
}

// TrackIssue GET /api/issues/reference/:reference. Public tracking by
// reference number.
func (h *IssuesHandler) TrackIssue(c *fiber.Ctx) error {
	ref := strings.TrimSpace(c.Params("reference"))
	if ref == "" {
		return apperrors.NewValidationError("reference required", nil)
	}
	issue, err := h.service.GetIssueByReference(c.Context(), ref)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromIssue(issue)})
}

// UpdateIssue PATCH /api/issues/:id.
func (h *IssuesHandler) UpdateIssue(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateIssueRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	cmd := service.UpdateIssueCommand{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
		Status:      req.Status,
		Location:    req.Location,
		Ward:        req.Ward,
		AssignedTo:  req.AssignedTo,
		Photos:      req.Photos,
	}
	issue, err := h.service.UpdateIssue(c.Context(), id, cmd)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromIssue(issue)})
}

// DeleteIssue DELETE /api/issues/:id.
func (h *IssuesHandler) DeleteIssue(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.DeleteIssue(c.Context(), id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// RateIssue POST /api/issues/:id/rating.
func (h *IssuesHandler) RateIssue(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.RateIssueRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	issue, err := h.service.RateIssue(c.Context(), id, req.Rating, req.Feedback)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromIssue(issue)})
}

// AddNote POST /api/issues/:id/notes.
func (h *IssuesHandler) AddNote(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.AddNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	createdBy, createdByRole := noteAuthor(c, req.CreatedBy, req.CreatedByRole)
	note, err := h.service.AddNote(c.Context(), id, req.Note, req.NoteType, createdBy, createdByRole)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromNote(note)})
}

// ListNotes GET /api/issues/:id/notes.
func (h *IssuesHandler) ListNotes(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	notes, err := h.service.ListNotes(c.Context(), id)
	if err != nil {
		return err
	}
	items := make([]dto.NoteResponse, 0, len(notes))
	for i := range notes {
		items = append(items, dto.FromNote(&notes[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// EscalateIssue POST /api/issues/:id/escalate.
func (h *IssuesHandler) EscalateIssue(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.EscalateIssueRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	escalatedBy, escalatedByRole := noteAuthor(c, req.EscalatedBy, req.EscalatedByRole)
	esc, err := h.service.EscalateIssue(c.Context(), id, req.EscalationReason, escalatedBy, escalatedByRole)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromEscalation(esc)})
}

// ListEscalations GET /api/issues/:id/escalations.
func (h *IssuesHandler) ListEscalations(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	escalations, err := h.service.ListEscalations(c.Context(), id)
	if err != nil {
		return err
	}
	items := make([]dto.EscalationResponse, 0, len(escalations))
	for i := range escalations {
		items = append(items, dto.FromEscalation(&escalations[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// noteAuthor prefers the authenticated principal's identity over the payload.
func noteAuthor(c *fiber.Ctx, fallbackName, fallbackRole string) (string, string) {
	if principal, ok := auth.PrincipalFromContext(c); ok {
		if principal.Staff != nil {
			return principal.Staff.Name, string(principal.Staff.Role)
		}
		if principal.User != nil {
			return principal.User.Name, "CITIZEN"
		}
	}
	return fallbackName, fallbackRole
}

func parseIssueQuery(c *fiber.Ctx) repository.IssueFilter {
	filter := repository.IssueFilter{}
	if s := c.Query("status"); s != "" {
		status := domain.IssueStatus(s)
		filter.Status = &status
	}
	if s := c.Query("category"); s != "" {
		category := domain.IssueCategory(s)
		filter.Category = &category
	}
	if s := c.Query("priority"); s != "" {
		priority := domain.IssuePriority(s)
		filter.Priority = &priority
	}
	if s := c.Query("ward"); s != "" {
		ward := s
		filter.Ward = &ward
	}
	if s := c.Query("assigned_to"); s != "" {
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			filter.AssignedTo = &id
		}
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseID(c *fiber.Ctx, param string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(param), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid "+param, nil)
	}
	return id, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
