package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/municipal-service/internal/domain"
	"github.com/spec-kit/municipal-service/internal/events"
	"github.com/spec-kit/municipal-service/internal/geo"
	"github.com/spec-kit/municipal-service/internal/repository"
	apperrors "github.com/spec-kit/municipal-service/pkg/util"
)

// DispatchService matches available technicians to issues and records
// assignments.
type DispatchService struct {
	issues      repository.IssueRepository
	technicians repository.TechnicianRepository
	assignments repository.AssignmentRepository
	dispatcher  events.Dispatcher
}

// DispatchDependencies bundles repositories for the dispatch service.
type DispatchDependencies struct {
	IssueRepo      repository.IssueRepository
	TechnicianRepo repository.TechnicianRepository
	AssignmentRepo repository.AssignmentRepository
	Dispatcher     events.Dispatcher
}

// RankedTechnician pairs a technician with its distance from a point.
type RankedTechnician struct {
	Technician domain.Technician
	DistanceKm float64
}

// NewDispatchService constructs the service.
func NewDispatchService(deps DispatchDependencies) *DispatchService {
	return &DispatchService{
		issues:      deps.IssueRepo,
		technicians: deps.TechnicianRepo,
		assignments: deps.AssignmentRepo,
		dispatcher:  deps.Dispatcher,
	}
}

// FindNearestTechnicians returns available technicians ranked by haversine
// distance from the given point, optionally restricted to a department.
// Technicians without known coordinates are excluded from the ranking.
func (s *DispatchService) FindNearestTechnicians(ctx context.Context, lat, lon float64, department *string) ([]RankedTechnician, error) {
	status := domain.TechnicianAvailable
	filter := repository.TechnicianFilter{
		Status:     &status,
		Department: department,
		Limit:      1000,
	}
	techs, err := s.technicians.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	ranked := make([]RankedTechnician, 0, len(techs))
	for _, tech := range techs {
		if !tech.HasCoordinates() {
			continue
		}
		ranked = append(ranked, RankedTechnician{
			Technician: tech,
			DistanceKm: geo.Distance(lat, lon, *tech.Latitude, *tech.Longitude),
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].DistanceKm < ranked[j].DistanceKm
	})
	return ranked, nil
}

// FindTechniciansForIssue ranks technicians for an issue's category using the
// category-to-department mapping. Categories without a mapped department
// cannot be auto-matched.
func (s *DispatchService) FindTechniciansForIssue(ctx context.Context, issueID int64, lat, lon float64) ([]RankedTechnician, error) {
	issue, err := s.issues.GetByID(ctx, issueID)
	if err != nil {
		return nil, mapIssueErr(err, issueID)
	}
	dept, ok := domain.DepartmentForCategory(issue.Category)
	if !ok {
		return nil, apperrors.NewValidationError("category has no department mapping", map[string]any{"category": issue.Category})
	}
	return s.FindNearestTechnicians(ctx, lat, lon, &dept)
}

// AssignTechnician dispatches a technician to an issue. The write is a
// compare-and-swap: it commits only while the technician is still available
// and the issue still unassigned, so two concurrent dispatches cannot
// double-book.
func (s *DispatchService) AssignTechnician(ctx context.Context, technicianID, issueID int64) error {
	if _, err := s.technicians.GetByID(ctx, technicianID); err != nil {
		return mapTechnicianErr(err, technicianID)
	}
	if _, err := s.issues.GetByID(ctx, issueID); err != nil {
		return mapIssueErr(err, issueID)
	}

	if err := s.assignments.AssignIssue(ctx, issueID, technicianID); err != nil {
		switch {
		case errors.Is(err, repository.ErrTechnicianUnavailable):
			return apperrors.NewConflict("technician no longer available", map[string]any{"technician_id": technicianID})
		case errors.Is(err, repository.ErrIssueAlreadyAssigned):
			return apperrors.NewConflict("issue already assigned", map[string]any{"issue_id": issueID})
		case errors.Is(err, pgx.ErrNoRows):
			return apperrors.NewNotFound("issue", map[string]any{"issue_id": issueID})
		default:
			return apperrors.MapError(err)
		}
	}

	s.publishEvent(ctx, events.Event{
		Type:    events.EventIssueAssigned,
		IssueID: issueID,
		Payload: events.IssueAssignedPayload{TechnicianID: technicianID},
	})
	return nil
}

// StartWork marks the technician on the job and the issue in progress.
// Assignment alone does not flip the technician; field technicians report
// the start of work explicitly.
func (s *DispatchService) StartWork(ctx context.Context, technicianID, issueID int64) (*domain.Issue, error) {
	if _, err := s.technicians.GetByID(ctx, technicianID); err != nil {
		return nil, mapTechnicianErr(err, technicianID)
	}
	issue, err := s.issues.GetByID(ctx, issueID)
	if err != nil {
		return nil, mapIssueErr(err, issueID)
	}
	if issue.AssignedTo == nil || *issue.AssignedTo != technicianID {
		return nil, apperrors.NewConflict("issue not assigned to technician", map[string]any{"issue_id": issueID, "technician_id": technicianID})
	}
	if issue.Status != domain.IssueStatusAssigned {
		return nil, apperrors.NewConflict("issue not in assigned state", map[string]any{"status": issue.Status})
	}

	if err := s.assignments.StartWork(ctx, issueID, technicianID); err != nil {
		return nil, mapWorkErr(err, issueID)
	}

	oldStatus := issue.Status
	issue.Status = domain.IssueStatusInProgress
	s.publishStatusChange(ctx, issue.ID, oldStatus, issue.Status)
	return issue, nil
}

// CompleteWork resolves the issue, frees the technician and folds the
// resolution time into the technician's running performance metrics.
func (s *DispatchService) CompleteWork(ctx context.Context, technicianID, issueID int64) (*domain.Issue, error) {
	if _, err := s.technicians.GetByID(ctx, technicianID); err != nil {
		return nil, mapTechnicianErr(err, technicianID)
	}
	issue, err := s.issues.GetByID(ctx, issueID)
	if err != nil {
		return nil, mapIssueErr(err, issueID)
	}
	if issue.AssignedTo == nil || *issue.AssignedTo != technicianID {
		return nil, apperrors.NewConflict("issue not assigned to technician", map[string]any{"issue_id": issueID, "technician_id": technicianID})
	}
	if issue.Status != domain.IssueStatusInProgress {
		return nil, apperrors.NewConflict("issue not in progress", map[string]any{"status": issue.Status})
	}

	oldStatus := issue.Status
	now := time.Now()
	if issue.ResolvedAt == nil {
		issue.ResolvedAt = &now
	}
	resolutionHours := issue.ResolvedAt.Sub(issue.CreatedAt).Hours()
	if err := s.assignments.CompleteWork(ctx, issueID, technicianID, *issue.ResolvedAt, resolutionHours); err != nil {
		return nil, mapWorkErr(err, issueID)
	}

	issue.Status = domain.IssueStatusResolved
	s.publishStatusChange(ctx, issue.ID, oldStatus, issue.Status)
	return issue, nil
}

func (s *DispatchService) publishStatusChange(ctx context.Context, issueID int64, oldStatus, newStatus domain.IssueStatus) {
	s.publishEvent(ctx, events.Event{
		Type:    events.EventIssueStatusChanged,
		IssueID: issueID,
		Payload: events.IssueStatusChangedPayload{OldStatus: oldStatus, NewStatus: newStatus},
	})
}

func (s *DispatchService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func mapWorkErr(err error, issueID int64) error {
	switch {
	case errors.Is(err, repository.ErrStaleWorkState):
		return apperrors.NewConflict("issue state changed", map[string]any{"issue_id": issueID})
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.NewNotFound("issue", map[string]any{"issue_id": issueID})
	default:
		return apperrors.MapError(err)
	}
}

func mapTechnicianErr(err error, id int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("technician", map[string]any{"technician_id": id})
	}
	return apperrors.MapError(err)
}
