package service

import (
	"context"
	"strings"

	"github.com/spec-kit/municipal-service/internal/domain"
	"github.com/spec-kit/municipal-service/internal/repository"
	apperrors "github.com/spec-kit/municipal-service/pkg/util"
)

// TechnicianService manages technician records, teams and self-reported
// status updates.
type TechnicianService struct {
	technicians repository.TechnicianRepository
	teams       repository.TeamRepository
}

// TechnicianCreateInput describes the admin payload for a new technician.
type TechnicianCreateInput struct {
	Name            string
	Phone           string
	Email           string
	Department      string
	Skills          []string
	CurrentLocation string
	Latitude        *float64
	Longitude       *float64
}

// TechnicianUpdateCommand enumerates mutable technician fields.
type TechnicianUpdateCommand struct {
	Name            *string
	Phone           *string
	Email           *string
	Department      *string
	Skills          []string
	Status          *domain.TechnicianStatus
	CurrentLocation *string
	Latitude        *float64
	Longitude       *float64
}

// NewTechnicianService constructs the service.
func NewTechnicianService(technicians repository.TechnicianRepository, teams repository.TeamRepository) *TechnicianService {
	return &TechnicianService{technicians: technicians, teams: teams}
}

// CreateTechnician registers a new field technician.
func (s *TechnicianService) CreateTechnician(ctx context.Context, input TechnicianCreateInput) (*domain.Technician, error) {
	if strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.Department) == "" {
		return nil, apperrors.NewValidationError("name and department required", nil)
	}
	tech := &domain.Technician{
		Name:            strings.TrimSpace(input.Name),
		Phone:           input.Phone,
		Email:           input.Email,
		Department:      input.Department,
		Skills:          input.Skills,
		Status:          domain.TechnicianAvailable,
		CurrentLocation: input.CurrentLocation,
		Latitude:        input.Latitude,
		Longitude:       input.Longitude,
	}
	if err := s.technicians.Create(ctx, tech); err != nil {
		return nil, apperrors.MapError(err)
	}
	return tech, nil
}

// GetTechnician fetches a single technician.
func (s *TechnicianService) GetTechnician(ctx context.Context, id int64) (*domain.Technician, error) {
	tech, err := s.technicians.GetByID(ctx, id)
	if err != nil {
		return nil, mapTechnicianErr(err, id)
	}
	return tech, nil
}

// ListTechnicians returns technicians matching the filter.
func (s *TechnicianService) ListTechnicians(ctx context.Context, filter repository.TechnicianFilter) ([]domain.Technician, error) {
	techs, err := s.technicians.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return techs, nil
}

// UpdateTechnician applies a partial update, including self-reported status
// and location changes from the field.
func (s *TechnicianService) UpdateTechnician(ctx context.Context, id int64, cmd TechnicianUpdateCommand) (*domain.Technician, error) {
	tech, err := s.technicians.GetByID(ctx, id)
	if err != nil {
		return nil, mapTechnicianErr(err, id)
	}
	if cmd.Name != nil {
		tech.Name = strings.TrimSpace(*cmd.Name)
	}
	if cmd.Phone != nil {
		tech.Phone = *cmd.Phone
	}
	if cmd.Email != nil {
		tech.Email = *cmd.Email
	}
	if cmd.Department != nil {
		tech.Department = *cmd.Department
	}
	if cmd.Skills != nil {
		tech.Skills = cmd.Skills
	}
	if cmd.Status != nil {
		tech.Status = *cmd.Status
	}
	if cmd.CurrentLocation != nil {
		tech.CurrentLocation = *cmd.CurrentLocation
	}
	if cmd.Latitude != nil {
		tech.Latitude = cmd.Latitude
	}
	if cmd.Longitude != nil {
		tech.Longitude = cmd.Longitude
	}
	if err := s.technicians.Update(ctx, tech); err != nil {
		return nil, mapTechnicianErr(err, id)
	}
	return tech, nil
}

// CreateTeam registers a technician crew under a department.
func (s *TechnicianService) CreateTeam(ctx context.Context, name, department, description string) (*domain.Team, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(department) == "" {
		return nil, apperrors.NewValidationError("name and department required", nil)
	}
	team := &domain.Team{
		Name:        strings.TrimSpace(name),
		Department:  department,
		Description: description,
		IsActive:    true,
	}
	if err := s.teams.Create(ctx, team); err != nil {
		return nil, apperrors.MapError(err)
	}
	return team, nil
}

// ListTeams returns teams, optionally scoped to a department.
func (s *TechnicianService) ListTeams(ctx context.Context, department *string, includeInactive bool) ([]domain.Team, error) {
	teams, err := s.teams.List(ctx, department, includeInactive)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return teams, nil
}
