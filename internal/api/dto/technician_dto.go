package dto

import (
	"time"

	"github.com/spec-kit/municipal-service/internal/domain"
	"github.com/spec-kit/municipal-service/internal/service"
)

// CreateTechnicianRequest payload.
type CreateTechnicianRequest struct {
	Name            string   `json:"name"`
	Phone           string   `json:"phone"`
	Email           string   `json:"email"`
	Department      string   `json:"department"`
	Skills          []string `json:"skills"`
	CurrentLocation string   `json:"currentLocation"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
}

// UpdateTechnicianRequest payload for partial updates.
type UpdateTechnicianRequest struct {
	Name            *string                  `json:"name"`
	Phone           *string                  `json:"phone"`
	Email           *string                  `json:"email"`
	Department      *string                  `json:"department"`
	Skills          []string                 `json:"skills"`
	Status          *domain.TechnicianStatus `json:"status"`
	CurrentLocation *string                  `json:"currentLocation"`
	Latitude        *float64                 `json:"latitude"`
	Longitude       *float64                 `json:"longitude"`
}

// AssignIssueRequest payload.
type AssignIssueRequest struct {
	IssueID int64 `json:"issueId"`
}

// CreateTeamRequest payload.
type CreateTeamRequest struct {
	Name        string `json:"name"`
	Department  string `json:"department"`
	Description string `json:"description"`
}

// TechnicianResponse is the wire representation of a technician. DistanceKm
// is populated only on proximity queries.
type TechnicianResponse struct {
	ID                 int64                   `json:"id"`
	Name               string                  `json:"name"`
	Phone              string                  `json:"phone"`
	Email              string                  `json:"email"`
	Department         string                  `json:"department"`
	Skills             []string                `json:"skills"`
	Status             domain.TechnicianStatus `json:"status"`
	CurrentLocation    string                  `json:"currentLocation"`
	Latitude           *float64                `json:"latitude"`
	Longitude          *float64                `json:"longitude"`
	CompletedIssues    int                     `json:"completedIssues"`
	AvgResolutionHours float64                 `json:"avgResolutionHours"`
	Rating             float64                 `json:"rating"`
	DistanceKm         *float64                `json:"distanceKm,omitempty"`
	CreatedAt          time.Time               `json:"createdAt"`
	UpdatedAt          time.Time               `json:"updatedAt"`
}

// TeamResponse is the wire representation of a team.
type TeamResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Department  string    `json:"department"`
	Description string    `json:"description"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// FromTechnician maps a domain technician onto its response shape.
func FromTechnician(tech *domain.Technician) TechnicianResponse {
	return TechnicianResponse{
		ID:                 tech.ID,
		Name:               tech.Name,
		Phone:              tech.Phone,
		Email:              tech.Email,
		Department:         tech.Department,
		Skills:             tech.Skills,
		Status:             tech.Status,
		CurrentLocation:    tech.CurrentLocation,
		Latitude:           tech.Latitude,
		Longitude:          tech.Longitude,
		CompletedIssues:    tech.CompletedIssues,
		AvgResolutionHours: tech.AvgResolutionHours,
		Rating:             tech.Rating,
		CreatedAt:          tech.CreatedAt,
		UpdatedAt:          tech.UpdatedAt,
	}
}

// FromRankedTechnician maps a distance-ranked technician, carrying the
// computed distance along.
func FromRankedTechnician(ranked service.RankedTechnician) TechnicianResponse {
	resp := FromTechnician(&ranked.Technician)
	distance := ranked.DistanceKm
	resp.DistanceKm = &distance
	return resp
}

// FromTeam maps a domain team onto its response shape.
func FromTeam(team *domain.Team) TeamResponse {
	return TeamResponse{
		ID:          team.ID,
		Name:        team.Name,
		Department:  team.Department,
		Description: team.Description,
		IsActive:    team.IsActive,
		CreatedAt:   team.CreatedAt,
		UpdatedAt:   team.UpdatedAt,
	}
}
