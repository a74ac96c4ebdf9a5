package dto

import (
	"time"

	"github.com/spec-kit/municipal-service/internal/domain"
)

// CreateIssueRequest payload.
type CreateIssueRequest struct {
	Title         string               `json:"title"`
	Description   string               `json:"description"`
	Category      domain.IssueCategory `json:"category"`
	Priority      domain.IssuePriority `json:"priority"`
	Location      string               `json:"location"`
	Ward          *string              `json:"ward"`
	ReporterName  *string              `json:"reporterName"`
	ReporterPhone *string              `json:"reporterPhone"`
	Photos        []string             `json:"photos"`
}

// UpdateIssueRequest payload for partial updates. Absent fields are left
// unchanged.
type UpdateIssueRequest struct {
	Title       *string               `json:"title"`
	Description *string               `json:"description"`
	Category    *domain.IssueCategory `json:"category"`
	Priority    *domain.IssuePriority `json:"priority"`
	Status      *domain.IssueStatus   `json:"status"`
	Location    *string               `json:"location"`
	Ward        *string               `json:"ward"`
	AssignedTo  *int64                `json:"assignedTo"`
	Photos      []string              `json:"photos"`
}

// RateIssueRequest payload.
type RateIssueRequest struct {
	Rating   int     `json:"rating"`
	Feedback *string `json:"feedback"`
}

// AddNoteRequest payload.
type AddNoteRequest struct {
	Note          string `json:"note"`
	NoteType      string `json:"noteType"`
	CreatedBy     string `json:"createdBy"`
	CreatedByRole string `json:"createdByRole"`
}

// EscalateIssueRequest payload.
type EscalateIssueRequest struct {
	EscalationReason string `json:"escalationReason"`
	EscalatedBy      string `json:"escalatedBy"`
	EscalatedByRole  string `json:"escalatedByRole"`
}

// IssueResponse is the wire representation of an issue.
type IssueResponse struct {
	ID              int64                `json:"id"`
	ReferenceNumber string               `json:"referenceNumber"`
	Title           string               `json:"title"`
	Description     string               `json:"description"`
	Category        domain.IssueCategory `json:"category"`
	Priority        domain.IssuePriority `json:"priority"`
	Status          domain.IssueStatus   `json:"status"`
	Location        string               `json:"location"`
	Ward            *string              `json:"ward"`
	ReporterName    *string              `json:"reporterName"`
	ReporterPhone   *string              `json:"reporterPhone"`
	AssignedTo      *int64               `json:"assignedTo"`
	Photos          []string             `json:"photos"`
	Rating          *int                 `json:"rating"`
	Feedback        *string              `json:"feedback"`
	CreatedAt       time.Time            `json:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
	ResolvedAt      *time.Time           `json:"resolvedAt"`
}

// NoteResponse is the wire representation of an issue note.
type NoteResponse struct {
	ID            int64     `json:"id"`
	IssueID       int64     `json:"issueId"`
	Note          string    `json:"note"`
	NoteType      string    `json:"noteType"`
	CreatedBy     string    `json:"createdBy"`
	CreatedByRole string    `json:"createdByRole"`
	CreatedAt     time.Time `json:"createdAt"`
}

// EscalationResponse is the wire representation of an escalation.
type EscalationResponse struct {
	ID               int64                   `json:"id"`
	IssueID          int64                   `json:"issueId"`
	EscalationReason string                  `json:"escalationReason"`
	EscalatedBy      string                  `json:"escalatedBy"`
	EscalatedByRole  string                  `json:"escalatedByRole"`
	Priority         domain.IssuePriority    `json:"priority"`
	Status           domain.EscalationStatus `json:"status"`
	CreatedAt        time.Time               `json:"createdAt"`
}

// FromIssue maps a domain issue onto its response shape.
func FromIssue(issue *domain.Issue) IssueResponse {
	return IssueResponse{
		ID:              issue.ID,
		ReferenceNumber: issue.ReferenceNumber,
		Title:           issue.Title,
		Description:     issue.Description,
		Category:        issue.Category,
		Priority:        issue.Priority,
		Status:          issue.Status,
		Location:        issue.Location,
		Ward:            issue.Ward,
		ReporterName:    issue.ReporterName,
		ReporterPhone:   issue.ReporterPhone,
		AssignedTo:      issue.AssignedTo,
		Photos:          issue.Photos,
		Rating:          issue.Rating,
		Feedback:        issue.Feedback,
		CreatedAt:       issue.CreatedAt,
		UpdatedAt:       issue.UpdatedAt,
		ResolvedAt:      issue.ResolvedAt,
	}
}

// FromNote maps a domain note onto its response shape.
func FromNote(note *domain.IssueNote) NoteResponse {
	return NoteResponse{
		ID:            note.ID,
		IssueID:       note.IssueID,
		Note:          note.Note,
		NoteType:      note.NoteType,
		CreatedBy:     note.CreatedBy,
		CreatedByRole: note.CreatedByRole,
		CreatedAt:     note.CreatedAt,
	}
}

// FromEscalation maps a domain escalation onto its response shape.
func FromEscalation(esc *domain.IssueEscalation) EscalationResponse {
	return EscalationResponse{
		ID:               esc.ID,
		IssueID:          esc.IssueID,
		EscalationReason: esc.EscalationReason,
		EscalatedBy:      esc.EscalatedBy,
		EscalatedByRole:  esc.EscalatedByRole,
		Priority:         esc.Priority,
		Status:           esc.Status,
		CreatedAt:        esc.CreatedAt,
	}
}
