package events

import (
	"time"

	"github.com/spec-kit/municipal-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventIssueCreated       EventType = "issue_created"
	EventIssueStatusChanged EventType = "issue_status_changed"
	EventIssueAssigned      EventType = "issue_assigned"
	EventIssueEscalated     EventType = "issue_escalated"
	EventIssueNoteAdded     EventType = "issue_note_added"
	EventPaymentReceived    EventType = "payment_received"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type    domain.SubjectType `json:"type"`
	UserID  *int64             `json:"user_id,omitempty"`
	StaffID *int64             `json:"staff_id,omitempty"`
	Name    string             `json:"name,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	IssueID   int64     `json:"issue_id,omitempty"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// IssueCreatedPayload payload.
type IssueCreatedPayload struct {
	ReferenceNumber string               `json:"reference_number"`
	Category        domain.IssueCategory `json:"category"`
	Priority        domain.IssuePriority `json:"priority"`
	Ward            *string              `json:"ward,omitempty"`
	Title           string               `json:"title"`
}

// IssueStatusChangedPayload payload.
type IssueStatusChangedPayload struct {
	OldStatus domain.IssueStatus `json:"old_status"`
	NewStatus domain.IssueStatus `json:"new_status"`
}

// IssueAssignedPayload payload.
type IssueAssignedPayload struct {
	TechnicianID int64   `json:"technician_id"`
	DistanceKm   float64 `json:"distance_km,omitempty"`
}

// IssueEscalatedPayload payload.
type IssueEscalatedPayload struct {
	EscalationID int64  `json:"escalation_id"`
	Reason       string `json:"reason"`
}

// IssueNoteAddedPayload payload.
type IssueNoteAddedPayload struct {
	NoteID   int64  `json:"note_id"`
	NoteType string `json:"note_type"`
}

// PaymentReceivedPayload payload.
type PaymentReceivedPayload struct {
	PaymentID int64   `json:"payment_id"`
	Amount    float64 `json:"amount"`
}
