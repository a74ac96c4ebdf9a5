package domain

import "time"

// IssueNote is an append-only annotation on an issue. Notes are never edited
// or deleted once created; corrections are new notes.
type IssueNote struct {
	ID            int64
	IssueID       int64
	Note          string
	NoteType      string
	CreatedBy     string
	CreatedByRole string
	CreatedAt     time.Time
}

// EscalationStatus tracks whether an escalation has been acted on.
type EscalationStatus string

const (
	EscalationPending  EscalationStatus = "pending"
	EscalationReviewed EscalationStatus = "reviewed"
)

// IssueEscalation is an append-only record of a forced-urgent flag with its
// justification. Creating one also forces the parent issue to urgent priority.
type IssueEscalation struct {
	ID               int64
	IssueID          int64
	EscalationReason string
	EscalatedBy      string
	EscalatedByRole  string
	Priority         IssuePriority
	Status           EscalationStatus
	CreatedAt        time.Time
}
