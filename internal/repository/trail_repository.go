package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/municipal-service/internal/domain"
)

// NoteRepository stores append-only issue notes.
type NoteRepository interface {
	Create(ctx context.Context, note *domain.IssueNote) error
	ListByIssue(ctx context.Context, issueID int64) ([]domain.IssueNote, error)
}

type noteRepository struct {
	pool *pgxpool.Pool
}

// NewNoteRepository builds the repository.
func NewNoteRepository(pool *pgxpool.Pool) NoteRepository {
	return &noteRepository{pool: pool}
}

func (r *noteRepository) Create(ctx context.Context, note *domain.IssueNote) error {
	const query = `
        INSERT INTO issue_notes (issue_id, note, note_type, created_by, created_by_role)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		note.IssueID,
		note.Note,
		note.NoteType,
		note.CreatedBy,
		note.CreatedByRole,
	).Scan(&note.ID, &note.CreatedAt)
}

func (r *noteRepository) ListByIssue(ctx context.Context, issueID int64) ([]domain.IssueNote, error) {
	const query = `
        SELECT id, issue_id, note, note_type, created_by, created_by_role, created_at
        FROM issue_notes WHERE issue_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, issueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.IssueNote
	for rows.Next() {
		var note domain.IssueNote
		if err := rows.Scan(
			&note.ID,
			&note.IssueID,
			&note.Note,
			&note.NoteType,
			&note.CreatedBy,
			&note.CreatedByRole,
			&note.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, note)
	}
	return result, rows.Err()
}

// EscalationRepository stores append-only escalation records.
type EscalationRepository interface {
	// Create inserts the escalation and forces the parent issue to urgent
	// priority in the same transaction, so an escalation record always
	// implies an urgent issue.
	Create(ctx context.Context, esc *domain.IssueEscalation) error
	ListByIssue(ctx context.Context, issueID int64) ([]domain.IssueEscalation, error)
}

type escalationRepository struct {
	pool *pgxpool.Pool
}

// NewEscalationRepository builds the repository.
func NewEscalationRepository(pool *pgxpool.Pool) EscalationRepository {
	return &escalationRepository{pool: pool}
}

func (r *escalationRepository) Create(ctx context.Context, esc *domain.IssueEscalation) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const insert = `
        INSERT INTO issue_escalations (issue_id, escalation_reason, escalated_by, escalated_by_role, priority, status)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	if err := tx.QueryRow(ctx, insert,
		esc.IssueID,
		esc.EscalationReason,
		esc.EscalatedBy,
		esc.EscalatedByRole,
		esc.Priority,
		esc.Status,
	).Scan(&esc.ID, &esc.CreatedAt); err != nil {
		return err
	}

	cmd, err := tx.Exec(ctx,
		`UPDATE issues SET priority=$1, updated_at=NOW() WHERE id=$2`,
		domain.IssuePriorityUrgent, esc.IssueID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return tx.Commit(ctx)
}

func (r *escalationRepository) ListByIssue(ctx context.Context, issueID int64) ([]domain.IssueEscalation, error) {
	const query = `
        SELECT id, issue_id, escalation_reason, escalated_by, escalated_by_role, priority, status, created_at
        FROM issue_escalations WHERE issue_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, issueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.IssueEscalation
	for rows.Next() {
		var esc domain.IssueEscalation
		if err := rows.Scan(
			&esc.ID,
			&esc.IssueID,
			&esc.EscalationReason,
			&esc.EscalatedBy,
			&esc.EscalatedByRole,
			&esc.Priority,
			&esc.Status,
			&esc.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, esc)
	}
	return result, rows.Err()
}
