package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/municipal-service/internal/domain"
)

// Assignment conflict reasons surfaced to the dispatch service. Missing rows
// are reported as pgx.ErrNoRows like every other repository.
var (
	ErrTechnicianUnavailable = errors.New("technician not available")
	ErrIssueAlreadyAssigned  = errors.New("issue already assigned")
	ErrStaleWorkState        = errors.New("issue state changed")
)

// AssignmentRepository performs the dispatch writes that must be atomic. Each
// method commits the issue and technician rows in one transaction so a crash
// between the two writes cannot leave them disagreeing.
type AssignmentRepository interface {
	// AssignIssue commits issue.assigned_to and status='assigned' only if the
	// technician is still available and the issue is still unassigned.
	AssignIssue(ctx context.Context, issueID, technicianID int64) error
	// StartWork flips the issue to in_progress and the technician to on_job,
	// only while the issue is still assigned to that technician.
	StartWork(ctx context.Context, issueID, technicianID int64) error
	// CompleteWork resolves the issue, stamps resolved_at once, frees the
	// technician and folds resolutionHours into its running average.
	CompleteWork(ctx context.Context, issueID, technicianID int64, resolvedAt time.Time, resolutionHours float64) error
}

type assignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository instantiates the repository.
func NewAssignmentRepository(pool *pgxpool.Pool) AssignmentRepository {
	return &assignmentRepository{pool: pool}
}

func (r *assignmentRepository) AssignIssue(ctx context.Context, issueID, technicianID int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Lock the technician row so two concurrent dispatches cannot both read
	// "available" and double-book.
	var techStatus domain.TechnicianStatus
	if err := tx.QueryRow(ctx,
		`SELECT status FROM technicians WHERE id=$1 FOR UPDATE`, technicianID,
	).Scan(&techStatus); err != nil {
		return err
	}
	if techStatus != domain.TechnicianAvailable {
		return ErrTechnicianUnavailable
	}

	var assignedTo *int64
	if err := tx.QueryRow(ctx,
		`SELECT assigned_to FROM issues WHERE id=$1 FOR UPDATE`, issueID,
	).Scan(&assignedTo); err != nil {
		return err
	}
	if assignedTo != nil {
		return ErrIssueAlreadyAssigned
	}

	cmd, err := tx.Exec(ctx,
		`UPDATE issues SET assigned_to=$1, status=$2, updated_at=NOW() WHERE id=$3`,
		technicianID, domain.IssueStatusAssigned, issueID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return tx.Commit(ctx)
}

func (r *assignmentRepository) StartWork(ctx context.Context, issueID, technicianID int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	cmd, err := tx.Exec(ctx,
		`UPDATE issues SET status=$1, updated_at=NOW()
		 WHERE id=$2 AND assigned_to=$3 AND status=$4`,
		domain.IssueStatusInProgress, issueID, technicianID, domain.IssueStatusAssigned,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStaleWorkState
	}
	if _, err := tx.Exec(ctx,
		`UPDATE technicians SET status=$1, updated_at=NOW() WHERE id=$2`,
		domain.TechnicianOnJob, technicianID,
	); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *assignmentRepository) CompleteWork(ctx context.Context, issueID, technicianID int64, resolvedAt time.Time, resolutionHours float64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	cmd, err := tx.Exec(ctx,
		`UPDATE issues SET status=$1, resolved_at=COALESCE(resolved_at, $2), updated_at=NOW()
		 WHERE id=$3 AND assigned_to=$4 AND status=$5`,
		domain.IssueStatusResolved, resolvedAt, issueID, technicianID, domain.IssueStatusInProgress,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStaleWorkState
	}
	if _, err := tx.Exec(ctx,
		`UPDATE technicians SET status=$1,
		   avg_resolution_hours=(avg_resolution_hours*completed_issues + $2)/(completed_issues+1),
		   completed_issues=completed_issues+1, updated_at=NOW()
		 WHERE id=$3`,
		domain.TechnicianAvailable, resolutionHours, technicianID,
	); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
