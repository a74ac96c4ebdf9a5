package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/municipal-service/internal/domain"
)

// IssueFilter captures listing parameters for issues.
type IssueFilter struct {
	Status     *domain.IssueStatus
	Category   *domain.IssueCategory
	Priority   *domain.IssuePriority
	Ward       *string
	AssignedTo *int64
	ReporterID *int64
	Limit      int
	Offset     int
}

// IssueRepository encapsulates issue persistence.
type IssueRepository interface {
	Create(ctx context.Context, issue *domain.Issue) error
	Update(ctx context.Context, issue *domain.Issue) error
	GetByID(ctx context.Context, id int64) (*domain.Issue, error)
	GetByReference(ctx context.Context, ref string) (*domain.Issue, error)
	List(ctx context.Context, filter IssueFilter) ([]domain.Issue, error)
	Delete(ctx context.Context, id int64) error
}

type issueRepository struct {
	pool *pgxpool.Pool
}

// NewIssueRepository instantiates the repository.
func NewIssueRepository(pool *pgxpool.Pool) IssueRepository {
	return &issueRepository{pool: pool}
}

const issueColumns = `id, reference_number, title, description, category, priority, status,
               location, ward, reporter_name, reporter_phone, reporter_user_id,
               assigned_to, photos, rating, feedback, created_at, updated_at, resolved_at`

func (r *issueRepository) Create(ctx context.Context, issue *domain.Issue) error {
	const query = `
        INSERT INTO issues (reference_number, title, description, category, priority, status,
                            location, ward, reporter_name, reporter_phone, reporter_user_id, photos)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		issue.ReferenceNumber,
		issue.Title,
		issue.Description,
		issue.Category,
		issue.Priority,
		issue.Status,
		issue.Location,
		issue.Ward,
		issue.ReporterName,
		issue.ReporterPhone,
		issue.ReporterUserID,
		issue.Photos,
	).Scan(&issue.ID, &issue.CreatedAt, &issue.UpdatedAt)
}

func (r *issueRepository) Update(ctx context.Context, issue *domain.Issue) error {
	const query = `
        UPDATE issues SET title=$1, description=$2, category=$3, priority=$4, status=$5,
            location=$6, ward=$7, assigned_to=$8, photos=$9, rating=$10, feedback=$11,
            resolved_at=$12, updated_at=NOW()
        WHERE id=$13
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		issue.Title,
		issue.Description,
		issue.Category,
		issue.Priority,
		issue.Status,
		issue.Location,
		issue.Ward,
		issue.AssignedTo,
		issue.Photos,
		issue.Rating,
		issue.Feedback,
		issue.ResolvedAt,
		issue.ID,
	).Scan(&issue.UpdatedAt)
}

func (r *issueRepository) GetByID(ctx context.Context, id int64) (*domain.Issue, error) {
	query := fmt.Sprintf(`SELECT %s FROM issues WHERE id=$1`, issueColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *issueRepository) GetByReference(ctx context.Context, ref string) (*domain.Issue, error) {
	query := fmt.Sprintf(`SELECT %s FROM issues WHERE reference_number=$1`, issueColumns)
	return r.fetchSingle(ctx, query, ref)
}

func (r *issueRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Issue, error) {
	var issue domain.Issue
	if err := scanIssue(r.pool.QueryRow(ctx, query, arg), &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

func (r *issueRepository) List(ctx context.Context, filter IssueFilter) ([]domain.Issue, error) {
	base := fmt.Sprintf(`SELECT %s FROM issues`, issueColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		clauses = append(clauses, fmt.Sprintf("priority=$%d", len(args)))
	}
	if filter.Ward != nil {
		args = append(args, *filter.Ward)
		clauses = append(clauses, fmt.Sprintf("ward=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if filter.ReporterID != nil {
		args = append(args, *filter.ReporterID)
		clauses = append(clauses, fmt.Sprintf("reporter_user_id=$%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Issue
	for rows.Next() {
		var issue domain.Issue
		if err := scanIssue(rows, &issue); err != nil {
			return nil, err
		}
		result = append(result, issue)
	}
	return result, rows.Err()
}

// Delete removes an issue and its dependent notes and escalations in one
// transaction so the audit trail never orphans.
func (r *issueRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM issue_notes WHERE issue_id=$1`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM issue_escalations WHERE issue_id=$1`, id); err != nil {
		return err
	}
	cmd, err := tx.Exec(ctx, `DELETE FROM issues WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return tx.Commit(ctx)
}

func scanIssue(row pgx.Row, issue *domain.Issue) error {
	return row.Scan(
		&issue.ID,
		&issue.ReferenceNumber,
		&issue.Title,
		&issue.Description,
		&issue.Category,
		&issue.Priority,
		&issue.Status,
		&issue.Location,
		&issue.Ward,
		&issue.ReporterName,
		&issue.ReporterPhone,
		&issue.ReporterUserID,
		&issue.AssignedTo,
		&issue.Photos,
		&issue.Rating,
		&issue.Feedback,
		&issue.CreatedAt,
		&issue.UpdatedAt,
		&issue.ResolvedAt,
	)
}
