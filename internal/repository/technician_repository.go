package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/municipal-service/internal/domain"
)

// TechnicianFilter defines query params for technician listing.
type TechnicianFilter struct {
	Status     *domain.TechnicianStatus
	Department *string
	Limit      int
	Offset     int
}

// TechnicianRepository handles persistence for field technicians.
type TechnicianRepository interface {
	Create(ctx context.Context, tech *domain.Technician) error
	Update(ctx context.Context, tech *domain.Technician) error
	GetByID(ctx context.Context, id int64) (*domain.Technician, error)
	List(ctx context.Context, filter TechnicianFilter) ([]domain.Technician, error)
}

type technicianRepository struct {
	pool *pgxpool.Pool
}

// NewTechnicianRepository instantiates the repository.
func NewTechnicianRepository(pool *pgxpool.Pool) TechnicianRepository {
	return &technicianRepository{pool: pool}
}

const technicianColumns = `id, name, phone, email, department, skills, status, current_location,
               latitude, longitude, completed_issues, avg_resolution_hours, rating,
               created_at, updated_at`

func (r *technicianRepository) Create(ctx context.Context, tech *domain.Technician) error {
	const query = `
        INSERT INTO technicians (name, phone, email, department, skills, status,
                                 current_location, latitude, longitude)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		tech.Name,
		tech.Phone,
		tech.Email,
		tech.Department,
		tech.Skills,
		tech.Status,
		tech.CurrentLocation,
		tech.Latitude,
		tech.Longitude,
	).Scan(&tech.ID, &tech.CreatedAt, &tech.UpdatedAt)
}

func (r *technicianRepository) Update(ctx context.Context, tech *domain.Technician) error {
	const query = `
        UPDATE technicians
        SET name=$1, phone=$2, email=$3, department=$4, skills=$5, status=$6,
            current_location=$7, latitude=$8, longitude=$9, completed_issues=$10,
            avg_resolution_hours=$11, rating=$12, updated_at=NOW()
        WHERE id=$13`
	cmd, err := r.pool.Exec(ctx, query,
		tech.Name,
		tech.Phone,
		tech.Email,
		tech.Department,
		tech.Skills,
		tech.Status,
		tech.CurrentLocation,
		tech.Latitude,
		tech.Longitude,
		tech.CompletedIssues,
		tech.AvgResolutionHours,
		tech.Rating,
		tech.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *technicianRepository) GetByID(ctx context.Context, id int64) (*domain.Technician, error) {
	query := fmt.Sprintf(`SELECT %s FROM technicians WHERE id=$1`, technicianColumns)
	var tech domain.Technician
	if err := scanTechnician(r.pool.QueryRow(ctx, query, id), &tech); err != nil {
		return nil, err
	}
	return &tech, nil
}

func (r *technicianRepository) List(ctx context.Context, filter TechnicianFilter) ([]domain.Technician, error) {
	query := fmt.Sprintf(`SELECT %s FROM technicians`, technicianColumns)
	args := []any{}
	clauses := []string{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Department != nil {
		args = append(args, *filter.Department)
		clauses = append(clauses, fmt.Sprintf("department=$%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY name ASC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Technician
	for rows.Next() {
		var tech domain.Technician
		if err := scanTechnician(rows, &tech); err != nil {
			return nil, err
		}
		result = append(result, tech)
	}
	return result, rows.Err()
}

func scanTechnician(row pgx.Row, tech *domain.Technician) error {
	return row.Scan(
		&tech.ID,
		&tech.Name,
		&tech.Phone,
		&tech.Email,
		&tech.Department,
		&tech.Skills,
		&tech.Status,
		&tech.CurrentLocation,
		&tech.Latitude,
		&tech.Longitude,
		&tech.CompletedIssues,
		&tech.AvgResolutionHours,
		&tech.Rating,
		&tech.CreatedAt,
		&tech.UpdatedAt,
	)
}
