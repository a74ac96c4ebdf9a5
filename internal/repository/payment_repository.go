package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/municipal-service/internal/domain"
)

// PaymentFilter defines listing parameters for bills.
type PaymentFilter struct {
	UserID *int64
	Status *domain.PaymentStatus
	Limit  int
	Offset int
}

// PaymentRepository manages bill persistence.
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	Update(ctx context.Context, payment *domain.Payment) error
	GetByID(ctx context.Context, id int64) (*domain.Payment, error)
	List(ctx context.Context, filter PaymentFilter) ([]domain.Payment, error)
	// MarkOverdue flips past-due pending bills to overdue and returns how
	// many rows changed.
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
}

type paymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository builds the repository.
func NewPaymentRepository(pool *pgxpool.Pool) PaymentRepository {
	return &paymentRepository{pool: pool}
}

const paymentColumns = `id, user_id, account_number, payment_type, amount, due_date, status, paid_at, created_at, updated_at`

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	const query = `
        INSERT INTO payments (user_id, account_number, payment_type, amount, due_date, status)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		payment.UserID,
		payment.AccountNumber,
		payment.PaymentType,
		payment.Amount,
		payment.DueDate,
		payment.Status,
	).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
}

func (r *paymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	const query = `
        UPDATE payments SET status=$1, paid_at=$2, updated_at=NOW()
        WHERE id=$3`
	cmd, err := r.pool.Exec(ctx, query, payment.Status, payment.PaidAt, payment.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE id=$1`, paymentColumns)
	var payment domain.Payment
	if err := scanPayment(r.pool.QueryRow(ctx, query, id), &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) List(ctx context.Context, filter PaymentFilter) ([]domain.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments`, paymentColumns)
	args := []any{}
	clauses := []string{}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		clauses = append(clauses, fmt.Sprintf("user_id=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY due_date ASC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
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

	var result []domain.Payment
	for rows.Next() {
		var payment domain.Payment
		if err := scanPayment(rows, &payment); err != nil {
			return nil, err
		}
		result = append(result, payment)
	}
	return result, rows.Err()
}

func (r *paymentRepository) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	const query = `
        UPDATE payments SET status=$1, updated_at=NOW()
        WHERE status=$2 AND due_date < $3`
	cmd, err := r.pool.Exec(ctx, query, domain.PaymentOverdue, domain.PaymentPending, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func scanPayment(row pgx.Row, payment *domain.Payment) error {
	return row.Scan(
		&payment.ID,
		&payment.UserID,
		&payment.AccountNumber,
		&payment.PaymentType,
		&payment.Amount,
		&payment.DueDate,
		&payment.Status,
		&payment.PaidAt,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
}

// VoucherRepository manages prepaid voucher persistence.
type VoucherRepository interface {
	Create(ctx context.Context, voucher *domain.Voucher) error
	Update(ctx context.Context, voucher *domain.Voucher) error
	GetByCode(ctx context.Context, code string) (*domain.Voucher, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Voucher, error)
}

type voucherRepository struct {
	pool *pgxpool.Pool
}

// NewVoucherRepository builds the repository.
func NewVoucherRepository(pool *pgxpool.Pool) VoucherRepository {
	return &voucherRepository{pool: pool}
}

const voucherColumns = `id, user_id, voucher_type, amount, code, status, expires_at, used_at, created_at`

func (r *voucherRepository) Create(ctx context.Context, voucher *domain.Voucher) error {
	const query = `
        INSERT INTO vouchers (user_id, voucher_type, amount, code, status, expires_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		voucher.UserID,
		voucher.VoucherType,
		voucher.Amount,
		voucher.Code,
		voucher.Status,
		voucher.ExpiresAt,
	).Scan(&voucher.ID, &voucher.CreatedAt)
}

func (r *voucherRepository) Update(ctx context.Context, voucher *domain.Voucher) error {
	const query = `
        UPDATE vouchers SET status=$1, used_at=$2
        WHERE id=$3`
	cmd, err := r.pool.Exec(ctx, query, voucher.Status, voucher.UsedAt, voucher.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *voucherRepository) GetByCode(ctx context.Context, code string) (*domain.Voucher, error) {
	query := fmt.Sprintf(`SELECT %s FROM vouchers WHERE code=$1`, voucherColumns)
	var voucher domain.Voucher
	if err := scanVoucher(r.pool.QueryRow(ctx, query, code), &voucher); err != nil {
		return nil, err
	}
	return &voucher, nil
}

func (r *voucherRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Voucher, error) {
	query := fmt.Sprintf(`SELECT %s FROM vouchers WHERE user_id=$1 ORDER BY created_at DESC`, voucherColumns)
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Voucher
	for rows.Next() {
		var voucher domain.Voucher
		if err := scanVoucher(rows, &voucher); err != nil {
			return nil, err
		}
		result = append(result, voucher)
	}
	return result, rows.Err()
}

func scanVoucher(row pgx.Row, voucher *domain.Voucher) error {
	return row.Scan(
		&voucher.ID,
		&voucher.UserID,
		&voucher.VoucherType,
		&voucher.Amount,
		&voucher.Code,
		&voucher.Status,
		&voucher.ExpiresAt,
		&voucher.UsedAt,
		&voucher.CreatedAt,
	)
}
