package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/municipal-service/internal/domain"
	"github.com/spec-kit/municipal-service/internal/events"
	"github.com/spec-kit/municipal-service/internal/repository"
	apperrors "github.com/spec-kit/municipal-service/pkg/util"
)

// voucherValidityDays is how long a purchased voucher stays redeemable.
const voucherValidityDays = 90

// PaymentService handles municipal bills and prepaid utility vouchers.
type PaymentService struct {
	payments   repository.PaymentRepository
	vouchers   repository.VoucherRepository
	dispatcher events.Dispatcher
}

// NewPaymentService constructs the service.
func NewPaymentService(payments repository.PaymentRepository, vouchers repository.VoucherRepository, dispatcher events.Dispatcher) *PaymentService {
	return &PaymentService{payments: payments, vouchers: vouchers, dispatcher: dispatcher}
}

// ListPayments returns bills matching the filter.
func (s *PaymentService) ListPayments(ctx context.Context, filter repository.PaymentFilter) ([]domain.Payment, error) {
	payments, err := s.payments.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return payments, nil
}

// PayBill settles a pending or overdue bill.
func (s *PaymentService) PayBill(ctx context.Context, id int64) (*domain.Payment, error) {
	payment, err := s.payments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("payment", map[string]any{"payment_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	if payment.Status == domain.PaymentPaid {
		return nil, apperrors.NewConflict("payment already settled", map[string]any{"payment_id": id})
	}

	now := time.Now()
	payment.Status = domain.PaymentPaid
	payment.PaidAt = &now
	if err := s.payments.Update(ctx, payment); err != nil {
		return nil, apperrors.MapError(err)
	}
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventPaymentReceived,
			Timestamp: now,
			Payload:   events.PaymentReceivedPayload{PaymentID: payment.ID, Amount: payment.Amount},
		})
	}
	return payment, nil
}

// SweepOverdue flips past-due pending bills to overdue.
func (s *PaymentService) SweepOverdue(ctx context.Context) (int64, error) {
	count, err := s.payments.MarkOverdue(ctx, time.Now())
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	return count, nil
}

// BuyVoucher issues a prepaid utility voucher for a citizen.
func (s *PaymentService) BuyVoucher(ctx context.Context, userID *int64, voucherType domain.PaymentType, amount float64) (*domain.Voucher, error) {
	if amount <= 0 {
		return nil, apperrors.NewValidationError("amount must be positive", map[string]any{"amount": amount})
	}
	voucher := &domain.Voucher{
		UserID:      userID,
		VoucherType: voucherType,
		Amount:      amount,
		Code:        generateVoucherCode(),
		Status:      domain.VoucherActive,
		ExpiresAt:   time.Now().AddDate(0, 0, voucherValidityDays),
	}
	if err := s.vouchers.Create(ctx, voucher); err != nil {
		return nil, apperrors.MapError(err)
	}
	return voucher, nil
}

// RedeemVoucher consumes an active, unexpired voucher by code.
func (s *PaymentService) RedeemVoucher(ctx context.Context, code string) (*domain.Voucher, error) {
	voucher, err := s.vouchers.GetByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("voucher", nil)
		}
		return nil, apperrors.MapError(err)
	}
	if voucher.Status != domain.VoucherActive {
		return nil, apperrors.NewConflict("voucher not redeemable", map[string]any{"status": voucher.Status})
	}
	now := time.Now()
	if now.After(voucher.ExpiresAt) {
		voucher.Status = domain.VoucherExpired
		if err := s.vouchers.Update(ctx, voucher); err != nil {
			return nil, apperrors.MapError(err)
		}
		return nil, apperrors.NewConflict("voucher expired", map[string]any{"expired_at": voucher.ExpiresAt})
	}

	voucher.Status = domain.VoucherUsed
	voucher.UsedAt = &now
	if err := s.vouchers.Update(ctx, voucher); err != nil {
		return nil, apperrors.MapError(err)
	}
	return voucher, nil
}

// ListVouchers returns a citizen's vouchers.
func (s *PaymentService) ListVouchers(ctx context.Context, userID int64) ([]domain.Voucher, error) {
	vouchers, err := s.vouchers.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return vouchers, nil
}

// generateVoucherCode produces a 16-digit style voucher token grouped for
// readability.
func generateVoucherCode() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:16]
	return raw[0:4] + "-" + raw[4:8] + "-" + raw[8:12] + "-" + raw[12:16]
}
