package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/municipal-service/internal/domain"
	"github.com/spec-kit/municipal-service/internal/events"
	apperrors "github.com/spec-kit/municipal-service/pkg/util"
)

type paymentFixture struct {
	service    *PaymentService
	payments   *fakePaymentRepo
	vouchers   *fakeVoucherRepo
	dispatcher *captureDispatcher
}

func newPaymentFixture() *paymentFixture {
	payments := newFakePaymentRepo()
	vouchers := newFakeVoucherRepo()
	dispatcher := &captureDispatcher{}
	return &paymentFixture{
		service:    NewPaymentService(payments, vouchers, dispatcher),
		payments:   payments,
		vouchers:   vouchers,
		dispatcher: dispatcher,
	}
}

func (fx *paymentFixture) addBill(t *testing.T, status domain.PaymentStatus, due time.Time) *domain.Payment {
	t.Helper()
	payment := &domain.Payment{
		AccountNumber: "ACC-1001",
		PaymentType:   domain.PaymentTypeWater,
		Amount:        350.75,
		DueDate:       due,
		Status:        status,
	}
	require.NoError(t, fx.payments.Create(context.Background(), payment))
	return payment
}

func TestPayBillSettlesAndPublishes(t *testing.T) {
	fx := newPaymentFixture()
	ctx := context.Background()

	bill := fx.addBill(t, domain.PaymentPending, time.Now().AddDate(0, 0, 14))
	paid, err := fx.service.PayBill(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)

	received := fx.dispatcher.byType(events.EventPaymentReceived)
	require.Len(t, received, 1)
	payload, ok := received[0].Payload.(events.PaymentReceivedPayload)
	require.True(t, ok)
	assert.Equal(t, bill.ID, payload.PaymentID)
}

func TestPayBillTwiceConflicts(t *testing.T) {
	fx := newPaymentFixture()
	ctx := context.Background()

	bill := fx.addBill(t, domain.PaymentPending, time.Now().AddDate(0, 0, 14))
	_, err := fx.service.PayBill(ctx, bill.ID)
	require.NoError(t, err)

	_, err = fx.service.PayBill(ctx, bill.ID)
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)
}

func TestPayBillUnknown(t *testing.T) {
	fx := newPaymentFixture()
	_, err := fx.service.PayBill(context.Background(), 404)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}

func TestSweepOverdue(t *testing.T) {
	fx := newPaymentFixture()
	ctx := context.Background()

	pastDue := fx.addBill(t, domain.PaymentPending, time.Now().AddDate(0, 0, -3))
	future := fx.addBill(t, domain.PaymentPending, time.Now().AddDate(0, 0, 10))
	alreadyPaid := fx.addBill(t, domain.PaymentPaid, time.Now().AddDate(0, 0, -3))

	count, err := fx.service.SweepOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	reloaded, err := fx.payments.GetByID(ctx, pastDue.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentOverdue, reloaded.Status)

	reloaded, err = fx.payments.GetByID(ctx, future.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPending, reloaded.Status)

	reloaded, err = fx.payments.GetByID(ctx, alreadyPaid.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, reloaded.Status)
}

func TestBuyVoucherIssuesActiveCode(t *testing.T) {
	fx := newPaymentFixture()
	ctx := context.Background()

	userID := int64(7)
	voucher, err := fx.service.BuyVoucher(ctx, &userID, domain.PaymentTypeElectricity, 200)
	require.NoError(t, err)
	assert.Equal(t, domain.VoucherActive, voucher.Status)
	assert.Regexp(t, regexp.MustCompile(`^[0-9A-F]{4}-[0-9A-F]{4}-[0-9A-F]{4}-[0-9A-F]{4}$`), voucher.Code)
	assert.True(t, voucher.ExpiresAt.After(time.Now()))

	_, err = fx.service.BuyVoucher(ctx, &userID, domain.PaymentTypeElectricity, 0)
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestRedeemVoucherLifecycle(t *testing.T) {
	fx := newPaymentFixture()
	ctx := context.Background()

	userID := int64(7)
	voucher, err := fx.service.BuyVoucher(ctx, &userID, domain.PaymentTypeElectricity, 200)
	require.NoError(t, err)

	redeemed, err := fx.service.RedeemVoucher(ctx, voucher.Code)
	require.NoError(t, err)
	assert.Equal(t, domain.VoucherUsed, redeemed.Status)
	require.NotNil(t, redeemed.UsedAt)

	// Second redemption conflicts.
	_, err = fx.service.RedeemVoucher(ctx, voucher.Code)
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)

	_, err = fx.service.RedeemVoucher(ctx, "XXXX-XXXX-XXXX-XXXX")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}

func TestRedeemExpiredVoucherFlipsStatus(t *testing.T) {
	fx := newPaymentFixture()
	ctx := context.Background()

	userID := int64(7)
	voucher, err := fx.service.BuyVoucher(ctx, &userID, domain.PaymentTypeElectricity, 200)
	require.NoError(t, err)

	// Force expiry in the store.
	stored, err := fx.vouchers.GetByCode(ctx, voucher.Code)
	require.NoError(t, err)
	stored.ExpiresAt = time.Now().Add(-time.Hour)
	require.NoError(t, fx.vouchers.Update(ctx, stored))

	_, err = fx.service.RedeemVoucher(ctx, voucher.Code)
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)

	reloaded, err := fx.vouchers.GetByCode(ctx, voucher.Code)
	require.NoError(t, err)
	assert.Equal(t, domain.VoucherExpired, reloaded.Status)
}
