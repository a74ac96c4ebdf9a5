package dto

import (
	"time"

	"github.com/spec-kit/municipal-service/internal/domain"
)

// BuyVoucherRequest payload.
type BuyVoucherRequest struct {
	VoucherType domain.PaymentType `json:"voucherType"`
	Amount      float64            `json:"amount"`
}

// RedeemVoucherRequest payload.
type RedeemVoucherRequest struct {
	Code string `json:"code"`
}

// PaymentResponse is the wire representation of a municipal bill.
type PaymentResponse struct {
	ID            int64                `json:"id"`
	UserID        *int64               `json:"userId"`
	AccountNumber string               `json:"accountNumber"`
	PaymentType   domain.PaymentType   `json:"paymentType"`
	Amount        float64              `json:"amount"`
	DueDate       time.Time            `json:"dueDate"`
	Status        domain.PaymentStatus `json:"status"`
	PaidAt        *time.Time           `json:"paidAt"`
	CreatedAt     time.Time            `json:"createdAt"`
}

// VoucherResponse is the wire representation of a prepaid voucher.
type VoucherResponse struct {
	ID          int64                `json:"id"`
	UserID      *int64               `json:"userId"`
	VoucherType domain.PaymentType   `json:"voucherType"`
	Amount      float64              `json:"amount"`
	Code        string               `json:"code"`
	Status      domain.VoucherStatus `json:"status"`
	ExpiresAt   time.Time            `json:"expiresAt"`
	UsedAt      *time.Time           `json:"usedAt"`
	CreatedAt   time.Time            `json:"createdAt"`
}

// FromPayment maps a domain payment onto its response shape.
func FromPayment(payment *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            payment.ID,
		UserID:        payment.UserID,
		AccountNumber: payment.AccountNumber,
		PaymentType:   payment.PaymentType,
		Amount:        payment.Amount,
		DueDate:       payment.DueDate,
		Status:        payment.Status,
		PaidAt:        payment.PaidAt,
		CreatedAt:     payment.CreatedAt,
	}
}

// FromVoucher maps a domain voucher onto its response shape.
func FromVoucher(voucher *domain.Voucher) VoucherResponse {
	return VoucherResponse{
		ID:          voucher.ID,
		UserID:      voucher.UserID,
		VoucherType: voucher.VoucherType,
		Amount:      voucher.Amount,
		Code:        voucher.Code,
		Status:      voucher.Status,
		ExpiresAt:   voucher.ExpiresAt,
		UsedAt:      voucher.UsedAt,
		CreatedAt:   voucher.CreatedAt,
	}
}
