package domain

import "time"

// PaymentStatus tracks the billing lifecycle pending -> paid/overdue.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentOverdue PaymentStatus = "overdue"
)

// PaymentType enumerates billable municipal services.
type PaymentType string

const (
	PaymentTypeWater       PaymentType = "water"
	PaymentTypeElectricity PaymentType = "electricity"
	PaymentTypeRates       PaymentType = "rates"
	PaymentTypeRefuse      PaymentType = "refuse"
)

// Payment is a municipal bill issued against a citizen account.
type Payment struct {
	ID            int64
	UserID        *int64
	AccountNumber string
	PaymentType   PaymentType
	Amount        float64
	DueDate       time.Time
	Status        PaymentStatus
	PaidAt        *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// VoucherStatus tracks the voucher lifecycle active -> used/expired.
type VoucherStatus string

const (
	VoucherActive  VoucherStatus = "active"
	VoucherUsed    VoucherStatus = "used"
	VoucherExpired VoucherStatus = "expired"
)

// Voucher is a prepaid utility token purchased by a citizen.
type Voucher struct {
	ID          int64
	UserID      *int64
	VoucherType PaymentType
	Amount      float64
	Code        string
	Status      VoucherStatus
	ExpiresAt   time.Time
	UsedAt      *time.Time
	CreatedAt   time.Time
}
