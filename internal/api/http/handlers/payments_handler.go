package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/municipal-service/internal/api/dto"
	"github.com/spec-kit/municipal-service/internal/auth"
	"github.com/spec-kit/municipal-service/internal/domain"
	"github.com/spec-kit/municipal-service/internal/repository"
	"github.com/spec-kit/municipal-service/internal/service"
	apperrors "github.com/spec-kit/municipal-service/pkg/util"
)

// PaymentsHandler manages municipal bills and prepaid vouchers.
type PaymentsHandler struct {
	service *service.PaymentService
}

// NewPaymentsHandler constructs handler.
func NewPaymentsHandler(paymentService *service.PaymentService) *PaymentsHandler {
	return &PaymentsHandler{service: paymentService}
}

// ListPayments GET /api/payments. Citizens see their own bills; staff may
// filter freely.
func (h *PaymentsHandler) ListPayments(c *fiber.Ctx) error {
	filter := repository.PaymentFilter{}
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if principal.User != nil {
		filter.UserID = &principal.User.ID
	} else if s := c.Query("user_id"); s != "" {
		id, err := parseQueryID(s)
		if err != nil {
			return err
		}
		filter.UserID = &id
	}
	if s := c.Query("status"); s != "" {
		status := domain.PaymentStatus(s)
		filter.Status = &status
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize

	payments, err := h.service.ListPayments(c.Context(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.PaymentResponse, 0, len(payments))
	for i := range payments {
		items = append(items, dto.FromPayment(&payments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// PayBill POST /api/payments/:id/pay.
func (h *PaymentsHandler) PayBill(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	payment, err := h.service.PayBill(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromPayment(payment)})
}

// SweepOverdue POST /api/payments/sweep-overdue. Flips past-due pending
// bills to overdue; normally driven by a scheduler, exposed for operators.
func (h *PaymentsHandler) SweepOverdue(c *fiber.Ctx) error {
	count, err := h.service.SweepOverdue(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"marked_overdue": count}})
}

// BuyVoucher POST /api/vouchers.
func (h *PaymentsHandler) BuyVoucher(c *fiber.Ctx) error {
	var req dto.BuyVoucherRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	var userID *int64
	if principal, ok := auth.PrincipalFromContext(c); ok && principal.User != nil {
		userID = &principal.User.ID
	}
	voucher, err := h.service.BuyVoucher(c.Context(), userID, req.VoucherType, req.Amount)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromVoucher(voucher)})
}

// RedeemVoucher POST /api/vouchers/redeem.
func (h *PaymentsHandler) RedeemVoucher(c *fiber.Ctx) error {
	var req dto.RedeemVoucherRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Code == "" {
		return apperrors.NewValidationError("code required", nil)
	}
	voucher, err := h.service.RedeemVoucher(c.Context(), req.Code)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromVoucher(voucher)})
}

// ListVouchers GET /api/vouchers.
func (h *PaymentsHandler) ListVouchers(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("citizen account required")
	}
	vouchers, err := h.service.ListVouchers(c.Context(), principal.User.ID)
	if err != nil {
		return err
	}
	items := make([]dto.VoucherResponse, 0, len(vouchers))
	for i := range vouchers {
		items = append(items, dto.FromVoucher(&vouchers[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseQueryID(val string) (int64, error) {
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid id", nil)
	}
	return id, nil
}
