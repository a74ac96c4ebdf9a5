package dto

import (
	"time"

	"github.com/spec-kit/municipal-service/internal/domain"
)

// RegisterRequest payload for citizen signup.
type RegisterRequest struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Phone    *string `json:"phone"`
}

// LoginRequest payload shared by citizen and staff login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordRequest payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// PasswordResetRequest starts the reset flow.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// PasswordResetConfirmRequest completes the reset flow.
type PasswordResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// UserResponse is the wire representation of a citizen account.
type UserResponse struct {
	ID        int64             `json:"id"`
	Name      string            `json:"name"`
	Email     string            `json:"email"`
	Phone     *string           `json:"phone"`
	Status    domain.UserStatus `json:"status"`
	CreatedAt time.Time         `json:"createdAt"`
}

// StaffResponse is the wire representation of a staff account.
type StaffResponse struct {
	ID           int64            `json:"id"`
	Name         string           `json:"name"`
	Email        string           `json:"email"`
	Role         domain.StaffRole `json:"role"`
	Department   *string          `json:"department"`
	TechnicianID *int64           `json:"technicianId"`
	Active       bool             `json:"active"`
	CreatedAt    time.Time        `json:"createdAt"`
}

// AuthResponse carries a fresh token together with the authenticated account.
type AuthResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expiresAt"`
	User      *UserResponse  `json:"user,omitempty"`
	Staff     *StaffResponse `json:"staff,omitempty"`
}

// FromUser maps a citizen account onto its response shape. The password hash
// never leaves the service boundary.
func FromUser(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Phone:     user.Phone,
		Status:    user.Status,
		CreatedAt: user.CreatedAt,
	}
}

// FromStaff maps a staff account onto its response shape.
func FromStaff(staff *domain.StaffMember) StaffResponse {
	return StaffResponse{
		ID:           staff.ID,
		Name:         staff.Name,
		Email:        staff.Email,
		Role:         staff.Role,
		Department:   staff.Department,
		TechnicianID: staff.TechnicianID,
		Active:       staff.Active,
		CreatedAt:    staff.CreatedAt,
	}
}
