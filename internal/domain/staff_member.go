package domain

import "time"

// StaffRole enumerates municipal staff roles.
type StaffRole string

const (
	StaffRoleAgent      StaffRole = "AGENT"      // call-centre agent
	StaffRoleManager    StaffRole = "MANAGER"    // technical manager
	StaffRoleTechnician StaffRole = "TECHNICIAN" // field technician login
	StaffRoleAdmin      StaffRole = "ADMIN"
)

// StaffMember models a municipal employee with dashboard access.
type StaffMember struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         StaffRole
	Department   *string
	TechnicianID *int64
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
