package domain

import "time"

// SubjectType differentiates citizen vs staff tokens.
type SubjectType string

const (
	SubjectTypeCitizen SubjectType = "CITIZEN"
	SubjectTypeStaff   SubjectType = "STAFF"
)

// Token represents issued authentication token metadata.
type Token struct {
	ID        string
	SubjectID int64
	Subject   SubjectType
	Role      *StaffRole
	ExpiresAt time.Time
	IssuedAt  time.Time
}
