package domain

import "time"

// Team represents a crew of technicians under a municipal department.
type Team struct {
	ID          int64
	Name        string
	Department  string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
