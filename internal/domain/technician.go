package domain

import "time"

// TechnicianStatus enumerates field-worker availability states.
type TechnicianStatus string

const (
	TechnicianAvailable   TechnicianStatus = "available"
	TechnicianOnJob       TechnicianStatus = "on_job"
	TechnicianMaintenance TechnicianStatus = "maintenance"
	TechnicianOffline     TechnicianStatus = "offline"
)

// Technician models a field worker who resolves issues, grouped by department.
type Technician struct {
	ID                 int64
	Name               string
	Phone              string
	Email              string
	Department         string
	Skills             []string
	Status             TechnicianStatus
	CurrentLocation    string
	Latitude           *float64
	Longitude          *float64
	CompletedIssues    int
	AvgResolutionHours float64
	Rating             float64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// HasCoordinates reports whether the technician can be distance-ranked.
func (t *Technician) HasCoordinates() bool {
	return t.Latitude != nil && t.Longitude != nil
}
