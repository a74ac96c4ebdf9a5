package domain

import "time"

// IssueStatus enumerates lifecycle states for reported issues.
type IssueStatus string

const (
	IssueStatusOpen       IssueStatus = "open"
	IssueStatusAssigned   IssueStatus = "assigned"
	IssueStatusInProgress IssueStatus = "in_progress"
	IssueStatusResolved   IssueStatus = "resolved"
	IssueStatusClosed     IssueStatus = "closed"
)

// IssuePriority enumerates urgency levels.
type IssuePriority string

const (
	IssuePriorityLow    IssuePriority = "low"
	IssuePriorityMedium IssuePriority = "medium"
	IssuePriorityHigh   IssuePriority = "high"
	IssuePriorityUrgent IssuePriority = "urgent"
)

// IssueCategory enumerates municipal service categories.
type IssueCategory string

const (
	CategoryWaterSanitation IssueCategory = "water_sanitation"
	CategoryElectricity     IssueCategory = "electricity"
	CategoryRoadsTransport  IssueCategory = "roads_transport"
	CategoryWasteManagement IssueCategory = "waste_management"
	CategorySafetySecurity  IssueCategory = "safety_security"
	CategoryHousing         IssueCategory = "housing"
	CategoryOther           IssueCategory = "other"
)

// ValidCategory reports whether the value is a known category.
func ValidCategory(c IssueCategory) bool {
	switch c {
	case CategoryWaterSanitation, CategoryElectricity, CategoryRoadsTransport,
		CategoryWasteManagement, CategorySafetySecurity, CategoryHousing, CategoryOther:
		return true
	}
	return false
}

// departmentByCategory maps issue categories to the municipal department
// responsible for them. Categories without an entry cannot be auto-matched
// to technicians.
var departmentByCategory = map[IssueCategory]string{
	CategoryWaterSanitation: "Water & Sanitation",
	CategoryElectricity:     "Electricity",
	CategoryRoadsTransport:  "Roads & Transport",
	CategoryWasteManagement: "Waste Management",
}

// DepartmentForCategory returns the department handling a category.
func DepartmentForCategory(c IssueCategory) (string, bool) {
	dept, ok := departmentByCategory[c]
	return dept, ok
}

// Issue is the aggregate for citizen-reported service requests.
type Issue struct {
	ID              int64
	ReferenceNumber string
	Title           string
	Description     string
	Category        IssueCategory
	Priority        IssuePriority
	Status          IssueStatus
	Location        string
	Ward            *string
	ReporterName    *string
	ReporterPhone   *string
	ReporterUserID  *int64
	AssignedTo      *int64
	Photos          []string
	Rating          *int
	Feedback        *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ResolvedAt      *time.Time
}

// Rateable reports whether the issue may receive a rating.
func (i *Issue) Rateable() bool {
	return i.Status == IssueStatusResolved || i.Status == IssueStatusClosed
}
