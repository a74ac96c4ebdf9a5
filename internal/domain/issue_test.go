package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDepartmentForCategory(t *testing.T) {
	cases := map[IssueCategory]string{
		CategoryWaterSanitation: "Water & Sanitation",
		CategoryElectricity:     "Electricity",
		CategoryRoadsTransport:  "Roads & Transport",
		CategoryWasteManagement: "Waste Management",
	}
	for category, want := range cases {
		dept, ok := DepartmentForCategory(category)
		assert.True(t, ok, "category %s should map", category)
		assert.Equal(t, want, dept)
	}

	for _, category := range []IssueCategory{CategorySafetySecurity, CategoryHousing, CategoryOther} {
		_, ok := DepartmentForCategory(category)
		assert.False(t, ok, "category %s has no dispatching department", category)
	}
}

func TestValidCategory(t *testing.T) {
	assert.True(t, ValidCategory(CategoryElectricity))
	assert.False(t, ValidCategory("plumbing"))
	assert.False(t, ValidCategory(""))
}

func TestRateable(t *testing.T) {
	for status, want := range map[IssueStatus]bool{
		IssueStatusOpen:       false,
		IssueStatusAssigned:   false,
		IssueStatusInProgress: false,
		IssueStatusResolved:   true,
		IssueStatusClosed:     true,
	} {
		issue := &Issue{Status: status}
		assert.Equal(t, want, issue.Rateable(), "status %s", status)
	}
}
