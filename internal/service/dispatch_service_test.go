package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/municipal-service/internal/domain"
	"github.com/spec-kit/municipal-service/internal/events"
	"github.com/spec-kit/municipal-service/internal/repository"
	apperrors "github.com/spec-kit/municipal-service/pkg/util"
)

type dispatchFixture struct {
	dispatch   *DispatchService
	issueSvc   *IssueService
	issues     *fakeIssueRepo
	techs      *fakeTechnicianRepo
	dispatcher *captureDispatcher
}

func newDispatchFixture() *dispatchFixture {
	issues := newFakeIssueRepo()
	techs := newFakeTechnicianRepo()
	dispatcher := &captureDispatcher{}
	dispatch := NewDispatchService(DispatchDependencies{
		IssueRepo:      issues,
		TechnicianRepo: techs,
		AssignmentRepo: &fakeAssignmentRepo{issues: issues, techs: techs},
		Dispatcher:     dispatcher,
	})
	issueSvc := NewIssueService(IssueDependencies{
		IssueRepo:      issues,
		NoteRepo:       &fakeNoteRepo{},
		EscalationRepo: &fakeEscalationRepo{issues: issues},
		Dispatcher:     dispatcher,
	})
	return &dispatchFixture{dispatch: dispatch, issueSvc: issueSvc, issues: issues, techs: techs, dispatcher: dispatcher}
}

func (fx *dispatchFixture) addTechnician(t *testing.T, name, department string, status domain.TechnicianStatus, lat, lon *float64) *domain.Technician {
	t.Helper()
	tech := &domain.Technician{
		Name:       name,
		Department: department,
		Status:     status,
		Latitude:   lat,
		Longitude:  lon,
	}
	require.NoError(t, fx.techs.Create(context.Background(), tech))
	return tech
}

func f64(v float64) *float64 { return &v }

// Pretoria CBD and points at increasing distance from it.
var (
	baseLat = -25.7461
	baseLon = 28.1881
)

func TestFindNearestTechniciansOrdering(t *testing.T) {
	fx := newDispatchFixture()
	ctx := context.Background()

	far := fx.addTechnician(t, "Far", "Electricity", domain.TechnicianAvailable, f64(-26.2041), f64(28.0473))
	near := fx.addTechnician(t, "Near", "Electricity", domain.TechnicianAvailable, f64(-25.7512), f64(28.1923))
	mid := fx.addTechnician(t, "Mid", "Electricity", domain.TechnicianAvailable, f64(-25.8440), f64(28.1878))

	ranked, err := fx.dispatch.FindNearestTechnicians(ctx, baseLat, baseLon, nil)
	require.NoError(t, err)
	require.Len(t, ranked, 3)
	assert.Equal(t, near.ID, ranked[0].Technician.ID)
	assert.Equal(t, mid.ID, ranked[1].Technician.ID)
	assert.Equal(t, far.ID, ranked[2].Technician.ID)
	for i := 1; i < len(ranked); i++ {
		assert.LessOrEqual(t, ranked[i-1].DistanceKm, ranked[i].DistanceKm)
	}
}

func TestFindNearestFiltersAvailabilityAndCoordinates(t *testing.T) {
	fx := newDispatchFixture()
	ctx := context.Background()

	available := fx.addTechnician(t, "Available", "Electricity", domain.TechnicianAvailable, f64(baseLat), f64(baseLon))
	fx.addTechnician(t, "Busy", "Electricity", domain.TechnicianOnJob, f64(baseLat), f64(baseLon))
	fx.addTechnician(t, "Offline", "Electricity", domain.TechnicianOffline, f64(baseLat), f64(baseLon))
	fx.addTechnician(t, "NoCoords", "Electricity", domain.TechnicianAvailable, nil, nil)

	ranked, err := fx.dispatch.FindNearestTechnicians(ctx, baseLat, baseLon, nil)
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, available.ID, ranked[0].Technician.ID)
}

func TestFindNearestDepartmentFilter(t *testing.T) {
	fx := newDispatchFixture()
	ctx := context.Background()

	electric := fx.addTechnician(t, "Sparks", "Electricity", domain.TechnicianAvailable, f64(baseLat), f64(baseLon))
	fx.addTechnician(t, "Pipes", "Water & Sanitation", domain.TechnicianAvailable, f64(baseLat), f64(baseLon))

	dept := "Electricity"
	ranked, err := fx.dispatch.FindNearestTechnicians(ctx, baseLat, baseLon, &dept)
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, electric.ID, ranked[0].Technician.ID)
}

func TestAssignUnknownIDsLeaveNoMutation(t *testing.T) {
	fx := newDispatchFixture()
	ctx := context.Background()

	tech := fx.addTechnician(t, "Sparks", "Electricity", domain.TechnicianAvailable, f64(baseLat), f64(baseLon))
	issue, err := fx.issueSvc.CreateIssue(ctx, validCreateInput())
	require.NoError(t, err)

	err = fx.dispatch.AssignTechnician(ctx, 999, issue.ID)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)

	err = fx.dispatch.AssignTechnician(ctx, tech.ID, 999)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)

	// Neither failed attempt may leave partial state behind.
	reloaded, err := fx.issueSvc.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.AssignedTo)
	assert.Equal(t, domain.IssueStatusOpen, reloaded.Status)

	techReloaded, err := fx.techs.GetByID(ctx, tech.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TechnicianAvailable, techReloaded.Status)
}

func TestAssignConflictsSurfaceAs409(t *testing.T) {
	fx := newDispatchFixture()
	ctx := context.Background()

	first := fx.addTechnician(t, "First", "Electricity", domain.TechnicianAvailable, f64(baseLat), f64(baseLon))
	second := fx.addTechnician(t, "Second", "Electricity", domain.TechnicianAvailable, f64(baseLat), f64(baseLon))
	busy := fx.addTechnician(t, "Busy", "Electricity", domain.TechnicianOnJob, f64(baseLat), f64(baseLon))

	issue, err := fx.issueSvc.CreateIssue(ctx, validCreateInput())
	require.NoError(t, err)

	// Unavailable technician.
	err = fx.dispatch.AssignTechnician(ctx, busy.ID, issue.ID)
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, "CONFLICT", domainErr.Code)
	assert.Equal(t, 409, domainErr.HTTPStatus)

	require.NoError(t, fx.dispatch.AssignTechnician(ctx, first.ID, issue.ID))

	// Second dispatcher loses the race.
	err = fx.dispatch.AssignTechnician(ctx, second.ID, issue.ID)
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)

	reloaded, err := fx.issueSvc.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.AssignedTo)
	assert.Equal(t, first.ID, *reloaded.AssignedTo)
}

func TestAssignmentDoesNotFlipTechnician(t *testing.T) {
	fx := newDispatchFixture()
	ctx := context.Background()

	tech := fx.addTechnician(t, "Sparks", "Electricity", domain.TechnicianAvailable, f64(baseLat), f64(baseLon))
	issue, err := fx.issueSvc.CreateIssue(ctx, validCreateInput())
	require.NoError(t, err)

	require.NoError(t, fx.dispatch.AssignTechnician(ctx, tech.ID, issue.ID))

	reloaded, err := fx.techs.GetByID(ctx, tech.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TechnicianAvailable, reloaded.Status, "technician flips on start of work, not assignment")

	issueReloaded, err := fx.issueSvc.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IssueStatusAssigned, issueReloaded.Status)
}

func TestStartWorkRequiresAssignment(t *testing.T) {
	fx := newDispatchFixture()
	ctx := context.Background()

	tech := fx.addTechnician(t, "Sparks", "Electricity", domain.TechnicianAvailable, f64(baseLat), f64(baseLon))
	other := fx.addTechnician(t, "Other", "Electricity", domain.TechnicianAvailable, f64(baseLat), f64(baseLon))
	issue, err := fx.issueSvc.CreateIssue(ctx, validCreateInput())
	require.NoError(t, err)

	_, err = fx.dispatch.StartWork(ctx, tech.ID, issue.ID)
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)

	require.NoError(t, fx.dispatch.AssignTechnician(ctx, tech.ID, issue.ID))

	_, err = fx.dispatch.StartWork(ctx, other.ID, issue.ID)
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)

	started, err := fx.dispatch.StartWork(ctx, tech.ID, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IssueStatusInProgress, started.Status)

	techReloaded, err := fx.techs.GetByID(ctx, tech.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TechnicianOnJob, techReloaded.Status)
}

func TestElectricityIssueEndToEnd(t *testing.T) {
	fx := newDispatchFixture()
	ctx := context.Background()

	tech := fx.addTechnician(t, "Sparks", "Electricity", domain.TechnicianAvailable, f64(-25.7512), f64(28.1923))
	fx.addTechnician(t, "Pipes", "Water & Sanitation", domain.TechnicianAvailable, f64(baseLat), f64(baseLon))

	input := validCreateInput()
	input.Title = "Streetlights out on Church Street"
	input.Description = "Whole block dark since the storm"
	input.Category = domain.CategoryElectricity
	issue, err := fx.issueSvc.CreateIssue(ctx, input)
	require.NoError(t, err)

	// Category maps to the Electricity department, so only Sparks ranks.
	ranked, err := fx.dispatch.FindTechniciansForIssue(ctx, issue.ID, baseLat, baseLon)
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, tech.ID, ranked[0].Technician.ID)
	assert.Less(t, ranked[0].DistanceKm, 5.0)

	require.NoError(t, fx.dispatch.AssignTechnician(ctx, tech.ID, issue.ID))
	_, err = fx.dispatch.StartWork(ctx, tech.ID, issue.ID)
	require.NoError(t, err)

	resolvedIssue, err := fx.dispatch.CompleteWork(ctx, tech.ID, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IssueStatusResolved, resolvedIssue.Status)
	require.NotNil(t, resolvedIssue.ResolvedAt)

	techReloaded, err := fx.techs.GetByID(ctx, tech.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TechnicianAvailable, techReloaded.Status)
	assert.Equal(t, 1, techReloaded.CompletedIssues)

	assert.Len(t, fx.dispatcher.byType(events.EventIssueAssigned), 1)
	assert.Len(t, fx.dispatcher.byType(events.EventIssueStatusChanged), 2)
}

func TestCompleteWorkRequiresInProgress(t *testing.T) {
	fx := newDispatchFixture()
	ctx := context.Background()

	tech := fx.addTechnician(t, "Sparks", "Electricity", domain.TechnicianAvailable, f64(baseLat), f64(baseLon))
	issue, err := fx.issueSvc.CreateIssue(ctx, validCreateInput())
	require.NoError(t, err)

	require.NoError(t, fx.dispatch.AssignTechnician(ctx, tech.ID, issue.ID))

	_, err = fx.dispatch.CompleteWork(ctx, tech.ID, issue.ID)
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)
}

// staleAssignmentRepo simulates losing the compare-and-swap inside the atomic
// work transition: the service's reads saw a workable state but the
// transaction found it already changed.
type staleAssignmentRepo struct {
	*fakeAssignmentRepo
}

func (s *staleAssignmentRepo) StartWork(context.Context, int64, int64) error {
	return repository.ErrStaleWorkState
}

func (s *staleAssignmentRepo) CompleteWork(context.Context, int64, int64, time.Time, float64) error {
	return repository.ErrStaleWorkState
}

func TestWorkTransitionsLosingRaceSurfaceConflict(t *testing.T) {
	ctx := context.Background()
	issues := newFakeIssueRepo()
	techs := newFakeTechnicianRepo()
	dispatch := NewDispatchService(DispatchDependencies{
		IssueRepo:      issues,
		TechnicianRepo: techs,
		AssignmentRepo: &staleAssignmentRepo{&fakeAssignmentRepo{issues: issues, techs: techs}},
	})

	tech := &domain.Technician{Name: "Sparks", Department: "Electricity", Status: domain.TechnicianAvailable}
	require.NoError(t, techs.Create(ctx, tech))

	assigned := &domain.Issue{
		ReferenceNumber: "REF2026AAAA01",
		Title:           "Streetlight out",
		Description:     "Pole 14 dark for two nights",
		Category:        domain.CategoryElectricity,
		Priority:        domain.IssuePriorityMedium,
		Status:          domain.IssueStatusAssigned,
		Location:        "Church Street 14, Pretoria",
		AssignedTo:      &tech.ID,
	}
	require.NoError(t, issues.Create(ctx, assigned))

	_, err := dispatch.StartWork(ctx, tech.ID, assigned.ID)
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)

	inProgress := &domain.Issue{
		ReferenceNumber: "REF2026AAAA02",
		Title:           "Streetlight out",
		Description:     "Pole 15 dark for two nights",
		Category:        domain.CategoryElectricity,
		Priority:        domain.IssuePriorityMedium,
		Status:          domain.IssueStatusInProgress,
		Location:        "Church Street 15, Pretoria",
		AssignedTo:      &tech.ID,
	}
	require.NoError(t, issues.Create(ctx, inProgress))

	_, err = dispatch.CompleteWork(ctx, tech.ID, inProgress.ID)
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)
}

func TestFindTechniciansForUnmappedCategory(t *testing.T) {
	fx := newDispatchFixture()
	ctx := context.Background()

	input := validCreateInput()
	input.Category = domain.CategoryOther
	issue, err := fx.issueSvc.CreateIssue(ctx, input)
	require.NoError(t, err)

	_, err = fx.dispatch.FindTechniciansForIssue(ctx, issue.ID, baseLat, baseLon)
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}
