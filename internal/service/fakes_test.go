package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/municipal-service/internal/domain"
	"github.com/spec-kit/municipal-service/internal/events"
	"github.com/spec-kit/municipal-service/internal/repository"
)

// In-memory repositories mirroring the pgx-backed ones closely enough to
// exercise service semantics, including the atomic dispatch and escalation
// writes.

type fakeIssueRepo struct {
	mu     sync.Mutex
	nextID int64
	issues map[int64]domain.Issue
}

func newFakeIssueRepo() *fakeIssueRepo {
	return &fakeIssueRepo{issues: make(map[int64]domain.Issue)}
}

func (f *fakeIssueRepo) Create(_ context.Context, issue *domain.Issue) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.issues {
		if existing.ReferenceNumber == issue.ReferenceNumber {
			return &pgconn.PgError{Code: "23505", ConstraintName: "issues_reference_number_key"}
		}
	}
	f.nextID++
	issue.ID = f.nextID
	now := time.Now()
	issue.CreatedAt = now
	issue.UpdatedAt = now
	f.issues[issue.ID] = *issue
	return nil
}

func (f *fakeIssueRepo) Update(_ context.Context, issue *domain.Issue) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.issues[issue.ID]; !ok {
		return pgx.ErrNoRows
	}
	issue.UpdatedAt = time.Now()
	f.issues[issue.ID] = *issue
	return nil
}

func (f *fakeIssueRepo) GetByID(_ context.Context, id int64) (*domain.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	issue, ok := f.issues[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := issue
	return &copied, nil
}

func (f *fakeIssueRepo) GetByReference(_ context.Context, ref string) (*domain.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, issue := range f.issues {
		if issue.ReferenceNumber == ref {
			copied := issue
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeIssueRepo) List(_ context.Context, filter repository.IssueFilter) ([]domain.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Issue, 0, len(f.issues))
	for _, issue := range f.issues {
		if filter.Status != nil && issue.Status != *filter.Status {
			continue
		}
		if filter.Category != nil && issue.Category != *filter.Category {
			continue
		}
		if filter.Priority != nil && issue.Priority != *filter.Priority {
			continue
		}
		if filter.Ward != nil && (issue.Ward == nil || *issue.Ward != *filter.Ward) {
			continue
		}
		if filter.AssignedTo != nil && (issue.AssignedTo == nil || *issue.AssignedTo != *filter.AssignedTo) {
			continue
		}
		out = append(out, issue)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeIssueRepo) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.issues[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.issues, id)
	return nil
}

type fakeNoteRepo struct {
	mu     sync.Mutex
	nextID int64
	notes  []domain.IssueNote
}

func (f *fakeNoteRepo) Create(_ context.Context, note *domain.IssueNote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	note.ID = f.nextID
	note.CreatedAt = time.Now()
	f.notes = append(f.notes, *note)
	return nil
}

func (f *fakeNoteRepo) ListByIssue(_ context.Context, issueID int64) ([]domain.IssueNote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.IssueNote, 0)
	for _, note := range f.notes {
		if note.IssueID == issueID {
			out = append(out, note)
		}
	}
	return out, nil
}

// fakeEscalationRepo reproduces the transactional coupling of the real
// repository: inserting an escalation forces the parent issue to urgent.
type fakeEscalationRepo struct {
	mu          sync.Mutex
	nextID      int64
	escalations []domain.IssueEscalation
	issues      *fakeIssueRepo
}

func (f *fakeEscalationRepo) Create(_ context.Context, esc *domain.IssueEscalation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	esc.ID = f.nextID
	esc.CreatedAt = time.Now()
	f.escalations = append(f.escalations, *esc)

	f.issues.mu.Lock()
	defer f.issues.mu.Unlock()
	issue, ok := f.issues.issues[esc.IssueID]
	if !ok {
		return pgx.ErrNoRows
	}
	issue.Priority = domain.IssuePriorityUrgent
	issue.UpdatedAt = time.Now()
	f.issues.issues[esc.IssueID] = issue
	return nil
}

func (f *fakeEscalationRepo) ListByIssue(_ context.Context, issueID int64) ([]domain.IssueEscalation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.IssueEscalation, 0)
	for _, esc := range f.escalations {
		if esc.IssueID == issueID {
			out = append(out, esc)
		}
	}
	return out, nil
}

type fakeTechnicianRepo struct {
	mu     sync.Mutex
	nextID int64
	techs  map[int64]domain.Technician
}

func newFakeTechnicianRepo() *fakeTechnicianRepo {
	return &fakeTechnicianRepo{techs: make(map[int64]domain.Technician)}
}

func (f *fakeTechnicianRepo) Create(_ context.Context, tech *domain.Technician) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	tech.ID = f.nextID
	now := time.Now()
	tech.CreatedAt = now
	tech.UpdatedAt = now
	f.techs[tech.ID] = *tech
	return nil
}

func (f *fakeTechnicianRepo) Update(_ context.Context, tech *domain.Technician) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.techs[tech.ID]; !ok {
		return pgx.ErrNoRows
	}
	tech.UpdatedAt = time.Now()
	f.techs[tech.ID] = *tech
	return nil
}

func (f *fakeTechnicianRepo) GetByID(_ context.Context, id int64) (*domain.Technician, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tech, ok := f.techs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := tech
	return &copied, nil
}

func (f *fakeTechnicianRepo) List(_ context.Context, filter repository.TechnicianFilter) ([]domain.Technician, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Technician, 0, len(f.techs))
	for _, tech := range f.techs {
		if filter.Status != nil && tech.Status != *filter.Status {
			continue
		}
		if filter.Department != nil && !strings.EqualFold(tech.Department, *filter.Department) {
			continue
		}
		out = append(out, tech)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// fakeAssignmentRepo reproduces the atomic dispatch writes.
type fakeAssignmentRepo struct {
	issues *fakeIssueRepo
	techs  *fakeTechnicianRepo
}

func (f *fakeAssignmentRepo) AssignIssue(_ context.Context, issueID, technicianID int64) error {
	f.techs.mu.Lock()
	tech, ok := f.techs.techs[technicianID]
	f.techs.mu.Unlock()
	if !ok {
		return pgx.ErrNoRows
	}
	if tech.Status != domain.TechnicianAvailable {
		return repository.ErrTechnicianUnavailable
	}

	f.issues.mu.Lock()
	defer f.issues.mu.Unlock()
	issue, ok := f.issues.issues[issueID]
	if !ok {
		return pgx.ErrNoRows
	}
	if issue.AssignedTo != nil {
		return repository.ErrIssueAlreadyAssigned
	}
	issue.AssignedTo = &technicianID
	issue.Status = domain.IssueStatusAssigned
	issue.UpdatedAt = time.Now()
	f.issues.issues[issueID] = issue
	return nil
}

func (f *fakeAssignmentRepo) StartWork(_ context.Context, issueID, technicianID int64) error {
	f.issues.mu.Lock()
	issue, ok := f.issues.issues[issueID]
	if !ok || issue.AssignedTo == nil || *issue.AssignedTo != technicianID || issue.Status != domain.IssueStatusAssigned {
		f.issues.mu.Unlock()
		return repository.ErrStaleWorkState
	}
	issue.Status = domain.IssueStatusInProgress
	issue.UpdatedAt = time.Now()
	f.issues.issues[issueID] = issue
	f.issues.mu.Unlock()

	f.techs.mu.Lock()
	defer f.techs.mu.Unlock()
	tech := f.techs.techs[technicianID]
	tech.Status = domain.TechnicianOnJob
	f.techs.techs[technicianID] = tech
	return nil
}

func (f *fakeAssignmentRepo) CompleteWork(_ context.Context, issueID, technicianID int64, resolvedAt time.Time, resolutionHours float64) error {
	f.issues.mu.Lock()
	issue, ok := f.issues.issues[issueID]
	if !ok || issue.AssignedTo == nil || *issue.AssignedTo != technicianID || issue.Status != domain.IssueStatusInProgress {
		f.issues.mu.Unlock()
		return repository.ErrStaleWorkState
	}
	issue.Status = domain.IssueStatusResolved
	if issue.ResolvedAt == nil {
		issue.ResolvedAt = &resolvedAt
	}
	issue.UpdatedAt = time.Now()
	f.issues.issues[issueID] = issue
	f.issues.mu.Unlock()

	f.techs.mu.Lock()
	defer f.techs.mu.Unlock()
	tech := f.techs.techs[technicianID]
	completed := float64(tech.CompletedIssues)
	tech.AvgResolutionHours = (tech.AvgResolutionHours*completed + resolutionHours) / (completed + 1)
	tech.CompletedIssues++
	tech.Status = domain.TechnicianAvailable
	f.techs.techs[technicianID] = tech
	return nil
}

type fakePaymentRepo struct {
	mu       sync.Mutex
	nextID   int64
	payments map[int64]domain.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[int64]domain.Payment)}
}

func (f *fakePaymentRepo) Create(_ context.Context, payment *domain.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	payment.ID = f.nextID
	now := time.Now()
	payment.CreatedAt = now
	payment.UpdatedAt = now
	f.payments[payment.ID] = *payment
	return nil
}

func (f *fakePaymentRepo) Update(_ context.Context, payment *domain.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.payments[payment.ID]; !ok {
		return pgx.ErrNoRows
	}
	payment.UpdatedAt = time.Now()
	f.payments[payment.ID] = *payment
	return nil
}

func (f *fakePaymentRepo) GetByID(_ context.Context, id int64) (*domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	payment, ok := f.payments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := payment
	return &copied, nil
}

func (f *fakePaymentRepo) List(_ context.Context, filter repository.PaymentFilter) ([]domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Payment, 0, len(f.payments))
	for _, payment := range f.payments {
		if filter.UserID != nil && (payment.UserID == nil || *payment.UserID != *filter.UserID) {
			continue
		}
		if filter.Status != nil && payment.Status != *filter.Status {
			continue
		}
		out = append(out, payment)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakePaymentRepo) MarkOverdue(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for id, payment := range f.payments {
		if payment.Status == domain.PaymentPending && payment.DueDate.Before(now) {
			payment.Status = domain.PaymentOverdue
			payment.UpdatedAt = now
			f.payments[id] = payment
			count++
		}
	}
	return count, nil
}

type fakeVoucherRepo struct {
	mu       sync.Mutex
	nextID   int64
	vouchers map[int64]domain.Voucher
}

func newFakeVoucherRepo() *fakeVoucherRepo {
	return &fakeVoucherRepo{vouchers: make(map[int64]domain.Voucher)}
}

func (f *fakeVoucherRepo) Create(_ context.Context, voucher *domain.Voucher) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	voucher.ID = f.nextID
	voucher.CreatedAt = time.Now()
	f.vouchers[voucher.ID] = *voucher
	return nil
}

func (f *fakeVoucherRepo) Update(_ context.Context, voucher *domain.Voucher) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.vouchers[voucher.ID]; !ok {
		return pgx.ErrNoRows
	}
	f.vouchers[voucher.ID] = *voucher
	return nil
}

func (f *fakeVoucherRepo) GetByCode(_ context.Context, code string) (*domain.Voucher, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, voucher := range f.vouchers {
		if voucher.Code == code {
			copied := voucher
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeVoucherRepo) ListByUser(_ context.Context, userID int64) ([]domain.Voucher, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Voucher, 0)
	for _, voucher := range f.vouchers {
		if voucher.UserID != nil && *voucher.UserID == userID {
			out = append(out, voucher)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// captureDispatcher records published events for assertions.
type captureDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *captureDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *captureDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *captureDispatcher) byType(t events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.Event, 0)
	for _, event := range d.events {
		if event.Type == t {
			out = append(out, event)
		}
	}
	return out
}
