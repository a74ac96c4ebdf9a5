package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/municipal-service/internal/domain"
	"github.com/spec-kit/municipal-service/internal/events"
	"github.com/spec-kit/municipal-service/internal/repository"
	apperrors "github.com/spec-kit/municipal-service/pkg/util"
)

// maxReferenceAttempts bounds the uniqueness retry loop for reference numbers.
const maxReferenceAttempts = 5

// IssueService owns the issue lifecycle: creation, updates, rating, deletion
// and the append-only note/escalation trail.
type IssueService struct {
	issues      repository.IssueRepository
	notes       repository.NoteRepository
	escalations repository.EscalationRepository
	dispatcher  events.Dispatcher
}

// IssueDependencies bundles repositories for the issue service.
type IssueDependencies struct {
	IssueRepo      repository.IssueRepository
	NoteRepo       repository.NoteRepository
	EscalationRepo repository.EscalationRepository
	Dispatcher     events.Dispatcher
}

// IssueCreateInput describes the citizen submission payload.
type IssueCreateInput struct {
	Title          string
	Description    string
	Category       domain.IssueCategory
	Priority       domain.IssuePriority
	Location       string
	Ward           *string
	ReporterName   *string
	ReporterPhone  *string
	ReporterUserID *int64
	Photos         []string
}

// UpdateIssueCommand enumerates exactly which issue fields callers may
// mutate. ID, reference number and creation timestamp are not expressible
// here, so partial updates can never overwrite them. Nil fields are left
// unchanged.
type UpdateIssueCommand struct {
	Title       *string
	Description *string
	Category    *domain.IssueCategory
	Priority    *domain.IssuePriority
	Status      *domain.IssueStatus
	Location    *string
	Ward        *string
	AssignedTo  *int64
	Photos      []string
}

// NewIssueService constructs the service.
func NewIssueService(deps IssueDependencies) *IssueService {
	return &IssueService{
		issues:      deps.IssueRepo,
		notes:       deps.NoteRepo,
		escalations: deps.EscalationRepo,
		dispatcher:  deps.Dispatcher,
	}
}

// CreateIssue validates and persists a citizen-reported issue. The reference
// number is generated here and never changes afterwards; the insert retries
// with a fresh number when it loses the uniqueness race to a concurrent
// submission.
func (s *IssueService) CreateIssue(ctx context.Context, input IssueCreateInput) (*domain.Issue, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	location := strings.TrimSpace(input.Location)
	if title == "" || description == "" || location == "" {
		return nil, apperrors.NewValidationError("title, description, location required", nil)
	}
	if !domain.ValidCategory(input.Category) {
		return nil, apperrors.NewValidationError("unknown category", map[string]any{"category": input.Category})
	}

	priority := normalizePriority(input.Priority)

	issue := &domain.Issue{
		Title:           title,
		Description:     description,
		Category:        input.Category,
		Priority:        priority,
		Status:          domain.IssueStatusOpen,
		Location:        location,
		Ward:            input.Ward,
		ReporterName:    input.ReporterName,
		ReporterPhone:   input.ReporterPhone,
		ReporterUserID:  input.ReporterUserID,
		Photos:          input.Photos,
	}

	created := false
	for attempt := 0; attempt < maxReferenceAttempts; attempt++ {
		issue.ReferenceNumber = generateReferenceNumber(time.Now())
		err := s.issues.Create(ctx, issue)
		if err == nil {
			created = true
			break
		}
		if isReferenceCollision(err) {
			continue
		}
		return nil, apperrors.MapError(err)
	}
	if !created {
		return nil, apperrors.NewInternalError(errors.New("could not generate unique reference number"))
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventIssueCreated,
		IssueID: issue.ID,
		Actor:   citizenActor(input.ReporterUserID, input.ReporterName),
		Payload: events.IssueCreatedPayload{
			ReferenceNumber: issue.ReferenceNumber,
			Category:        issue.Category,
			Priority:        issue.Priority,
			Ward:            issue.Ward,
			Title:           issue.Title,
		},
	})
	return issue, nil
}

// GetIssue fetches a single issue.
func (s *IssueService) GetIssue(ctx context.Context, id int64) (*domain.Issue, error) {
	issue, err := s.issues.GetByID(ctx, id)
	if err != nil {
		return nil, mapIssueErr(err, id)
	}
	return issue, nil
}

// GetIssueByReference fetches an issue by its human-shareable code.
func (s *IssueService) GetIssueByReference(ctx context.Context, ref string) (*domain.Issue, error) {
	issue, err := s.issues.GetByReference(ctx, ref)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("issue", map[string]any{"reference_number": ref})
		}
		return nil, apperrors.MapError(err)
	}
	return issue, nil
}

// ListIssues returns issues matching the filter.
func (s *IssueService) ListIssues(ctx context.Context, filter repository.IssueFilter) ([]domain.Issue, error) {
	issues, err := s.issues.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return issues, nil
}

// UpdateIssue applies a partial update. The first transition into resolved
// stamps ResolvedAt; later updates never reset it.
func (s *IssueService) UpdateIssue(ctx context.Context, id int64, cmd UpdateIssueCommand) (*domain.Issue, error) {
	issue, err := s.issues.GetByID(ctx, id)
	if err != nil {
		return nil, mapIssueErr(err, id)
	}

	oldStatus := issue.Status
	if cmd.Title != nil {
		issue.Title = strings.TrimSpace(*cmd.Title)
	}
	if cmd.Description != nil {
		issue.Description = strings.TrimSpace(*cmd.Description)
	}
	if cmd.Category != nil {
		if !domain.ValidCategory(*cmd.Category) {
			return nil, apperrors.NewValidationError("unknown category", map[string]any{"category": *cmd.Category})
		}
		issue.Category = *cmd.Category
	}
	if cmd.Priority != nil {
		issue.Priority = normalizePriority(*cmd.Priority)
	}
	if cmd.Status != nil {
		issue.Status = *cmd.Status
	}
	if cmd.Location != nil {
		issue.Location = strings.TrimSpace(*cmd.Location)
	}
	if cmd.Ward != nil {
		issue.Ward = cmd.Ward
	}
	if cmd.AssignedTo != nil {
		issue.AssignedTo = cmd.AssignedTo
	}
	if cmd.Photos != nil {
		issue.Photos = cmd.Photos
	}

	if issue.Status == domain.IssueStatusResolved && issue.ResolvedAt == nil {
		now := time.Now()
		issue.ResolvedAt = &now
	}

	if err := s.issues.Update(ctx, issue); err != nil {
		return nil, mapIssueErr(err, id)
	}
	if issue.Status != oldStatus {
		s.publishEvent(ctx, events.Event{
			Type:    events.EventIssueStatusChanged,
			IssueID: issue.ID,
			Payload: events.IssueStatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: issue.Status,
			},
		})
	}
	return issue, nil
}

// RateIssue records citizen feedback on a resolved or closed issue.
func (s *IssueService) RateIssue(ctx context.Context, id int64, rating int, feedback *string) (*domain.Issue, error) {
	if rating < 1 || rating > 5 {
		return nil, apperrors.NewValidationError("rating must be between 1 and 5", map[string]any{"rating": rating})
	}
	issue, err := s.issues.GetByID(ctx, id)
	if err != nil {
		return nil, mapIssueErr(err, id)
	}
	if !issue.Rateable() {
		return nil, apperrors.NewConflict("issue must be resolved or closed before rating", map[string]any{"status": issue.Status})
	}
	if issue.Rating != nil {
		return nil, apperrors.NewConflict("issue already rated", map[string]any{"rating": *issue.Rating})
	}
	issue.Rating = &rating
	issue.Feedback = feedback
	if err := s.issues.Update(ctx, issue); err != nil {
		return nil, mapIssueErr(err, id)
	}
	return issue, nil
}

// DeleteIssue hard-removes an issue and its trail. Administrative only.
func (s *IssueService) DeleteIssue(ctx context.Context, id int64) error {
	if err := s.issues.Delete(ctx, id); err != nil {
		return mapIssueErr(err, id)
	}
	return nil
}

// AddNote appends an immutable note to an issue's trail.
func (s *IssueService) AddNote(ctx context.Context, issueID int64, text, noteType, createdBy, createdByRole string) (*domain.IssueNote, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewValidationError("note text required", nil)
	}
	if _, err := s.issues.GetByID(ctx, issueID); err != nil {
		return nil, mapIssueErr(err, issueID)
	}
	if noteType == "" {
		noteType = "general"
	}

	note := &domain.IssueNote{
		IssueID:       issueID,
		Note:          strings.TrimSpace(text),
		NoteType:      noteType,
		CreatedBy:     createdBy,
		CreatedByRole: createdByRole,
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventIssueNoteAdded,
		IssueID: issueID,
		Payload: events.IssueNoteAddedPayload{NoteID: note.ID, NoteType: note.NoteType},
	})
	return note, nil
}

// ListNotes returns an issue's notes in creation order.
func (s *IssueService) ListNotes(ctx context.Context, issueID int64) ([]domain.IssueNote, error) {
	if _, err := s.issues.GetByID(ctx, issueID); err != nil {
		return nil, mapIssueErr(err, issueID)
	}
	notes, err := s.notes.ListByIssue(ctx, issueID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return notes, nil
}

// EscalateIssue appends an escalation record. The repository commits the
// record and the parent issue's urgent priority together, so an escalation
// always implies an urgent issue.
func (s *IssueService) EscalateIssue(ctx context.Context, issueID int64, reason, escalatedBy, escalatedByRole string) (*domain.IssueEscalation, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, apperrors.NewValidationError("escalation reason required", nil)
	}
	if _, err := s.issues.GetByID(ctx, issueID); err != nil {
		return nil, mapIssueErr(err, issueID)
	}

	esc := &domain.IssueEscalation{
		IssueID:          issueID,
		EscalationReason: strings.TrimSpace(reason),
		EscalatedBy:      escalatedBy,
		EscalatedByRole:  escalatedByRole,
		Priority:         domain.IssuePriorityUrgent,
		Status:           domain.EscalationPending,
	}
	if err := s.escalations.Create(ctx, esc); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventIssueEscalated,
		IssueID: issueID,
		Payload: events.IssueEscalatedPayload{EscalationID: esc.ID, Reason: esc.EscalationReason},
	})
	return esc, nil
}

// ListEscalations returns an issue's escalations in creation order.
func (s *IssueService) ListEscalations(ctx context.Context, issueID int64) ([]domain.IssueEscalation, error) {
	if _, err := s.issues.GetByID(ctx, issueID); err != nil {
		return nil, mapIssueErr(err, issueID)
	}
	escalations, err := s.escalations.ListByIssue(ctx, issueID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return escalations, nil
}

// isReferenceCollision reports whether the insert hit the reference_number
// unique constraint. 23505 is the SQLSTATE for unique_violation.
func isReferenceCollision(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == "23505" &&
		strings.Contains(pgErr.ConstraintName, "reference_number")
}

// generateReferenceNumber produces the canonical REF<year><6 chars> code.
func generateReferenceNumber(now time.Time) string {
	token := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
	return "REF" + now.Format("2006") + token
}

func normalizePriority(p domain.IssuePriority) domain.IssuePriority {
	switch p {
	case domain.IssuePriorityLow, domain.IssuePriorityMedium, domain.IssuePriorityHigh, domain.IssuePriorityUrgent:
		return p
	case "emergency":
		// Legacy submissions used "emergency" for the top tier.
		return domain.IssuePriorityUrgent
	default:
		return domain.IssuePriorityMedium
	}
}

func mapIssueErr(err error, id int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("issue", map[string]any{"issue_id": id})
	}
	return apperrors.MapError(err)
}

func citizenActor(userID *int64, name *string) events.Actor {
	actor := events.Actor{Type: domain.SubjectTypeCitizen, UserID: userID}
	if name != nil {
		actor.Name = *name
	}
	return actor
}

func (s *IssueService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
