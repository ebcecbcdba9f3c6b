package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/authz"
	"github.com/spec-kit/case-service/internal/config"
	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/events"
	"github.com/spec-kit/case-service/internal/repository"
	apperrors "github.com/spec-kit/case-service/pkg/util"
)

// WorkflowService orchestrates case transitions. Every mutating
// operation runs in one transaction covering the case row, the history
// insert and the best-effort area grant; notifications fire only after
// the transaction commits.
type WorkflowService struct {
	tx         repository.TxRunner
	cases      repository.CaseRepository
	users      repository.UserRepository
	catalog    repository.CatalogRepository
	authorizer *authz.Authorizer
	dispatcher events.Dispatcher
	cfg        config.WorkflowConfig
	logger     *zap.Logger
	now        func() time.Time
}

// WorkflowDependencies bundles collaborators for the engine.
type WorkflowDependencies struct {
	TxRunner    repository.TxRunner
	CaseRepo    repository.CaseRepository
	UserRepo    repository.UserRepository
	CatalogRepo repository.CatalogRepository
	Authorizer  *authz.Authorizer
	Dispatcher  events.Dispatcher
	Config      config.WorkflowConfig
	Logger      *zap.Logger
}

// NewWorkflowService constructs the engine.
func NewWorkflowService(deps WorkflowDependencies) *WorkflowService {
	return &WorkflowService{
		tx:         deps.TxRunner,
		cases:      deps.CaseRepo,
		users:      deps.UserRepo,
		catalog:    deps.CatalogRepo,
		authorizer: deps.Authorizer,
		dispatcher: deps.Dispatcher,
		cfg:        deps.Config,
		logger:     deps.Logger,
		now:        time.Now,
	}
}

// CreateCaseInput describes case creation payload.
type CreateCaseInput struct {
	TypeID        int64
	SeverityID    int64
	AreaID        int64
	SiteID        int64
	SubLocationID *int64
	DueAt         *time.Time
	Subject       string
	Description   string
}

// UpdateStateInput is the compound PATCH payload. Each present field is
// individually capability-checked before anything is applied.
type UpdateStateInput struct {
	StatusID   *int64
	SeverityID *int64
	AreaID     *int64
	Note       string
	Internal   bool
}

// Create opens a new case in the configured initial status with no
// assignee. Creation notifies nobody.
func (s *WorkflowService) Create(ctx context.Context, actor *domain.User, kind domain.CaseKind, input CreateCaseInput) (*domain.Case, error) {
	if err := s.authorizer.AuthorizeAny(actor, domain.CapabilityCreate); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Subject) == "" {
		return nil, apperrors.NewValidationError("subject required", nil)
	}
	if err := s.validateClassification(ctx, kind, input.TypeID, input.SeverityID); err != nil {
		return nil, err
	}
	areaID := input.AreaID
	if areaID == 0 {
		if actor.AreaID == nil {
			return nil, apperrors.NewValidationError("area required", nil)
		}
		areaID = *actor.AreaID
	}
	if err := s.validateArea(ctx, areaID); err != nil {
		return nil, err
	}
	if err := s.validateLocation(ctx, input.SiteID, input.SubLocationID); err != nil {
		return nil, err
	}

	initial, err := s.catalog.GetStatusByCode(ctx, kind, s.cfg.OpenStatusCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("initial status not configured", map[string]any{"code": s.cfg.OpenStatusCode})
		}
		return nil, apperrors.MapError(err)
	}
	if !initial.IsActive || initial.IsFinal {
		return nil, apperrors.NewValidationError("initial status unavailable", map[string]any{"code": initial.Code})
	}

	now := s.now()
	dueAt := now.Add(s.cfg.SLA())
	if input.DueAt != nil {
		dueAt = *input.DueAt
	}

	originAreaID := areaID
	if actor.AreaID != nil {
		originAreaID = *actor.AreaID
	}

	newCase := &domain.Case{
		Kind:          kind,
		TypeID:        input.TypeID,
		SeverityID:    input.SeverityID,
		StatusID:      initial.ID,
		AreaOriginID:  originAreaID,
		AreaCurrentID: areaID,
		SiteID:        input.SiteID,
		SubLocationID: input.SubLocationID,
		RequesterID:   actor.ID,
		DueAt:         dueAt,
		Subject:       strings.TrimSpace(input.Subject),
		Description:   strings.TrimSpace(input.Description),
	}

	err = s.tx.InTx(ctx, func(tx repository.Tx) error {
		if err := tx.Cases().Create(ctx, newCase); err != nil {
			return apperrors.MapError(err)
		}
		entry := &domain.HistoryEntry{
			CaseID:       newCase.ID,
			ActorID:      actor.ID,
			Action:       domain.HistoryActionCreated,
			ToStatusID:   &newCase.StatusID,
			ToAreaID:     &newCase.AreaCurrentID,
			ToSeverityID: &newCase.SeverityID,
		}
		if err := tx.History().Create(ctx, entry); err != nil {
			return apperrors.MapError(err)
		}
		s.grantArea(ctx, tx, newCase.ID, newCase.AreaOriginID, domain.GrantReasonCreated)
		s.grantArea(ctx, tx, newCase.ID, newCase.AreaCurrentID, domain.GrantReasonCreated)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return newCase, nil
}

// Take self-assigns an unassigned case. When the case sits in the
// configured open status and an in-progress status exists, the status
// advances as a side effect of the same transaction.
func (s *WorkflowService) Take(ctx context.Context, actor *domain.User, kind domain.CaseKind, caseID int64) (*domain.Case, error) {
	if _, err := s.loadAuthorized(ctx, actor, kind, caseID, domain.CapabilityAssign); err != nil {
		return nil, err
	}

	var taken *domain.Case
	err := s.tx.InTx(ctx, func(tx repository.Tx) error {
		locked, err := tx.Cases().GetByIDForUpdate(ctx, kind, caseID)
		if err != nil {
			return apperrors.MapError(err)
		}
		if !s.authorizer.Can(actor, domain.CapabilityAssign, locked) {
			return apperrors.NewForbidden("permission denied")
		}
		if locked.Assigned() {
			return apperrors.NewConflict("case already assigned", map[string]any{"assigned_user_id": *locked.AssignedUserID})
		}

		now := s.now()
		actorID := actor.ID
		locked.AssignedUserID = &actorID
		locked.AssignedAt = &now

		entry := &domain.HistoryEntry{
			CaseID:       locked.ID,
			ActorID:      actor.ID,
			Action:       domain.HistoryActionAssigned,
			ToAssigneeID: &actorID,
		}
		if err := s.maybeAdvanceToInProgress(ctx, locked, entry); err != nil {
			return err
		}
		if err := tx.Cases().Update(ctx, locked); err != nil {
			return apperrors.MapError(err)
		}
		if err := tx.History().Create(ctx, entry); err != nil {
			return apperrors.MapError(err)
		}
		taken = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishTransition(ctx, taken, actor.ID, events.EventCaseAssigned, events.TransitionPayload{
		Action:       domain.HistoryActionAssigned,
		RecipientIDs: dedupeIDs([]int64{actor.ID, taken.RequesterID}),
		Message:      s.message(taken, "assigned"),
	})
	return taken, nil
}

// Assign hands the case to the target user. Unless the actor is
// globally privileged, the target must belong to the case's current
// area or hold a global view grant.
func (s *WorkflowService) Assign(ctx context.Context, actor *domain.User, kind domain.CaseKind, caseID, targetUserID int64) (*domain.Case, error) {
	if _, err := s.loadAuthorized(ctx, actor, kind, caseID, domain.CapabilityAssign); err != nil {
		return nil, err
	}
	target, err := s.users.GetByID(ctx, targetUserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("assigned user not found", map[string]any{"assigned_user_id": targetUserID})
		}
		return nil, apperrors.MapError(err)
	}

	var assigned *domain.Case
	var action domain.HistoryAction
	err = s.tx.InTx(ctx, func(tx repository.Tx) error {
		locked, err := tx.Cases().GetByIDForUpdate(ctx, kind, caseID)
		if err != nil {
			return apperrors.MapError(err)
		}
		if !s.authorizer.Can(actor, domain.CapabilityAssign, locked) {
			return apperrors.NewForbidden("permission denied")
		}
		if locked.AssignedTo(target.ID) {
			return apperrors.NewConflict("user is already the assignee", map[string]any{"assigned_user_id": target.ID})
		}
		if !s.authorizer.GlobalScoped(actor, domain.CapabilityAssign) && !s.assigneeEligible(target, locked) {
			return apperrors.NewValidationError("assignee outside the case's current area", map[string]any{
				"assigned_user_id": target.ID,
				"area_current_id":  locked.AreaCurrentID,
			})
		}

		previous := locked.AssignedUserID
		now := s.now()
		targetID := target.ID
		locked.AssignedUserID = &targetID
		locked.AssignedAt = &now

		action = domain.HistoryActionAssigned
		if previous != nil {
			action = domain.HistoryActionReassigned
		}
		entry := &domain.HistoryEntry{
			CaseID:         locked.ID,
			ActorID:        actor.ID,
			Action:         action,
			FromAssigneeID: previous,
			ToAssigneeID:   &targetID,
		}
		if err := tx.Cases().Update(ctx, locked); err != nil {
			return apperrors.MapError(err)
		}
		if err := tx.History().Create(ctx, entry); err != nil {
			return apperrors.MapError(err)
		}
		assigned = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishTransition(ctx, assigned, actor.ID, events.EventCaseAssigned, events.TransitionPayload{
		Action:       action,
		RecipientIDs: dedupeIDs([]int64{target.ID, assigned.RequesterID}),
		Message:      s.message(assigned, "assigned"),
	})
	return assigned, nil
}

// Unassign clears the current assignee. No notification fires.
func (s *WorkflowService) Unassign(ctx context.Context, actor *domain.User, kind domain.CaseKind, caseID int64) (*domain.Case, error) {
	if _, err := s.loadAuthorized(ctx, actor, kind, caseID, domain.CapabilityAssign); err != nil {
		return nil, err
	}

	var cleared *domain.Case
	err := s.tx.InTx(ctx, func(tx repository.Tx) error {
		locked, err := tx.Cases().GetByIDForUpdate(ctx, kind, caseID)
		if err != nil {
			return apperrors.MapError(err)
		}
		if !s.authorizer.Can(actor, domain.CapabilityAssign, locked) {
			return apperrors.NewForbidden("permission denied")
		}
		if !locked.Assigned() {
			return apperrors.NewConflict("case has no assignee", nil)
		}

		previous := locked.AssignedUserID
		locked.AssignedUserID = nil
		locked.AssignedAt = nil

		entry := &domain.HistoryEntry{
			CaseID:         locked.ID,
			ActorID:        actor.ID,
			Action:         domain.HistoryActionUnassigned,
			FromAssigneeID: previous,
		}
		if err := tx.Cases().Update(ctx, locked); err != nil {
			return apperrors.MapError(err)
		}
		if err := tx.History().Create(ctx, entry); err != nil {
			return apperrors.MapError(err)
		}
		cleared = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cleared, nil
}

// Escalate transfers ownership to another area, clearing the assignee.
// A non-empty note additionally requires the comment capability; when
// that check fails nothing is persisted.
func (s *WorkflowService) Escalate(ctx context.Context, actor *domain.User, kind domain.CaseKind, caseID, destAreaID int64, note string) (*domain.Case, error) {
	loaded, err := s.loadAuthorized(ctx, actor, kind, caseID, domain.CapabilityEscalate)
	if err != nil {
		return nil, err
	}
	note = strings.TrimSpace(note)
	if note != "" {
		if err := s.authorizer.Authorize(actor, domain.CapabilityComment, loaded); err != nil {
			return nil, err
		}
	}
	if err := s.validateArea(ctx, destAreaID); err != nil {
		return nil, err
	}

	var escalated *domain.Case
	err = s.tx.InTx(ctx, func(tx repository.Tx) error {
		locked, err := tx.Cases().GetByIDForUpdate(ctx, kind, caseID)
		if err != nil {
			return apperrors.MapError(err)
		}
		if !s.authorizer.Can(actor, domain.CapabilityEscalate, locked) {
			return apperrors.NewForbidden("permission denied")
		}
		if locked.AreaCurrentID == destAreaID {
			return apperrors.NewConflict("case already in destination area", map[string]any{"area_id": destAreaID})
		}

		entry := &domain.HistoryEntry{
			CaseID:         locked.ID,
			ActorID:        actor.ID,
			Action:         domain.HistoryActionEscalated,
			FromAreaID:     ptrInt64(locked.AreaCurrentID),
			ToAreaID:       ptrInt64(destAreaID),
			FromAssigneeID: locked.AssignedUserID,
		}
		if note != "" {
			entry.Note = &note
		}

		locked.AreaCurrentID = destAreaID
		locked.AssignedUserID = nil
		locked.AssignedAt = nil

		if err := tx.Cases().Update(ctx, locked); err != nil {
			return apperrors.MapError(err)
		}
		if err := tx.History().Create(ctx, entry); err != nil {
			return apperrors.MapError(err)
		}
		s.grantArea(ctx, tx, locked.ID, destAreaID, domain.GrantReasonEscalated)
		escalated = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishTransition(ctx, escalated, actor.ID, events.EventCaseEscalated, events.TransitionPayload{
		Action:       domain.HistoryActionEscalated,
		RecipientIDs: s.escalationRecipients(ctx, escalated, destAreaID),
		Message:      s.message(escalated, "escalated"),
	})
	return escalated, nil
}

// UpdateState applies a compound status/severity/area patch. Each
// present field is capability-checked before anything is staged; a
// rejected note aborts the whole operation. A no-op patch writes no
// history and fires no notification.
func (s *WorkflowService) UpdateState(ctx context.Context, actor *domain.User, kind domain.CaseKind, caseID int64, input UpdateStateInput) (*domain.Case, error) {
	loaded, err := s.loadAuthorized(ctx, actor, kind, caseID, domain.CapabilityView)
	if err != nil {
		return nil, err
	}
	if input.StatusID != nil || input.SeverityID != nil {
		if err := s.authorizer.Authorize(actor, domain.CapabilityChangeStatus, loaded); err != nil {
			return nil, err
		}
	}
	if input.AreaID != nil {
		if err := s.authorizer.Authorize(actor, domain.CapabilityChangeArea, loaded); err != nil {
			return nil, err
		}
	}
	note := strings.TrimSpace(input.Note)
	if note != "" {
		if err := s.authorizer.Authorize(actor, domain.CapabilityComment, loaded); err != nil {
			return nil, err
		}
	}

	var updated *domain.Case
	var entry *domain.HistoryEntry
	var areaChangedTo *int64
	err = s.tx.InTx(ctx, func(tx repository.Tx) error {
		locked, err := tx.Cases().GetByIDForUpdate(ctx, kind, caseID)
		if err != nil {
			return apperrors.MapError(err)
		}

		staged := &domain.HistoryEntry{
			CaseID:   locked.ID,
			ActorID:  actor.ID,
			Internal: input.Internal,
		}
		changed := false

		if input.StatusID != nil && *input.StatusID != locked.StatusID {
			status, err := s.catalog.GetStatus(ctx, *input.StatusID)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return apperrors.NewValidationError("unknown status", map[string]any{"status_id": *input.StatusID})
				}
				return apperrors.MapError(err)
			}
			if status.Kind != kind || !status.IsActive {
				return apperrors.NewValidationError("status not available for this case", map[string]any{"status_id": status.ID})
			}
			staged.FromStatusID = ptrInt64(locked.StatusID)
			staged.ToStatusID = ptrInt64(status.ID)
			locked.StatusID = status.ID
			if status.IsFinal {
				now := s.now()
				locked.ClosedAt = &now
			} else {
				locked.ClosedAt = nil
			}
			changed = true
		}

		if input.SeverityID != nil && *input.SeverityID != locked.SeverityID {
			severity, err := s.catalog.GetSeverity(ctx, *input.SeverityID)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return apperrors.NewValidationError("unknown severity", map[string]any{"severity_id": *input.SeverityID})
				}
				return apperrors.MapError(err)
			}
			if severity.Kind != kind || !severity.IsActive {
				return apperrors.NewValidationError("severity not available for this case", map[string]any{"severity_id": severity.ID})
			}
			staged.FromSeverityID = ptrInt64(locked.SeverityID)
			staged.ToSeverityID = ptrInt64(severity.ID)
			locked.SeverityID = severity.ID
			changed = true
		}

		if input.AreaID != nil && *input.AreaID != locked.AreaCurrentID {
			if err := s.validateArea(ctx, *input.AreaID); err != nil {
				return err
			}
			staged.FromAreaID = ptrInt64(locked.AreaCurrentID)
			staged.ToAreaID = ptrInt64(*input.AreaID)
			staged.FromAssigneeID = locked.AssignedUserID
			locked.AreaCurrentID = *input.AreaID
			locked.AssignedUserID = nil
			locked.AssignedAt = nil
			s.grantArea(ctx, tx, locked.ID, *input.AreaID, domain.GrantReasonEscalated)
			areaChangedTo = input.AreaID
			changed = true
		}

		if !changed && note == "" {
			updated = locked
			return nil
		}

		switch {
		case staged.ToAreaID != nil:
			staged.Action = domain.HistoryActionEscalated
		case staged.ToStatusID != nil:
			staged.Action = domain.HistoryActionStatusChanged
		case staged.ToSeverityID != nil:
			staged.Action = domain.HistoryActionSeverityChanged
		default:
			staged.Action = domain.HistoryActionComment
		}
		if note != "" {
			staged.Note = &note
		}

		if changed {
			if err := tx.Cases().Update(ctx, locked); err != nil {
				return apperrors.MapError(err)
			}
		}
		if err := tx.History().Create(ctx, staged); err != nil {
			return apperrors.MapError(err)
		}
		updated = locked
		entry = staged
		return nil
	})
	if err != nil {
		return nil, err
	}

	if entry != nil && entry.Action != domain.HistoryActionComment {
		recipients := []int64{updated.RequesterID}
		if updated.AssignedUserID != nil {
			recipients = append(recipients, *updated.AssignedUserID)
		}
		if areaChangedTo != nil {
			recipients = s.escalationRecipients(ctx, updated, *areaChangedTo)
		}
		s.publishTransition(ctx, updated, actor.ID, events.EventCaseStateChanged, events.TransitionPayload{
			Action:       entry.Action,
			RecipientIDs: dedupeIDs(recipients),
			Message:      s.message(updated, "updated"),
		})
	}
	return updated, nil
}

// Comment appends a note to the case history and notifies the assignee
// and requester.
func (s *WorkflowService) Comment(ctx context.Context, actor *domain.User, kind domain.CaseKind, caseID int64, body string, internal bool) (*domain.HistoryEntry, error) {
	loaded, err := s.loadAuthorized(ctx, actor, kind, caseID, domain.CapabilityComment)
	if err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("comment body required", nil)
	}

	entry := &domain.HistoryEntry{
		CaseID:   loaded.ID,
		ActorID:  actor.ID,
		Action:   domain.HistoryActionComment,
		Note:     &body,
		Internal: internal,
	}
	err = s.tx.InTx(ctx, func(tx repository.Tx) error {
		if err := tx.History().Create(ctx, entry); err != nil {
			return apperrors.MapError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	recipients := []int64{loaded.RequesterID}
	if loaded.AssignedUserID != nil {
		recipients = append(recipients, *loaded.AssignedUserID)
	}
	s.publishTransition(ctx, loaded, actor.ID, events.EventCaseCommented, events.TransitionPayload{
		Action:       domain.HistoryActionComment,
		RecipientIDs: dedupeIDs(recipients),
		Message:      s.message(loaded, "commented"),
	})
	return entry, nil
}

// loadAuthorized fetches a case and authorizes the capability against
// it: 404 when absent, 403 when out of scope.
func (s *WorkflowService) loadAuthorized(ctx context.Context, actor *domain.User, kind domain.CaseKind, caseID int64, capability domain.Capability) (*domain.Case, error) {
	c, err := s.cases.GetByID(ctx, kind, caseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound(string(kind), map[string]any{"id": caseID})
		}
		return nil, apperrors.MapError(err)
	}
	if err := s.authorizer.Authorize(actor, capability, c); err != nil {
		return nil, err
	}
	return c, nil
}

// maybeAdvanceToInProgress applies the open → in-progress side effect
// of take, when both codes resolve against the catalog.
func (s *WorkflowService) maybeAdvanceToInProgress(ctx context.Context, c *domain.Case, entry *domain.HistoryEntry) error {
	status, err := s.catalog.GetStatus(ctx, c.StatusID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if status.Code != s.cfg.OpenStatusCode {
		return nil
	}
	inProgress, err := s.catalog.GetStatusByCode(ctx, c.Kind, s.cfg.InProgressStatusCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return apperrors.MapError(err)
	}
	if !inProgress.IsActive {
		return nil
	}
	entry.FromStatusID = ptrInt64(c.StatusID)
	entry.ToStatusID = ptrInt64(inProgress.ID)
	c.StatusID = inProgress.ID
	c.ClosedAt = nil
	return nil
}

func (s *WorkflowService) assigneeEligible(target *domain.User, c *domain.Case) bool {
	if s.authorizer.GlobalScoped(target, domain.CapabilityView) {
		return true
	}
	return target.InArea(c.AreaCurrentID)
}

func (s *WorkflowService) validateClassification(ctx context.Context, kind domain.CaseKind, typeID, severityID int64) error {
	caseType, err := s.catalog.GetCaseType(ctx, typeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewValidationError("unknown case type", map[string]any{"type_id": typeID})
		}
		return apperrors.MapError(err)
	}
	if caseType.Kind != kind || !caseType.IsActive {
		return apperrors.NewValidationError("case type not available", map[string]any{"type_id": typeID})
	}
	severity, err := s.catalog.GetSeverity(ctx, severityID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewValidationError("unknown severity", map[string]any{"severity_id": severityID})
		}
		return apperrors.MapError(err)
	}
	if severity.Kind != kind || !severity.IsActive {
		return apperrors.NewValidationError("severity not available", map[string]any{"severity_id": severityID})
	}
	return nil
}

func (s *WorkflowService) validateArea(ctx context.Context, areaID int64) error {
	area, err := s.catalog.GetArea(ctx, areaID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewValidationError("unknown area", map[string]any{"area_id": areaID})
		}
		return apperrors.MapError(err)
	}
	if !area.IsActive {
		return apperrors.NewValidationError("area inactive", map[string]any{"area_id": areaID})
	}
	return nil
}

func (s *WorkflowService) validateLocation(ctx context.Context, siteID int64, subLocationID *int64) error {
	site, err := s.catalog.GetSite(ctx, siteID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewValidationError("unknown site", map[string]any{"site_id": siteID})
		}
		return apperrors.MapError(err)
	}
	if !site.IsActive {
		return apperrors.NewValidationError("site inactive", map[string]any{"site_id": siteID})
	}
	if subLocationID == nil {
		return nil
	}
	sub, err := s.catalog.GetSubLocation(ctx, *subLocationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewValidationError("unknown sub-location", map[string]any{"sub_location_id": *subLocationID})
		}
		return apperrors.MapError(err)
	}
	if sub.SiteID != siteID || !sub.IsActive {
		return apperrors.NewValidationError("sub-location does not belong to site", map[string]any{"sub_location_id": sub.ID})
	}
	return nil
}

// grantArea records area access best-effort: failures are logged with
// actor/case identifiers and never abort the transaction. The insert runs
// under a savepoint so a failed statement cannot poison the enclosing
// transaction and revert the parent operation at commit.
func (s *WorkflowService) grantArea(ctx context.Context, tx repository.Tx, caseID, areaID int64, reason domain.GrantReason) {
	grant := &domain.AreaAccessGrant{CaseID: caseID, AreaID: areaID, Reason: reason}
	err := tx.Savepoint(ctx, func(sp repository.Tx) error {
		return sp.Grants().Create(ctx, grant)
	})
	if err != nil {
		s.logger.Warn("area access grant failed",
			zap.Int64("case_id", caseID),
			zap.Int64("area_id", areaID),
			zap.String("reason", string(reason)),
			zap.Error(err),
		)
	}
}

// escalationRecipients is every user in the destination area holding a
// view grant, plus the requester.
func (s *WorkflowService) escalationRecipients(ctx context.Context, c *domain.Case, destAreaID int64) []int64 {
	recipients := []int64{c.RequesterID}
	viewers, err := s.users.ListByAreaWithCapability(ctx, destAreaID, domain.CapabilityView)
	if err != nil {
		s.logger.Warn("escalation recipient lookup failed",
			zap.Int64("case_id", c.ID),
			zap.Int64("area_id", destAreaID),
			zap.Error(err),
		)
		return dedupeIDs(recipients)
	}
	for _, viewer := range viewers {
		recipients = append(recipients, viewer.ID)
	}
	return dedupeIDs(recipients)
}

func (s *WorkflowService) publishTransition(ctx context.Context, c *domain.Case, actorID int64, eventType events.EventType, payload events.TransitionPayload) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Kind:      c.Kind,
		CaseID:    c.ID,
		ActorID:   actorID,
		Timestamp: s.now(),
		Payload:   payload,
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func (s *WorkflowService) message(c *domain.Case, verb string) string {
	return fmt.Sprintf("%s #%d %s: %s", c.Kind, c.ID, verb, c.Subject)
}

func ptrInt64(v int64) *int64 {
	return &v
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	result := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
