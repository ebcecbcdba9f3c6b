package authz

import (
	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/repository"
	apperrors "github.com/spec-kit/case-service/pkg/util"
)

const areaRequiredMessage = "capability is area-scoped but the account has no area assigned"

// Authorizer evaluates capability grants against concrete cases. All
// checks take the acting user explicitly; there is no ambient actor.
type Authorizer struct {
	logger *zap.Logger
}

// New builds an Authorizer.
func New(logger *zap.Logger) *Authorizer {
	return &Authorizer{logger: logger}
}

// Can reports whether the actor may exercise the capability on the case.
func (a *Authorizer) Can(actor *domain.User, capability domain.Capability, c *domain.Case) bool {
	scope, ok := actor.Permissions.ScopeFor(capability)
	if !ok {
		return false
	}
	switch scope {
	case domain.ScopeGlobal:
		return true
	case domain.ScopeArea:
		return actor.InArea(c.AreaCurrentID)
	case domain.ScopeSelf:
		return c.RequesterID == actor.ID
	default:
		return false
	}
}

// Authorize is Can with the denial turned into a typed error. An
// area-scoped grant on an account without an area is rejected outright,
// with a server-side warning, rather than silently matching nothing.
func (a *Authorizer) Authorize(actor *domain.User, capability domain.Capability, c *domain.Case) error {
	scope, ok := actor.Permissions.ScopeFor(capability)
	if !ok {
		return apperrors.NewForbidden("permission denied")
	}
	if scope == domain.ScopeArea && actor.AreaID == nil {
		a.warnArealess(actor, capability)
		return apperrors.NewForbidden(areaRequiredMessage)
	}
	if !a.Can(actor, capability, c) {
		return apperrors.NewForbidden("permission denied")
	}
	return nil
}

// AuthorizeAny checks a capability without a case at hand (creation,
// listing). Area-scoped grants still require an assigned area.
func (a *Authorizer) AuthorizeAny(actor *domain.User, capability domain.Capability) error {
	scope, ok := actor.Permissions.ScopeFor(capability)
	if !ok {
		return apperrors.NewForbidden("permission denied")
	}
	if scope == domain.ScopeArea && actor.AreaID == nil {
		a.warnArealess(actor, capability)
		return apperrors.NewForbidden(areaRequiredMessage)
	}
	return nil
}

// Scope restricts a case filter to what the actor may see through the
// capability. Returns the denial for actors with no grant, or with an
// area grant and no area.
func (a *Authorizer) Scope(actor *domain.User, capability domain.Capability, filter *repository.CaseFilter) error {
	scope, ok := actor.Permissions.ScopeFor(capability)
	if !ok {
		return apperrors.NewForbidden("permission denied")
	}
	switch scope {
	case domain.ScopeGlobal:
		// unrestricted
	case domain.ScopeArea:
		if actor.AreaID == nil {
			a.warnArealess(actor, capability)
			return apperrors.NewForbidden(areaRequiredMessage)
		}
		if filter.AssignedUserID != nil {
			// an assignee-filtered query is scoped by the assignee's
			// area instead of the case's owning area
			filter.ScopeAssigneeIn = actor.AreaID
		} else {
			filter.ScopeAreaID = actor.AreaID
		}
	case domain.ScopeSelf:
		id := actor.ID
		filter.RequesterID = &id
	}
	return nil
}

// SelfScoped reports whether the actor's view of cases is requester-only,
// which also hides internal history entries from responses.
func (a *Authorizer) SelfScoped(actor *domain.User, capability domain.Capability) bool {
	scope, ok := actor.Permissions.ScopeFor(capability)
	return ok && scope == domain.ScopeSelf
}

// GlobalScoped reports whether the actor holds the capability globally.
func (a *Authorizer) GlobalScoped(actor *domain.User, capability domain.Capability) bool {
	scope, ok := actor.Permissions.ScopeFor(capability)
	return ok && scope == domain.ScopeGlobal
}

// CanFilterBy gates cross-cutting filter dimensions. Callers drop the
// filter silently when this returns false.
func (a *Authorizer) CanFilterBy(actor *domain.User, capability domain.Capability) bool {
	return actor.Permissions.Has(capability)
}

// Abilities is the per-response projection of what the actor may do to
// one case instance. Recomputed on every response, never cached.
type Abilities struct {
	Assign       bool `json:"assign"`
	Escalate     bool `json:"escalate"`
	Comment      bool `json:"comment"`
	ChangeStatus bool `json:"change_status"`
	ChangeArea   bool `json:"change_area"`
}

// AbilitiesFor computes the abilities projection.
func (a *Authorizer) AbilitiesFor(actor *domain.User, c *domain.Case) Abilities {
	return Abilities{
		Assign:       a.Can(actor, domain.CapabilityAssign, c),
		Escalate:     a.Can(actor, domain.CapabilityEscalate, c),
		Comment:      a.Can(actor, domain.CapabilityComment, c),
		ChangeStatus: a.Can(actor, domain.CapabilityChangeStatus, c),
		ChangeArea:   a.Can(actor, domain.CapabilityChangeArea, c),
	}
}

func (a *Authorizer) warnArealess(actor *domain.User, capability domain.Capability) {
	if a.logger == nil {
		return
	}
	a.logger.Warn("area-scoped capability without area assignment",
		zap.Int64("user_id", actor.ID),
		zap.String("capability", string(capability)),
	)
}
