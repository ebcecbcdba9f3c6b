package authz

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/repository"
	apperrors "github.com/spec-kit/case-service/pkg/util"
)

func ptr(v int64) *int64 { return &v }

func testCase() *domain.Case {
	return &domain.Case{ID: 7, Kind: domain.CaseKindTicket, AreaCurrentID: 3, RequesterID: 42}
}

func TestCanGlobalScope(t *testing.T) {
	a := New(zap.NewNop())
	user := &domain.User{ID: 1, Permissions: domain.PermissionSet{domain.CapabilityView: domain.ScopeGlobal}}

	if !a.Can(user, domain.CapabilityView, testCase()) {
		t.Fatal("global viewer must see any case")
	}
}

func TestCanAreaScopeMatchesCurrentArea(t *testing.T) {
	a := New(zap.NewNop())
	inside := &domain.User{ID: 1, AreaID: ptr(3), Permissions: domain.PermissionSet{domain.CapabilityView: domain.ScopeArea}}
	outside := &domain.User{ID: 2, AreaID: ptr(9), Permissions: domain.PermissionSet{domain.CapabilityView: domain.ScopeArea}}

	if !a.Can(inside, domain.CapabilityView, testCase()) {
		t.Fatal("area viewer in the case's area must pass")
	}
	if a.Can(outside, domain.CapabilityView, testCase()) {
		t.Fatal("area viewer outside the case's area must fail")
	}
}

func TestCanSelfScopeRequesterOnly(t *testing.T) {
	a := New(zap.NewNop())
	requester := &domain.User{ID: 42, Permissions: domain.PermissionSet{domain.CapabilityView: domain.ScopeSelf}}
	stranger := &domain.User{ID: 43, Permissions: domain.PermissionSet{domain.CapabilityView: domain.ScopeSelf}}

	if !a.Can(requester, domain.CapabilityView, testCase()) {
		t.Fatal("requester must see own case")
	}
	if a.Can(stranger, domain.CapabilityView, testCase()) {
		t.Fatal("stranger must not see the case")
	}
}

func TestAuthorizeMissingCapability(t *testing.T) {
	a := New(zap.NewNop())
	user := &domain.User{ID: 1, Permissions: domain.PermissionSet{}}

	err := a.Authorize(user, domain.CapabilityAssign, testCase())
	if err == nil {
		t.Fatal("expected forbidden")
	}
	if apperrors.ToDomainError(err).HTTPStatus != 403 {
		t.Fatalf("expected 403, got %d", apperrors.ToDomainError(err).HTTPStatus)
	}
}

func TestAuthorizeAreaScopedWithoutArea(t *testing.T) {
	a := New(zap.NewNop())
	user := &domain.User{ID: 1, Permissions: domain.PermissionSet{domain.CapabilityAssign: domain.ScopeArea}}

	err := a.Authorize(user, domain.CapabilityAssign, testCase())
	if err == nil {
		t.Fatal("expected forbidden")
	}
	domainErr := apperrors.ToDomainError(err)
	if domainErr.HTTPStatus != 403 {
		t.Fatalf("expected 403, got %d", domainErr.HTTPStatus)
	}
	if domainErr.Message != areaRequiredMessage {
		t.Fatalf("expected distinct area-required message, got %q", domainErr.Message)
	}
}

func TestScopeAreaScopedWithoutAreaLogsWarning(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	a := New(zap.New(core))
	user := &domain.User{ID: 5, Permissions: domain.PermissionSet{domain.CapabilityView: domain.ScopeArea}}

	err := a.Scope(user, domain.CapabilityView, &repository.CaseFilter{})
	if apperrors.ToDomainError(err).HTTPStatus != 403 {
		t.Fatalf("expected 403, got %v", err)
	}

	entries := logs.FilterMessage("area-scoped capability without area assignment").All()
	if len(entries) != 1 {
		t.Fatalf("expected one warning, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["user_id"] != int64(5) || fields["capability"] != string(domain.CapabilityView) {
		t.Fatalf("warning missing actor or capability: %v", fields)
	}
}

func TestScopeRestrictsFilter(t *testing.T) {
	a := New(zap.NewNop())

	areaUser := &domain.User{ID: 1, AreaID: ptr(3), Permissions: domain.PermissionSet{domain.CapabilityView: domain.ScopeArea}}
	filter := &repository.CaseFilter{}
	if err := a.Scope(areaUser, domain.CapabilityView, filter); err != nil {
		t.Fatalf("scope: %v", err)
	}
	if filter.ScopeAreaID == nil || *filter.ScopeAreaID != 3 {
		t.Fatalf("area scope not applied: %+v", filter)
	}

	selfUser := &domain.User{ID: 42, Permissions: domain.PermissionSet{domain.CapabilityView: domain.ScopeSelf}}
	filter = &repository.CaseFilter{}
	if err := a.Scope(selfUser, domain.CapabilityView, filter); err != nil {
		t.Fatalf("scope: %v", err)
	}
	if filter.RequesterID == nil || *filter.RequesterID != 42 {
		t.Fatalf("self scope not applied: %+v", filter)
	}

	globalUser := &domain.User{ID: 9, Permissions: domain.PermissionSet{domain.CapabilityView: domain.ScopeGlobal}}
	filter = &repository.CaseFilter{}
	if err := a.Scope(globalUser, domain.CapabilityView, filter); err != nil {
		t.Fatalf("scope: %v", err)
	}
	if filter.ScopeAreaID != nil || filter.RequesterID != nil {
		t.Fatalf("global scope must not restrict: %+v", filter)
	}
}

func TestScopeAssigneeFilterSwitchesRestriction(t *testing.T) {
	a := New(zap.NewNop())
	areaUser := &domain.User{ID: 1, AreaID: ptr(3), Permissions: domain.PermissionSet{domain.CapabilityView: domain.ScopeArea}}

	filter := &repository.CaseFilter{AssignedUserID: ptr(8)}
	if err := a.Scope(areaUser, domain.CapabilityView, filter); err != nil {
		t.Fatalf("scope: %v", err)
	}
	if filter.ScopeAssigneeIn == nil || *filter.ScopeAssigneeIn != 3 {
		t.Fatalf("assignee-area scope not applied: %+v", filter)
	}
	if filter.ScopeAreaID != nil {
		t.Fatal("case-area scope must not also apply")
	}
}

func TestGrantOnlyWidens(t *testing.T) {
	perms := domain.PermissionSet{domain.CapabilityView: domain.ScopeArea}
	perms.Grant(domain.CapabilityView, domain.ScopeSelf)
	if scope, _ := perms.ScopeFor(domain.CapabilityView); scope != domain.ScopeArea {
		t.Fatalf("grant must not narrow: got %s", scope)
	}
	perms.Grant(domain.CapabilityView, domain.ScopeGlobal)
	if scope, _ := perms.ScopeFor(domain.CapabilityView); scope != domain.ScopeGlobal {
		t.Fatalf("grant must widen: got %s", scope)
	}
}

func TestAbilitiesForProjection(t *testing.T) {
	a := New(zap.NewNop())
	user := &domain.User{ID: 1, AreaID: ptr(3), Permissions: domain.PermissionSet{
		domain.CapabilityAssign:  domain.ScopeArea,
		domain.CapabilityComment: domain.ScopeGlobal,
	}}

	abilities := a.AbilitiesFor(user, testCase())
	if !abilities.Assign || !abilities.Comment {
		t.Fatalf("expected assign and comment: %+v", abilities)
	}
	if abilities.Escalate || abilities.ChangeStatus || abilities.ChangeArea {
		t.Fatalf("unexpected abilities: %+v", abilities)
	}
}
