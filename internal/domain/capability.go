package domain

// Capability names a case-related permission an actor may hold.
type Capability string

const (
	CapabilityView         Capability = "view"
	CapabilityCreate       Capability = "create"
	CapabilityUpdate       Capability = "update"
	CapabilityAssign       Capability = "assign"
	CapabilityEscalate     Capability = "escalate"
	CapabilityChangeStatus Capability = "change_status"
	CapabilityChangeArea   Capability = "change_area"
	CapabilityComment      Capability = "comment"
	CapabilityFilterSite   Capability = "filter_site"
)

// PermissionScope bounds where a capability applies.
type PermissionScope string

const (
	// ScopeGlobal grants the capability over every case.
	ScopeGlobal PermissionScope = "global"
	// ScopeArea restricts the capability to cases owned by the actor's area.
	ScopeArea PermissionScope = "area"
	// ScopeSelf restricts the capability to cases the actor requested.
	ScopeSelf PermissionScope = "self"
)

// PermissionSet maps capabilities to the widest scope granted for each.
type PermissionSet map[Capability]PermissionScope

// ScopeFor returns the granted scope for a capability, if any.
func (p PermissionSet) ScopeFor(capability Capability) (PermissionScope, bool) {
	scope, ok := p[capability]
	return scope, ok
}

// Has reports whether the capability is granted at any scope.
func (p PermissionSet) Has(capability Capability) bool {
	_, ok := p[capability]
	return ok
}

// HasAny reports whether the set grants at least one case capability.
// Users stripped of every grant are skipped by notification fan-out.
func (p PermissionSet) HasAny() bool {
	return len(p) > 0
}

// scopeRank orders scopes from narrowest to widest.
var scopeRank = map[PermissionScope]int{
	ScopeSelf:   1,
	ScopeArea:   2,
	ScopeGlobal: 3,
}

// Grant widens the stored scope for a capability, never narrowing it.
func (p PermissionSet) Grant(capability Capability, scope PermissionScope) {
	if current, ok := p[capability]; ok && scopeRank[current] >= scopeRank[scope] {
		return
	}
	p[capability] = scope
}
