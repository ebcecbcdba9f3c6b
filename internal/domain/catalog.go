package domain

// Status is a database-driven lifecycle state. Terminal handling keys off
// IsFinal at call time; operators add statuses without a deploy.
type Status struct {
	ID       int64
	Kind     CaseKind
	Code     string
	Name     string
	IsActive bool
	IsFinal  bool
}

// Severity ranks urgency for a case kind (priorities for tickets,
// severities for incidents share this shape).
type Severity struct {
	ID       int64
	Kind     CaseKind
	Code     string
	Name     string
	Level    int
	IsActive bool
}

// CaseType classifies a case within its kind.
type CaseType struct {
	ID       int64
	Kind     CaseKind
	Code     string
	Name     string
	IsActive bool
}

// Area is an organizational unit that can own or receive a case.
type Area struct {
	ID       int64
	Code     string
	Name     string
	IsActive bool
}

// Site is a physical location a case is reported from.
type Site struct {
	ID       int64
	Code     string
	Name     string
	IsActive bool
}

// SubLocation is an optional refinement within a site.
type SubLocation struct {
	ID       int64
	SiteID   int64
	Name     string
	IsActive bool
}
