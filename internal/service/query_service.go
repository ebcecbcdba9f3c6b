package service

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/case-service/internal/authz"
	"github.com/spec-kit/case-service/internal/config"
	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/repository"
	apperrors "github.com/spec-kit/case-service/pkg/util"
)

// allowedPageSizes is the fixed pagination allow-list; anything else
// falls back to the smallest option.
var allowedPageSizes = []int{10, 25, 50, 100}

// ListParams captures the query surface of the list endpoints. Filters
// outside the allow-list never reach the repository.
type ListParams struct {
	AreaID         *int64
	SiteID         *int64
	TypeID         *int64
	SeverityID     *int64
	StatusID       *int64
	AssignedTo     string // "me" | "unassigned" | ""
	AssignedUserID *int64
	Search         string
	DateFrom       string
	DateTo         string
	Page           int
	PerPage        int

	// Mine restricts results to cases the actor requested, on top of
	// whatever scope applies.
	Mine bool
}

// CaseView is a case annotated with the actor's abilities, recomputed
// per response.
type CaseView struct {
	Case      domain.Case
	Abilities authz.Abilities
}

// CaseDetail adds history and attachments to a view.
type CaseDetail struct {
	CaseView
	History     []domain.HistoryEntry
	Attachments []domain.Attachment
}

// CaseList is one page of scoped results.
type CaseList struct {
	Items   []CaseView
	Total   int64
	Page    int
	PerPage int
}

// QueryService answers scoped reads: filtering, pagination, detail and
// CSV export. Mutation stays with the workflow engine.
type QueryService struct {
	cases       repository.CaseRepository
	history     repository.HistoryRepository
	attachments repository.AttachmentRepository
	authorizer  *authz.Authorizer
	cfg         config.WorkflowConfig
}

// QueryDependencies bundles collaborators.
type QueryDependencies struct {
	CaseRepo       repository.CaseRepository
	HistoryRepo    repository.HistoryRepository
	AttachmentRepo repository.AttachmentRepository
	Authorizer     *authz.Authorizer
	Config         config.WorkflowConfig
}

// NewQueryService constructs the service.
func NewQueryService(deps QueryDependencies) *QueryService {
	return &QueryService{
		cases:       deps.CaseRepo,
		history:     deps.HistoryRepo,
		attachments: deps.AttachmentRepo,
		authorizer:  deps.Authorizer,
		cfg:         deps.Config,
	}
}

// List returns one page of cases visible to the actor.
func (s *QueryService) List(ctx context.Context, actor *domain.User, kind domain.CaseKind, params ListParams) (*CaseList, error) {
	filter, err := s.buildFilter(actor, kind, params)
	if err != nil {
		return nil, err
	}

	page := params.Page
	if page <= 0 {
		page = 1
	}
	perPage := normalizePageSize(params.PerPage)
	filter.Limit = perPage
	filter.Offset = (page - 1) * perPage

	items, err := s.cases.ListWithFilter(ctx, *filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	total, err := s.cases.CountWithFilter(ctx, *filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	views := make([]CaseView, 0, len(items))
	for i := range items {
		views = append(views, CaseView{
			Case:      items[i],
			Abilities: s.authorizer.AbilitiesFor(actor, &items[i]),
		})
	}
	return &CaseList{Items: views, Total: total, Page: page, PerPage: perPage}, nil
}

// Get returns full detail with history and attachments. Self-scoped
// actors do not see internal history entries.
func (s *QueryService) Get(ctx context.Context, actor *domain.User, kind domain.CaseKind, caseID int64) (*CaseDetail, error) {
	c, err := s.cases.GetByID(ctx, kind, caseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound(string(kind), map[string]any{"id": caseID})
		}
		return nil, apperrors.MapError(err)
	}
	if err := s.authorizer.Authorize(actor, domain.CapabilityView, c); err != nil {
		return nil, err
	}

	includeInternal := !s.authorizer.SelfScoped(actor, domain.CapabilityView)
	history, err := s.history.ListByCase(ctx, c.ID, includeInternal)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	attachments, err := s.attachments.ListByCase(ctx, c.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	return &CaseDetail{
		CaseView: CaseView{
			Case:      *c,
			Abilities: s.authorizer.AbilitiesFor(actor, c),
		},
		History:     history,
		Attachments: attachments,
	}, nil
}

// Abilities recomputes the actor's abilities for a case.
func (s *QueryService) Abilities(actor *domain.User, c *domain.Case) authz.Abilities {
	return s.authorizer.AbilitiesFor(actor, c)
}

// Export streams the scoped result set as CSV in fixed-size chunks
// rather than materializing it.
func (s *QueryService) Export(ctx context.Context, actor *domain.User, kind domain.CaseKind, params ListParams, w io.Writer) error {
	filter, err := s.buildFilter(actor, kind, params)
	if err != nil {
		return err
	}

	chunk := s.cfg.ExportChunkSize
	if chunk <= 0 {
		chunk = 500
	}

	writer := csv.NewWriter(w)
	header := []string{"id", "kind", "subject", "status_id", "severity_id", "type_id",
		"area_origin_id", "area_current_id", "site_id", "requester_id",
		"assigned_user_id", "due_at", "created_at", "closed_at"}
	if err := writer.Write(header); err != nil {
		return err
	}

	filter.Limit = chunk
	for offset := 0; ; offset += chunk {
		filter.Offset = offset
		items, err := s.cases.ListWithFilter(ctx, *filter)
		if err != nil {
			return apperrors.MapError(err)
		}
		for i := range items {
			if err := writer.Write(exportRow(&items[i])); err != nil {
				return err
			}
		}
		if len(items) < chunk {
			break
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func (s *QueryService) buildFilter(actor *domain.User, kind domain.CaseKind, params ListParams) (*repository.CaseFilter, error) {
	filter := &repository.CaseFilter{Kind: kind}

	filter.AreaID = params.AreaID
	filter.TypeID = params.TypeID
	filter.SeverityID = params.SeverityID
	filter.StatusID = params.StatusID
	filter.Search = params.Search

	// site filtering is capability-gated; without the grant the filter
	// is silently ignored
	if params.SiteID != nil && s.authorizer.CanFilterBy(actor, domain.CapabilityFilterSite) {
		filter.SiteID = params.SiteID
	}

	switch params.AssignedTo {
	case "me":
		id := actor.ID
		filter.AssignedUserID = &id
	case "unassigned":
		filter.Unassigned = true
	default:
		filter.AssignedUserID = params.AssignedUserID
	}

	// malformed dates are ignored, not rejected
	if t, ok := parseDate(params.DateFrom); ok {
		filter.CreatedFrom = &t
	}
	if t, ok := parseDate(params.DateTo); ok {
		filter.CreatedTo = &t
	}

	if err := s.authorizer.Scope(actor, domain.CapabilityView, filter); err != nil {
		return nil, err
	}
	if params.Mine {
		id := actor.ID
		filter.RequesterID = &id
	}
	return filter, nil
}

func normalizePageSize(requested int) int {
	for _, size := range allowedPageSizes {
		if requested == size {
			return requested
		}
	}
	return allowedPageSizes[0]
}

func parseDate(val string) (time.Time, bool) {
	if val == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, val); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func exportRow(c *domain.Case) []string {
	row := []string{
		strconv.FormatInt(c.ID, 10),
		string(c.Kind),
		c.Subject,
		strconv.FormatInt(c.StatusID, 10),
		strconv.FormatInt(c.SeverityID, 10),
		strconv.FormatInt(c.TypeID, 10),
		strconv.FormatInt(c.AreaOriginID, 10),
		strconv.FormatInt(c.AreaCurrentID, 10),
		strconv.FormatInt(c.SiteID, 10),
		strconv.FormatInt(c.RequesterID, 10),
		"",
		c.DueAt.Format(time.RFC3339),
		c.CreatedAt.Format(time.RFC3339),
		"",
	}
	if c.AssignedUserID != nil {
		row[10] = strconv.FormatInt(*c.AssignedUserID, 10)
	}
	if c.ClosedAt != nil {
		row[13] = c.ClosedAt.Format(time.RFC3339)
	}
	return row
}
