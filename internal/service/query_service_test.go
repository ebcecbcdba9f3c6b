package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/authz"
	"github.com/spec-kit/case-service/internal/config"
	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/repository"
)

// capturingCaseRepo records the filter each query method receives.
type capturingCaseRepo struct {
	fakeCaseRepo
	lastFilter repository.CaseFilter
	pages      [][]domain.Case
	pageIdx    int
}

func (r *capturingCaseRepo) ListWithFilter(ctx context.Context, filter repository.CaseFilter) ([]domain.Case, error) {
	r.lastFilter = filter
	if r.pages != nil {
		if r.pageIdx >= len(r.pages) {
			return nil, nil
		}
		page := r.pages[r.pageIdx]
		r.pageIdx++
		return page, nil
	}
	return r.fakeCaseRepo.ListWithFilter(ctx, filter)
}

func (r *capturingCaseRepo) CountWithFilter(ctx context.Context, filter repository.CaseFilter) (int64, error) {
	return r.fakeCaseRepo.CountWithFilter(ctx, filter)
}

type fakeAttachmentRepo struct {
	attachments map[int64]*domain.Attachment
	nextID      int64
}

func (r *fakeAttachmentRepo) Create(_ context.Context, attachment *domain.Attachment) error {
	if r.attachments == nil {
		r.attachments = make(map[int64]*domain.Attachment)
	}
	r.nextID++
	attachment.ID = r.nextID
	attachment.CreatedAt = time.Now()
	cp := *attachment
	r.attachments[attachment.ID] = &cp
	return nil
}

func (r *fakeAttachmentRepo) GetByID(_ context.Context, id int64) (*domain.Attachment, error) {
	a, ok := r.attachments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAttachmentRepo) ListByCase(_ context.Context, caseID int64) ([]domain.Attachment, error) {
	out := make([]domain.Attachment, 0)
	for _, a := range r.attachments {
		if a.CaseID == caseID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeAttachmentRepo) Delete(_ context.Context, id int64) error {
	delete(r.attachments, id)
	return nil
}

type queryFixture struct {
	service *QueryService
	cases   *capturingCaseRepo
	history *fakeHistoryRepo
}

func newQueryFixture() *queryFixture {
	cases := &capturingCaseRepo{fakeCaseRepo: *newFakeCaseRepo()}
	history := &fakeHistoryRepo{}
	svc := NewQueryService(QueryDependencies{
		CaseRepo:       cases,
		HistoryRepo:    history,
		AttachmentRepo: &fakeAttachmentRepo{},
		Authorizer:     authz.New(zap.NewNop()),
		Config: config.WorkflowConfig{
			OpenStatusCode:  "open",
			ExportChunkSize: 2,
		},
	})
	return &queryFixture{service: svc, cases: cases, history: history}
}

func queryActor(perms domain.PermissionSet, areaID *int64) *domain.User {
	return &domain.User{ID: 1, AreaID: areaID, Status: domain.UserStatusActive, Permissions: perms}
}

func TestListPageSizeAllowList(t *testing.T) {
	f := newQueryFixture()
	actor := queryActor(domain.PermissionSet{domain.CapabilityView: domain.ScopeGlobal}, nil)

	for _, tc := range []struct {
		requested int
		want      int
	}{
		{0, 10}, {7, 10}, {10, 10}, {25, 25}, {50, 50}, {100, 100}, {1000, 10}, {-5, 10},
	} {
		result, err := f.service.List(context.Background(), actor, domain.CaseKindTicket, ListParams{PerPage: tc.requested})
		if err != nil {
			t.Fatalf("list(per_page=%d): %v", tc.requested, err)
		}
		if result.PerPage != tc.want {
			t.Fatalf("per_page %d normalized to %d, want %d", tc.requested, result.PerPage, tc.want)
		}
	}
}

func TestListSiteFilterRequiresCapability(t *testing.T) {
	f := newQueryFixture()
	site := int64(40)

	plain := queryActor(domain.PermissionSet{domain.CapabilityView: domain.ScopeGlobal}, nil)
	if _, err := f.service.List(context.Background(), plain, domain.CaseKindTicket, ListParams{SiteID: &site}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if f.cases.lastFilter.SiteID != nil {
		t.Fatal("site filter must be dropped without the grant")
	}

	privileged := queryActor(domain.PermissionSet{
		domain.CapabilityView:       domain.ScopeGlobal,
		domain.CapabilityFilterSite: domain.ScopeGlobal,
	}, nil)
	if _, err := f.service.List(context.Background(), privileged, domain.CaseKindTicket, ListParams{SiteID: &site}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if f.cases.lastFilter.SiteID == nil || *f.cases.lastFilter.SiteID != site {
		t.Fatal("site filter must apply with the grant")
	}
}

func TestListMalformedDatesIgnored(t *testing.T) {
	f := newQueryFixture()
	actor := queryActor(domain.PermissionSet{domain.CapabilityView: domain.ScopeGlobal}, nil)

	_, err := f.service.List(context.Background(), actor, domain.CaseKindTicket, ListParams{
		DateFrom: "not-a-date",
		DateTo:   "2026-03-01",
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if f.cases.lastFilter.CreatedFrom != nil {
		t.Fatal("malformed date_from must be ignored")
	}
	if f.cases.lastFilter.CreatedTo == nil {
		t.Fatal("valid date_to must apply")
	}
}

func TestListAssignedToMe(t *testing.T) {
	f := newQueryFixture()
	actor := queryActor(domain.PermissionSet{domain.CapabilityView: domain.ScopeGlobal}, nil)

	if _, err := f.service.List(context.Background(), actor, domain.CaseKindTicket, ListParams{AssignedTo: "me"}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if f.cases.lastFilter.AssignedUserID == nil || *f.cases.lastFilter.AssignedUserID != actor.ID {
		t.Fatalf("assigned_to=me must bind the actor: %+v", f.cases.lastFilter)
	}

	if _, err := f.service.List(context.Background(), actor, domain.CaseKindTicket, ListParams{AssignedTo: "unassigned"}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !f.cases.lastFilter.Unassigned {
		t.Fatal("assigned_to=unassigned must set the flag")
	}
}

func TestListWithoutViewForbidden(t *testing.T) {
	f := newQueryFixture()
	actor := queryActor(domain.PermissionSet{}, nil)

	_, err := f.service.List(context.Background(), actor, domain.CaseKindTicket, ListParams{})
	assertHTTPStatus(t, err, 403)
}

func TestGetHidesInternalHistoryFromSelfScope(t *testing.T) {
	f := newQueryFixture()
	c := &domain.Case{Kind: domain.CaseKindTicket, RequesterID: 1, AreaCurrentID: 3}
	if err := f.cases.fakeCaseRepo.Create(context.Background(), c); err != nil {
		t.Fatalf("seed: %v", err)
	}
	note := "internal note"
	_ = f.history.Create(context.Background(), &domain.HistoryEntry{CaseID: c.ID, ActorID: 2, Action: domain.HistoryActionComment, Note: &note, Internal: true})
	public := "public note"
	_ = f.history.Create(context.Background(), &domain.HistoryEntry{CaseID: c.ID, ActorID: 2, Action: domain.HistoryActionComment, Note: &public})

	requester := queryActor(domain.PermissionSet{domain.CapabilityView: domain.ScopeSelf}, nil)
	detail, err := f.service.Get(context.Background(), requester, domain.CaseKindTicket, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(detail.History) != 1 || detail.History[0].Internal {
		t.Fatalf("self-scoped viewer must not see internal entries: %+v", detail.History)
	}

	operator := queryActor(domain.PermissionSet{domain.CapabilityView: domain.ScopeGlobal}, nil)
	detail, err = f.service.Get(context.Background(), operator, domain.CaseKindTicket, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(detail.History) != 2 {
		t.Fatalf("operator must see all entries, got %d", len(detail.History))
	}
}

func TestExportStreamsInChunks(t *testing.T) {
	f := newQueryFixture()
	now := time.Now()
	mk := func(id int64) domain.Case {
		return domain.Case{ID: id, Kind: domain.CaseKindTicket, Subject: "s", DueAt: now, CreatedAt: now}
	}
	f.cases.pages = [][]domain.Case{
		{mk(1), mk(2)},
		{mk(3)},
	}
	actor := queryActor(domain.PermissionSet{domain.CapabilityView: domain.ScopeGlobal}, nil)

	var buf bytes.Buffer
	if err := f.service.Export(context.Background(), actor, domain.CaseKindTicket, ListParams{}, &buf); err != nil {
		t.Fatalf("export: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "id,kind,subject") {
		t.Fatalf("header mismatch: %q", lines[0])
	}
	if f.cases.pageIdx != 2 {
		t.Fatalf("expected 2 chunked queries, got %d", f.cases.pageIdx)
	}
}
