package service

import (
	"context"
	"io"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/authz"
	"github.com/spec-kit/case-service/internal/config"
	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/storage"
)

type attachmentFixture struct {
	service *AttachmentService
	cases   *fakeCaseRepo
	repo    *fakeAttachmentRepo
}

func newAttachmentFixture(t *testing.T) *attachmentFixture {
	t.Helper()
	cases := newFakeCaseRepo()
	repo := &fakeAttachmentRepo{}
	svc := NewAttachmentService(
		cases,
		repo,
		storage.NewLocalStore(t.TempDir()),
		authz.New(zap.NewNop()),
		config.StorageConfig{Disk: "local", Root: "unused"},
		zap.NewNop(),
	)
	return &attachmentFixture{service: svc, cases: cases, repo: repo}
}

func seedCase(t *testing.T, f *attachmentFixture, requesterID int64) *domain.Case {
	t.Helper()
	c := &domain.Case{Kind: domain.CaseKindTicket, AreaCurrentID: 3, RequesterID: requesterID}
	if err := f.cases.Create(context.Background(), c); err != nil {
		t.Fatalf("seed case: %v", err)
	}
	return c
}

func TestUploadAndDownload(t *testing.T) {
	f := newAttachmentFixture(t)
	actor := &domain.User{ID: 1, Permissions: domain.PermissionSet{
		domain.CapabilityView:    domain.ScopeGlobal,
		domain.CapabilityComment: domain.ScopeGlobal,
	}}
	c := seedCase(t, f, actor.ID)

	uploaded, err := f.service.Upload(context.Background(), actor, domain.CaseKindTicket, c.ID,
		"report.txt", "text/plain", 11, strings.NewReader("findings..."))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if uploaded.FileName != "report.txt" || uploaded.SizeBytes != 11 {
		t.Fatalf("metadata mismatch: %+v", uploaded)
	}

	meta, reader, err := f.service.Download(context.Background(), actor, domain.CaseKindTicket, c.ID, uploaded.ID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer reader.Close()
	content, _ := io.ReadAll(reader)
	if string(content) != "findings..." {
		t.Fatalf("content mismatch: %q", content)
	}
	if meta.ID != uploaded.ID {
		t.Fatalf("metadata id mismatch: %d", meta.ID)
	}
}

func TestUploadRequiresCommentCapability(t *testing.T) {
	f := newAttachmentFixture(t)
	viewer := &domain.User{ID: 1, Permissions: domain.PermissionSet{domain.CapabilityView: domain.ScopeGlobal}}
	c := seedCase(t, f, 2)

	_, err := f.service.Upload(context.Background(), viewer, domain.CaseKindTicket, c.ID,
		"x.txt", "text/plain", 1, strings.NewReader("x"))
	assertHTTPStatus(t, err, 403)
}

func TestUploadSanitizesFileName(t *testing.T) {
	f := newAttachmentFixture(t)
	actor := &domain.User{ID: 1, Permissions: domain.PermissionSet{
		domain.CapabilityView:    domain.ScopeGlobal,
		domain.CapabilityComment: domain.ScopeGlobal,
	}}
	c := seedCase(t, f, actor.ID)

	uploaded, err := f.service.Upload(context.Background(), actor, domain.CaseKindTicket, c.ID,
		"../../etc/passwd", "text/plain", 1, strings.NewReader("x"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if uploaded.FileName != "passwd" {
		t.Fatalf("file name not sanitized: %q", uploaded.FileName)
	}
}

func TestDownloadAttachmentFromOtherCaseNotFound(t *testing.T) {
	f := newAttachmentFixture(t)
	actor := &domain.User{ID: 1, Permissions: domain.PermissionSet{
		domain.CapabilityView:    domain.ScopeGlobal,
		domain.CapabilityComment: domain.ScopeGlobal,
	}}
	first := seedCase(t, f, actor.ID)
	second := seedCase(t, f, actor.ID)

	uploaded, err := f.service.Upload(context.Background(), actor, domain.CaseKindTicket, first.ID,
		"a.txt", "text/plain", 1, strings.NewReader("a"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	_, _, err = f.service.Download(context.Background(), actor, domain.CaseKindTicket, second.ID, uploaded.ID)
	assertHTTPStatus(t, err, 404)
}

func TestDeleteRestrictedToUploader(t *testing.T) {
	f := newAttachmentFixture(t)
	uploader := &domain.User{ID: 1, Permissions: domain.PermissionSet{
		domain.CapabilityView:    domain.ScopeGlobal,
		domain.CapabilityComment: domain.ScopeGlobal,
	}}
	other := &domain.User{ID: 2, Permissions: domain.PermissionSet{
		domain.CapabilityView:    domain.ScopeGlobal,
		domain.CapabilityComment: domain.ScopeGlobal,
	}}
	c := seedCase(t, f, uploader.ID)

	uploaded, err := f.service.Upload(context.Background(), uploader, domain.CaseKindTicket, c.ID,
		"a.txt", "text/plain", 1, strings.NewReader("a"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	err = f.service.Delete(context.Background(), other, domain.CaseKindTicket, c.ID, uploaded.ID)
	assertHTTPStatus(t, err, 403)

	if err := f.service.Delete(context.Background(), uploader, domain.CaseKindTicket, c.ID, uploaded.ID); err != nil {
		t.Fatalf("uploader delete: %v", err)
	}
}
