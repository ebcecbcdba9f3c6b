package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/authz"
	"github.com/spec-kit/case-service/internal/config"
	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/repository"
	"github.com/spec-kit/case-service/internal/storage"
	apperrors "github.com/spec-kit/case-service/pkg/util"
)

const maxAttachmentBytes = 20 << 20

// AttachmentService stores case attachments: bytes in the configured
// store, metadata in the database.
type AttachmentService struct {
	cases       repository.CaseRepository
	attachments repository.AttachmentRepository
	store       storage.Store
	authorizer  *authz.Authorizer
	cfg         config.StorageConfig
	logger      *zap.Logger
}

// NewAttachmentService builds the service.
func NewAttachmentService(
	cases repository.CaseRepository,
	attachments repository.AttachmentRepository,
	store storage.Store,
	authorizer *authz.Authorizer,
	cfg config.StorageConfig,
	logger *zap.Logger,
) *AttachmentService {
	return &AttachmentService{
		cases:       cases,
		attachments: attachments,
		store:       store,
		authorizer:  authorizer,
		cfg:         cfg,
		logger:      logger,
	}
}

// Upload stores the file under an opaque key and records its metadata.
// Commenting on a case implies permission to attach to it.
func (s *AttachmentService) Upload(ctx context.Context, actor *domain.User, kind domain.CaseKind, caseID int64, fileName, mimeType string, size int64, r io.Reader) (*domain.Attachment, error) {
	c, err := s.loadCase(ctx, kind, caseID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizer.Authorize(actor, domain.CapabilityComment, c); err != nil {
		return nil, err
	}

	fileName = filepath.Base(strings.TrimSpace(fileName))
	if fileName == "" || fileName == "." {
		return nil, apperrors.NewValidationError("file name is required", nil)
	}
	if size > maxAttachmentBytes {
		return nil, apperrors.NewValidationError("file exceeds the size limit", map[string]any{
			"max_bytes": maxAttachmentBytes,
		})
	}

	key := fmt.Sprintf("%s/%d/%s%s", c.Kind, c.ID, uuid.NewString(), filepath.Ext(fileName))
	written, err := s.store.Save(ctx, key, io.LimitReader(r, maxAttachmentBytes+1))
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if written > maxAttachmentBytes {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.logger.Warn("oversized attachment cleanup failed", zap.String("path", key), zap.Error(delErr))
		}
		return nil, apperrors.NewValidationError("file exceeds the size limit", map[string]any{
			"max_bytes": maxAttachmentBytes,
		})
	}

	attachment := &domain.Attachment{
		CaseID:     c.ID,
		UploaderID: actor.ID,
		FileName:   fileName,
		Path:       key,
		Disk:       s.cfg.Disk,
		MimeType:   mimeType,
		SizeBytes:  written,
	}
	if err := s.attachments.Create(ctx, attachment); err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.logger.Warn("orphan attachment cleanup failed", zap.String("path", key), zap.Error(delErr))
		}
		return nil, apperrors.MapError(err)
	}
	return attachment, nil
}

// Download opens the attachment stream for an actor allowed to view
// the case.
func (s *AttachmentService) Download(ctx context.Context, actor *domain.User, kind domain.CaseKind, caseID, attachmentID int64) (*domain.Attachment, io.ReadCloser, error) {
	attachment, c, err := s.loadBoth(ctx, kind, caseID, attachmentID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.authorizer.Authorize(actor, domain.CapabilityView, c); err != nil {
		return nil, nil, err
	}
	reader, err := s.store.Open(ctx, attachment.Path)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}
	return attachment, reader, nil
}

// Delete removes both metadata and bytes. Only the uploader or a
// globally scoped updater may delete.
func (s *AttachmentService) Delete(ctx context.Context, actor *domain.User, kind domain.CaseKind, caseID, attachmentID int64) error {
	attachment, c, err := s.loadBoth(ctx, kind, caseID, attachmentID)
	if err != nil {
		return err
	}
	if attachment.UploaderID != actor.ID && !s.authorizer.GlobalScoped(actor, domain.CapabilityUpdate) {
		return apperrors.NewForbidden("only the uploader may remove an attachment")
	}
	if err := s.authorizer.Authorize(actor, domain.CapabilityView, c); err != nil {
		return err
	}
	if err := s.attachments.Delete(ctx, attachment.ID); err != nil {
		return apperrors.MapError(err)
	}
	if err := s.store.Delete(ctx, attachment.Path); err != nil {
		s.logger.Warn("attachment blob delete failed", zap.String("path", attachment.Path), zap.Error(err))
	}
	return nil
}

func (s *AttachmentService) loadCase(ctx context.Context, kind domain.CaseKind, caseID int64) (*domain.Case, error) {
	c, err := s.cases.GetByID(ctx, kind, caseID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound(string(kind), map[string]any{"id": caseID})
		}
		return nil, apperrors.MapError(err)
	}
	return c, nil
}

func (s *AttachmentService) loadBoth(ctx context.Context, kind domain.CaseKind, caseID, attachmentID int64) (*domain.Attachment, *domain.Case, error) {
	c, err := s.loadCase(ctx, kind, caseID)
	if err != nil {
		return nil, nil, err
	}
	attachment, err := s.attachments.GetByID(ctx, attachmentID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil, apperrors.NewNotFound("attachment", map[string]any{"id": attachmentID})
		}
		return nil, nil, apperrors.MapError(err)
	}
	if attachment.CaseID != c.ID {
		return nil, nil, apperrors.NewNotFound("attachment", map[string]any{"id": attachmentID})
	}
	return attachment, c, nil
}
