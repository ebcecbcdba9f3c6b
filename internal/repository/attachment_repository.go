package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/case-service/internal/domain"
)

// AttachmentRepository persists attachment metadata.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *domain.Attachment) error
	GetByID(ctx context.Context, id int64) (*domain.Attachment, error)
	ListByCase(ctx context.Context, caseID int64) ([]domain.Attachment, error)
	Delete(ctx context.Context, id int64) error
}

type attachmentRepository struct {
	db DB
}

// NewAttachmentRepository constructs repository.
func NewAttachmentRepository(db DB) AttachmentRepository {
	return &attachmentRepository{db: db}
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *domain.Attachment) error {
	const query = `
        INSERT INTO attachments (case_id, uploader_id, file_name, path, disk, mime_type, size_bytes)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		attachment.CaseID,
		attachment.UploaderID,
		attachment.FileName,
		attachment.Path,
		attachment.Disk,
		attachment.MimeType,
		attachment.SizeBytes,
	).Scan(&attachment.ID, &attachment.CreatedAt)
}

func (r *attachmentRepository) GetByID(ctx context.Context, id int64) (*domain.Attachment, error) {
	const query = `
        SELECT id, case_id, uploader_id, file_name, path, disk, mime_type, size_bytes, created_at
        FROM attachments WHERE id=$1`
	var attachment domain.Attachment
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&attachment.ID,
		&attachment.CaseID,
		&attachment.UploaderID,
		&attachment.FileName,
		&attachment.Path,
		&attachment.Disk,
		&attachment.MimeType,
		&attachment.SizeBytes,
		&attachment.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &attachment, nil
}

func (r *attachmentRepository) ListByCase(ctx context.Context, caseID int64) ([]domain.Attachment, error) {
	const query = `
        SELECT id, case_id, uploader_id, file_name, path, disk, mime_type, size_bytes, created_at
        FROM attachments WHERE case_id=$1 ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Attachment
	for rows.Next() {
		var attachment domain.Attachment
		if err := rows.Scan(
			&attachment.ID,
			&attachment.CaseID,
			&attachment.UploaderID,
			&attachment.FileName,
			&attachment.Path,
			&attachment.Disk,
			&attachment.MimeType,
			&attachment.SizeBytes,
			&attachment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, attachment)
	}
	return result, rows.Err()
}

func (r *attachmentRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM attachments WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
