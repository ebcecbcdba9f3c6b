package repository

import (
	"context"

	"github.com/spec-kit/case-service/internal/domain"
)

// CatalogRepository is the read-only lookup over the configurable
// reference tables. The workflow engine resolves terminal-state logic
// through it at call time instead of compiled enums.
type CatalogRepository interface {
	GetStatus(ctx context.Context, id int64) (*domain.Status, error)
	GetStatusByCode(ctx context.Context, kind domain.CaseKind, code string) (*domain.Status, error)
	GetSeverity(ctx context.Context, id int64) (*domain.Severity, error)
	GetCaseType(ctx context.Context, id int64) (*domain.CaseType, error)
	GetArea(ctx context.Context, id int64) (*domain.Area, error)
	GetSite(ctx context.Context, id int64) (*domain.Site, error)
	GetSubLocation(ctx context.Context, id int64) (*domain.SubLocation, error)
}

type catalogRepository struct {
	db DB
}

// NewCatalogRepository constructs the Postgres-backed lookup.
func NewCatalogRepository(db DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) GetStatus(ctx context.Context, id int64) (*domain.Status, error) {
	const query = `
        SELECT id, kind, code, name, is_active, is_final
        FROM statuses WHERE id=$1`
	var status domain.Status
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&status.ID,
		&status.Kind,
		&status.Code,
		&status.Name,
		&status.IsActive,
		&status.IsFinal,
	); err != nil {
		return nil, err
	}
	return &status, nil
}

func (r *catalogRepository) GetStatusByCode(ctx context.Context, kind domain.CaseKind, code string) (*domain.Status, error) {
	const query = `
        SELECT id, kind, code, name, is_active, is_final
        FROM statuses WHERE kind=$1 AND code=$2`
	var status domain.Status
	if err := r.db.QueryRow(ctx, query, kind, code).Scan(
		&status.ID,
		&status.Kind,
		&status.Code,
		&status.Name,
		&status.IsActive,
		&status.IsFinal,
	); err != nil {
		return nil, err
	}
	return &status, nil
}

func (r *catalogRepository) GetSeverity(ctx context.Context, id int64) (*domain.Severity, error) {
	const query = `
        SELECT id, kind, code, name, level, is_active
        FROM severities WHERE id=$1`
	var severity domain.Severity
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&severity.ID,
		&severity.Kind,
		&severity.Code,
		&severity.Name,
		&severity.Level,
		&severity.IsActive,
	); err != nil {
		return nil, err
	}
	return &severity, nil
}

func (r *catalogRepository) GetCaseType(ctx context.Context, id int64) (*domain.CaseType, error) {
	const query = `
        SELECT id, kind, code, name, is_active
        FROM case_types WHERE id=$1`
	var caseType domain.CaseType
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&caseType.ID,
		&caseType.Kind,
		&caseType.Code,
		&caseType.Name,
		&caseType.IsActive,
	); err != nil {
		return nil, err
	}
	return &caseType, nil
}

func (r *catalogRepository) GetArea(ctx context.Context, id int64) (*domain.Area, error) {
	const query = `
        SELECT id, code, name, is_active
        FROM areas WHERE id=$1`
	var area domain.Area
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&area.ID,
		&area.Code,
		&area.Name,
		&area.IsActive,
	); err != nil {
		return nil, err
	}
	return &area, nil
}

func (r *catalogRepository) GetSite(ctx context.Context, id int64) (*domain.Site, error) {
	const query = `
        SELECT id, code, name, is_active
        FROM sites WHERE id=$1`
	var site domain.Site
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&site.ID,
		&site.Code,
		&site.Name,
		&site.IsActive,
	); err != nil {
		return nil, err
	}
	return &site, nil
}

func (r *catalogRepository) GetSubLocation(ctx context.Context, id int64) (*domain.SubLocation, error) {
	const query = `
        SELECT id, site_id, name, is_active
        FROM sub_locations WHERE id=$1`
	var sub domain.SubLocation
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&sub.ID,
		&sub.SiteID,
		&sub.Name,
		&sub.IsActive,
	); err != nil {
		return nil, err
	}
	return &sub, nil
}
