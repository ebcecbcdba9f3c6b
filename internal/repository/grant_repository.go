package repository

import (
	"context"

	"github.com/spec-kit/case-service/internal/domain"
)

// GrantRepository persists area-access grants. Inserts are idempotent:
// each (case, area) pair is recorded once.
type GrantRepository interface {
	Create(ctx context.Context, grant *domain.AreaAccessGrant) error
	ListByCase(ctx context.Context, caseID int64) ([]domain.AreaAccessGrant, error)
}

type grantRepository struct {
	db DB
}

// NewGrantRepository constructs repository.
func NewGrantRepository(db DB) GrantRepository {
	return &grantRepository{db: db}
}

func (r *grantRepository) Create(ctx context.Context, grant *domain.AreaAccessGrant) error {
	const query = `
        INSERT INTO area_access_grants (case_id, area_id, reason)
        VALUES ($1,$2,$3)
        ON CONFLICT (case_id, area_id) DO NOTHING`
	_, err := r.db.Exec(ctx, query, grant.CaseID, grant.AreaID, grant.Reason)
	return err
}

func (r *grantRepository) ListByCase(ctx context.Context, caseID int64) ([]domain.AreaAccessGrant, error) {
	const query = `
        SELECT id, case_id, area_id, reason, created_at
        FROM area_access_grants WHERE case_id=$1 ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AreaAccessGrant
	for rows.Next() {
		var grant domain.AreaAccessGrant
		if err := rows.Scan(
			&grant.ID,
			&grant.CaseID,
			&grant.AreaID,
			&grant.Reason,
			&grant.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, grant)
	}
	return result, rows.Err()
}
