package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/case-service/internal/domain"
)

// HistoryRepository stores the append-only audit trail. No update or
// delete exists on purpose.
type HistoryRepository interface {
	Create(ctx context.Context, entry *domain.HistoryEntry) error
	ListByCase(ctx context.Context, caseID int64, includeInternal bool) ([]domain.HistoryEntry, error)
}

type historyRepository struct {
	db DB
}

// NewHistoryRepository builds repository.
func NewHistoryRepository(db DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Create(ctx context.Context, entry *domain.HistoryEntry) error {
	const query = `
        INSERT INTO case_history (case_id, actor_id, action, from_status_id, to_status_id,
                                  from_severity_id, to_severity_id, from_area_id, to_area_id,
                                  from_assignee_id, to_assignee_id, note, internal)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		entry.CaseID,
		entry.ActorID,
		entry.Action,
		entry.FromStatusID,
		entry.ToStatusID,
		entry.FromSeverityID,
		entry.ToSeverityID,
		entry.FromAreaID,
		entry.ToAreaID,
		entry.FromAssigneeID,
		entry.ToAssigneeID,
		entry.Note,
		entry.Internal,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *historyRepository) ListByCase(ctx context.Context, caseID int64, includeInternal bool) ([]domain.HistoryEntry, error) {
	query := `
        SELECT id, case_id, actor_id, action, from_status_id, to_status_id,
               from_severity_id, to_severity_id, from_area_id, to_area_id,
               from_assignee_id, to_assignee_id, note, internal, created_at
        FROM case_history WHERE case_id=$1`
	if !includeInternal {
		query += ` AND internal=FALSE`
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := r.db.Query(ctx, query, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHistory(rows)
}

func scanHistory(rows pgx.Rows) ([]domain.HistoryEntry, error) {
	var result []domain.HistoryEntry
	for rows.Next() {
		var entry domain.HistoryEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.CaseID,
			&entry.ActorID,
			&entry.Action,
			&entry.FromStatusID,
			&entry.ToStatusID,
			&entry.FromSeverityID,
			&entry.ToSeverityID,
			&entry.FromAreaID,
			&entry.ToAreaID,
			&entry.FromAssigneeID,
			&entry.ToAssigneeID,
			&entry.Note,
			&entry.Internal,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
