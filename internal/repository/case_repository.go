package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/case-service/internal/domain"
)

// CaseFilter captures list/search parameters. Scope fields are set by the
// authorization layer, never from request input.
type CaseFilter struct {
	Kind           domain.CaseKind
	AreaID         *int64
	SiteID         *int64
	TypeID         *int64
	SeverityID     *int64
	StatusID       *int64
	AssignedUserID *int64
	Unassigned     bool
	Search         string
	CreatedFrom    *time.Time
	CreatedTo      *time.Time

	// Scope restrictions applied by authz.
	ScopeAreaID     *int64
	ScopeAssigneeIn *int64
	RequesterID     *int64

	Limit  int
	Offset int
}

// CaseRepository encapsulates case persistence.
type CaseRepository interface {
	Create(ctx context.Context, c *domain.Case) error
	Update(ctx context.Context, c *domain.Case) error
	GetByID(ctx context.Context, kind domain.CaseKind, id int64) (*domain.Case, error)
	// GetByIDForUpdate locks the case row until the enclosing transaction
	// ends, making concurrent take/assign race-free.
	GetByIDForUpdate(ctx context.Context, kind domain.CaseKind, id int64) (*domain.Case, error)
	ListWithFilter(ctx context.Context, filter CaseFilter) ([]domain.Case, error)
	CountWithFilter(ctx context.Context, filter CaseFilter) (int64, error)
}

type caseRepository struct {
	db DB
}

// NewCaseRepository instantiates repository.
func NewCaseRepository(db DB) CaseRepository {
	return &caseRepository{db: db}
}

const caseColumns = `id, kind, type_id, severity_id, status_id, area_origin_id, area_current_id,
               site_id, sub_location_id, requester_id, assigned_user_id, assigned_at,
               due_at, subject, description, created_at, updated_at, closed_at`

func (r *caseRepository) Create(ctx context.Context, c *domain.Case) error {
	const query = `
        INSERT INTO cases (kind, type_id, severity_id, status_id, area_origin_id, area_current_id,
                           site_id, sub_location_id, requester_id, due_at, subject, description)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		c.Kind,
		c.TypeID,
		c.SeverityID,
		c.StatusID,
		c.AreaOriginID,
		c.AreaCurrentID,
		c.SiteID,
		c.SubLocationID,
		c.RequesterID,
		c.DueAt,
		c.Subject,
		c.Description,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *caseRepository) Update(ctx context.Context, c *domain.Case) error {
	const query = `
        UPDATE cases SET type_id=$1, severity_id=$2, status_id=$3, area_current_id=$4,
            site_id=$5, sub_location_id=$6, assigned_user_id=$7, assigned_at=$8,
            due_at=$9, subject=$10, description=$11, closed_at=$12, updated_at=NOW()
        WHERE id=$13`
	cmd, err := r.db.Exec(ctx, query,
		c.TypeID,
		c.SeverityID,
		c.StatusID,
		c.AreaCurrentID,
		c.SiteID,
		c.SubLocationID,
		c.AssignedUserID,
		c.AssignedAt,
		c.DueAt,
		c.Subject,
		c.Description,
		c.ClosedAt,
		c.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *caseRepository) GetByID(ctx context.Context, kind domain.CaseKind, id int64) (*domain.Case, error) {
	query := fmt.Sprintf(`SELECT %s FROM cases WHERE kind=$1 AND id=$2`, caseColumns)
	return r.fetchSingle(ctx, query, kind, id)
}

func (r *caseRepository) GetByIDForUpdate(ctx context.Context, kind domain.CaseKind, id int64) (*domain.Case, error) {
	query := fmt.Sprintf(`SELECT %s FROM cases WHERE kind=$1 AND id=$2 FOR UPDATE`, caseColumns)
	return r.fetchSingle(ctx, query, kind, id)
}

func (r *caseRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Case, error) {
	var c domain.Case
	if err := scanCase(r.db.QueryRow(ctx, query, args...), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *caseRepository) ListWithFilter(ctx context.Context, filter CaseFilter) ([]domain.Case, error) {
	where, args := buildCaseWhere(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM cases c WHERE %s ORDER BY c.created_at DESC LIMIT %d OFFSET %d`,
		prefixColumns(caseColumns), where, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCases(rows)
}

func (r *caseRepository) CountWithFilter(ctx context.Context, filter CaseFilter) (int64, error) {
	where, args := buildCaseWhere(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM cases c WHERE %s`, where)
	var total int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// buildCaseWhere assembles the WHERE clause shared by list and count.
func buildCaseWhere(filter CaseFilter) (string, []any) {
	clauses := []string{"c.kind=$1"}
	args := []any{filter.Kind}

	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if filter.ScopeAreaID != nil {
		add("c.area_current_id=$%d", *filter.ScopeAreaID)
	}
	if filter.ScopeAssigneeIn != nil {
		add(`c.assigned_user_id IN (SELECT id FROM users WHERE area_id=$%d)`, *filter.ScopeAssigneeIn)
	}
	if filter.RequesterID != nil {
		add("c.requester_id=$%d", *filter.RequesterID)
	}
	if filter.AreaID != nil {
		add("c.area_current_id=$%d", *filter.AreaID)
	}
	if filter.SiteID != nil {
		add("c.site_id=$%d", *filter.SiteID)
	}
	if filter.TypeID != nil {
		add("c.type_id=$%d", *filter.TypeID)
	}
	if filter.SeverityID != nil {
		add("c.severity_id=$%d", *filter.SeverityID)
	}
	if filter.StatusID != nil {
		add("c.status_id=$%d", *filter.StatusID)
	}
	if filter.AssignedUserID != nil {
		add("c.assigned_user_id=$%d", *filter.AssignedUserID)
	}
	if filter.Unassigned {
		clauses = append(clauses, "c.assigned_user_id IS NULL")
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		args = append(args, like)
		placeholder := fmt.Sprintf("$%d", len(args))
		if id, ok := numericTerm(term); ok {
			args = append(args, id)
			clauses = append(clauses, fmt.Sprintf(
				"(LOWER(c.subject) LIKE %s OR LOWER(c.description) LIKE %s OR c.id=$%d)",
				placeholder, placeholder, len(args)))
		} else {
			clauses = append(clauses, fmt.Sprintf(
				"(LOWER(c.subject) LIKE %s OR LOWER(c.description) LIKE %s)",
				placeholder, placeholder))
		}
	}
	if filter.CreatedFrom != nil {
		add("c.created_at >= $%d", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		add("c.created_at <= $%d", *filter.CreatedTo)
	}

	return strings.Join(clauses, " AND "), args
}

func numericTerm(term string) (int64, bool) {
	var id int64
	if _, err := fmt.Sscanf(term, "%d", &id); err != nil {
		return 0, false
	}
	return id, fmt.Sprintf("%d", id) == term
}

func prefixColumns(columns string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = "c." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}

func scanCase(row pgx.Row, c *domain.Case) error {
	return row.Scan(
		&c.ID,
		&c.Kind,
		&c.TypeID,
		&c.SeverityID,
		&c.StatusID,
		&c.AreaOriginID,
		&c.AreaCurrentID,
		&c.SiteID,
		&c.SubLocationID,
		&c.RequesterID,
		&c.AssignedUserID,
		&c.AssignedAt,
		&c.DueAt,
		&c.Subject,
		&c.Description,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.ClosedAt,
	)
}

func scanCases(rows pgx.Rows) ([]domain.Case, error) {
	var result []domain.Case
	for rows.Next() {
		var c domain.Case
		if err := scanCase(rows, &c); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}
