package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/case-service/internal/domain"
)

// UserRepository defines persistence access for actors. Every load
// hydrates the permission set so authorization never re-queries.
type UserRepository interface {
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// ListByAreaWithCapability returns active users of an area holding
	// the capability at any scope. Used for escalation fan-out.
	ListByAreaWithCapability(ctx context.Context, areaID int64, capability domain.Capability) ([]domain.User, error)
}

type userRepository struct {
	db DB
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(db DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, name, email, password_hash, area_id, status, created_at, updated_at`

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET name=$1, email=$2, password_hash=$3, area_id=$4, status=$5, updated_at=NOW()
        WHERE id=$6`
	cmd, err := r.db.Exec(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.AreaID,
		user.Status,
		user.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	user, err := r.fetchSingle(ctx, query, id)
	if err != nil {
		return nil, err
	}
	if err := r.loadPermissions(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	user, err := r.fetchSingle(ctx, query, email)
	if err != nil {
		return nil, err
	}
	if err := r.loadPermissions(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) ListByAreaWithCapability(ctx context.Context, areaID int64, capability domain.Capability) ([]domain.User, error) {
	query := `
        SELECT ` + userColumns + `
        FROM users
        WHERE area_id=$1 AND status=$2
          AND EXISTS (SELECT 1 FROM user_permissions p WHERE p.user_id=users.id AND p.capability=$3)
        ORDER BY id ASC`
	rows, err := r.db.Query(ctx, query, areaID, domain.UserStatusActive, capability)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		var user domain.User
		if err := scanUser(rows, &user); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range result {
		if err := r.loadPermissions(ctx, &result[i]); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := scanUser(r.db.QueryRow(ctx, query, arg), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) loadPermissions(ctx context.Context, user *domain.User) error {
	const query = `SELECT capability, scope FROM user_permissions WHERE user_id=$1`
	rows, err := r.db.Query(ctx, query, user.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	permissions := domain.PermissionSet{}
	for rows.Next() {
		var capability domain.Capability
		var scope domain.PermissionScope
		if err := rows.Scan(&capability, &scope); err != nil {
			return err
		}
		permissions.Grant(capability, scope)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	user.Permissions = permissions
	return nil
}

func scanUser(row pgx.Row, user *domain.User) error {
	return row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.AreaID,
		&user.Status,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
}
