package repository

import (
	"context"

	"github.com/spec-kit/case-service/internal/domain"
)

// NotificationRepository persists inbox notifications.
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, userID, id int64) error
}

type notificationRepository struct {
	db DB
}

// NewNotificationRepository constructs repository.
func NewNotificationRepository(db DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	const query = `
        INSERT INTO notifications (user_id, message, case_kind, case_id, action)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		notification.UserID,
		notification.Message,
		notification.CaseKind,
		notification.CaseID,
		notification.Action,
	).Scan(&notification.ID, &notification.CreatedAt)
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 25
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, user_id, message, case_kind, case_id, action, read, created_at
        FROM notifications WHERE user_id=$1
        ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var notification domain.Notification
		if err := rows.Scan(
			&notification.ID,
			&notification.UserID,
			&notification.Message,
			&notification.CaseKind,
			&notification.CaseID,
			&notification.Action,
			&notification.Read,
			&notification.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, notification)
	}
	return result, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, userID, id int64) error {
	const query = `UPDATE notifications SET read=TRUE WHERE id=$1 AND user_id=$2`
	_, err := r.db.Exec(ctx, query, id, userID)
	return err
}
