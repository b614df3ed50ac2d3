package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-system-api/internal/models"
)

// NotificationRepository persists user notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create stores a notification.
func (r *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notifications (id, user_id, name, description, is_read, course_id, group_id, assignment_id, created_at)
        VALUES (:id, :user_id, :name, :description, :is_read, :course_id, :group_id, :assignment_id, :created_at)`
	if _, err := conn(ctx, r.db).NamedExecContext(ctx, query, notification); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// ClearReferences nulls every reference column on notifications that point at the entity.
// Notifications stay in place as de-referenced history.
func (r *NotificationRepository) ClearReferences(ctx context.Context, kind models.EntityKind, id string) (int64, error) {
	var column string
	switch kind {
	case models.EntityCourse:
		column = "course_id"
	case models.EntityGroup:
		column = "group_id"
	case models.EntityAssignment:
		column = "assignment_id"
	default:
		return 0, fmt.Errorf("clear notification references: unsupported kind %q", kind)
	}
	query := fmt.Sprintf(`UPDATE notifications SET course_id = NULL, group_id = NULL, assignment_id = NULL WHERE %s = $1`, column)
	res, err := conn(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("clear notification references: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear notification references rows affected: %w", err)
	}
	return n, nil
}

// ListByUser returns a user's notifications, newest first.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	query := `SELECT id, user_id, name, description, is_read, course_id, group_id, assignment_id, created_at
        FROM notifications WHERE user_id = $1`
	if unreadOnly {
		query += ` AND is_read = FALSE`
	}
	query += ` ORDER BY created_at DESC`
	var notifications []models.Notification
	if err := conn(ctx, r.db).SelectContext(ctx, &notifications, query, userID); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead flags a notification owned by userID as read and reports whether it matched.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) (bool, error) {
	res, err := conn(ctx, r.db).ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark notification read rows affected: %w", err)
	}
	return n > 0, nil
}
