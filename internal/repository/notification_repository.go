package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/focuskid/guardian-api/internal/models"
)

// NotificationRepository manages persistence for notification records.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs a new repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a new notification record.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notifications (id, recipient_id, kind, title, message, data, read, created_at)
VALUES (:id, :recipient_id, :kind, :title, :message, :data, :read, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// List returns notifications for a recipient, newest first.
func (r *NotificationRepository) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	base := "FROM notifications"
	where := "recipient_id = $1"
	args := []interface{}{filter.RecipientID}
	if filter.UnreadOnly {
		where += " AND read = FALSE"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size
	query := fmt.Sprintf(`SELECT id, recipient_id, kind, title, message, data, read, read_at, created_at
%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, base, where, size, offset)
	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}
	return notifications, total, nil
}

// MarkRead marks a recipient's notification as read. Returns false when no
// matching unread row exists.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, recipientID string, readAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE, read_at = $3 WHERE id = $1 AND recipient_id = $2 AND read = FALSE`,
		id, recipientID, readAt)
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark notification read rows affected: %w", err)
	}
	return affected > 0, nil
}
