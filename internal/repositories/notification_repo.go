package repositories

import (
	"context"
	"fmt"

	"github.com/BASTARDsol/Mafia2Forum/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresNotificationRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresNotificationRepository(pool *pgxpool.Pool) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{pool: pool}
}

func (r *PostgresNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query := `INSERT INTO notifications (recipient_id, actor_id, kind, topic_id, post_id, comment_id, message, is_read)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE)
	          RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		n.RecipientID,
		n.ActorID,
		string(n.Kind),
		n.TopicID,
		n.PostID,
		n.CommentID,
		n.Message,
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	n.IsRead = false
	return nil
}

func (r *PostgresNotificationRepository) ListByRecipient(ctx context.Context, recipientID int64, limit, offset int) ([]*models.Notification, error) {
	query := `SELECT id, recipient_id, actor_id, kind, topic_id, post_id, comment_id, message, is_read, created_at
	          FROM notifications
	          WHERE recipient_id = $1
	          ORDER BY created_at DESC, id DESC
	          LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, recipientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		var n models.Notification
		var kind string
		err := rows.Scan(
			&n.ID,
			&n.RecipientID,
			&n.ActorID,
			&kind,
			&n.TopicID,
			&n.PostID,
			&n.CommentID,
			&n.Message,
			&n.IsRead,
			&n.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Kind = models.NotificationKind(kind)
		notifications = append(notifications, &n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}
	return notifications, nil
}

func (r *PostgresNotificationRepository) CountUnread(ctx context.Context, recipientID int64) (int64, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND is_read = FALSE`

	var count int64
	if err := r.pool.QueryRow(ctx, query, recipientID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (r *PostgresNotificationRepository) MarkAllRead(ctx context.Context, recipientID int64) (int64, error) {
	query := `UPDATE notifications SET is_read = TRUE WHERE recipient_id = $1 AND is_read = FALSE`

	result, err := r.pool.Exec(ctx, query, recipientID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return result.RowsAffected(), nil
}
