package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BASTARDsol/Mafia2Forum/internal/models"
)

// The SQLite repositories mirror the Postgres ones for single-node deployments.
// Timestamps are stored as unix nanoseconds.

type SQLiteUserRepository struct {
	db *sql.DB
}

func NewSQLiteUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

func (r *SQLiteUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := r.db.QueryRowContext(ctx, `SELECT id, username FROM users WHERE id = ?`, id).
		Scan(&user.ID, &user.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *SQLiteUserRepository) GetByUsernames(ctx context.Context, usernames []string) ([]*models.User, error) {
	if len(usernames) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(usernames)), ",")
	args := make([]any, len(usernames))
	for i, name := range usernames {
		args[i] = name
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, username FROM users WHERE username IN (`+placeholders+`) ORDER BY username`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Username); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

type SQLiteTopicRepository struct {
	db *sql.DB
}

func NewSQLiteTopicRepository(db *sql.DB) *SQLiteTopicRepository {
	return &SQLiteTopicRepository{db: db}
}

func (r *SQLiteTopicRepository) GetByID(ctx context.Context, id int64) (*models.Topic, error) {
	var topic models.Topic
	err := r.db.QueryRowContext(ctx, `SELECT id, author_id, title FROM topics WHERE id = ?`, id).
		Scan(&topic.ID, &topic.AuthorID, &topic.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get topic: %w", err)
	}
	return &topic, nil
}

type SQLiteNotificationRepository struct {
	db *sql.DB
}

func NewSQLiteNotificationRepository(db *sql.DB) *SQLiteNotificationRepository {
	return &SQLiteNotificationRepository{db: db}
}

func (r *SQLiteNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	createdAt := time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (recipient_id, actor_id, kind, topic_id, post_id, comment_id, message, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		n.RecipientID,
		idArg(n.ActorID),
		string(n.Kind),
		idArg(n.TopicID),
		idArg(n.PostID),
		idArg(n.CommentID),
		n.Message,
		createdAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read notification id: %w", err)
	}
	n.ID = id
	n.IsRead = false
	n.CreatedAt = createdAt
	return nil
}

func (r *SQLiteNotificationRepository) ListByRecipient(ctx context.Context, recipientID int64, limit, offset int) ([]*models.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, recipient_id, actor_id, kind, topic_id, post_id, comment_id, message, is_read, created_at
		FROM notifications
		WHERE recipient_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`,
		recipientID, int64(limit), int64(offset),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		var (
			n                 models.Notification
			kind              string
			actorID, topicID  sql.NullInt64
			postID, commentID sql.NullInt64
			createdAt         int64
		)
		err := rows.Scan(&n.ID, &n.RecipientID, &actorID, &kind, &topicID, &postID, &commentID, &n.Message, &n.IsRead, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Kind = models.NotificationKind(kind)
		n.ActorID = nullableID(actorID)
		n.TopicID = nullableID(topicID)
		n.PostID = nullableID(postID)
		n.CommentID = nullableID(commentID)
		n.CreatedAt = time.Unix(0, createdAt).UTC()
		notifications = append(notifications, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}
	return notifications, nil
}

func (r *SQLiteNotificationRepository) CountUnread(ctx context.Context, recipientID int64) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = ? AND is_read = 0`, recipientID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (r *SQLiteNotificationRepository) MarkAllRead(ctx context.Context, recipientID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE recipient_id = ? AND is_read = 0`, recipientID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return res.RowsAffected()
}

type SQLiteSubscriptionRepository struct {
	db *sql.DB
}

func NewSQLiteSubscriptionRepository(db *sql.DB) *SQLiteSubscriptionRepository {
	return &SQLiteSubscriptionRepository{db: db}
}

func (r *SQLiteSubscriptionRepository) Subscribe(ctx context.Context, userID, topicID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO topic_subscriptions (user_id, topic_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id, topic_id) DO NOTHING`,
		userID, topicID, time.Now().UTC().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

func (r *SQLiteSubscriptionRepository) Unsubscribe(ctx context.Context, userID, topicID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM topic_subscriptions WHERE user_id = ? AND topic_id = ?`, userID, topicID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteSubscriptionRepository) Exists(ctx context.Context, userID, topicID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM topic_subscriptions WHERE user_id = ? AND topic_id = ?)`, userID, topicID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check subscription: %w", err)
	}
	return exists, nil
}

func (r *SQLiteSubscriptionRepository) ListSubscriberIDs(ctx context.Context, topicID, excludeUserID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id FROM topic_subscriptions
		WHERE topic_id = ? AND user_id <> ?
		ORDER BY user_id`,
		topicID, excludeUserID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	var userIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		userIDs = append(userIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscriptions: %w", err)
	}
	return userIDs, nil
}

type SQLiteMessageRepository struct {
	db *sql.DB
}

func NewSQLiteMessageRepository(db *sql.DB) *SQLiteMessageRepository {
	return &SQLiteMessageRepository{db: db}
}

func (r *SQLiteMessageRepository) CountUnread(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM messages m
		JOIN dialog_participants dp ON dp.dialog_id = m.dialog_id AND dp.user_id = ?1
		WHERE m.author_id <> ?1
		  AND NOT EXISTS (
		      SELECT 1 FROM message_reads mr WHERE mr.message_id = m.id AND mr.user_id = ?1
		  )`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}

func (r *SQLiteMessageRepository) MarkDialogRead(ctx context.Context, dialogID, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO message_reads (message_id, user_id, read_at)
		SELECT m.id, ?2, ?3
		FROM messages m
		JOIN dialog_participants dp ON dp.dialog_id = m.dialog_id AND dp.user_id = ?2
		WHERE m.dialog_id = ?1 AND m.author_id <> ?2
		ON CONFLICT (message_id, user_id) DO NOTHING`,
		dialogID, userID, time.Now().UTC().UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark dialog read: %w", err)
	}
	return res.RowsAffected()
}

// idArg passes optional ids as plain driver values.
func idArg(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func nullableID(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}
