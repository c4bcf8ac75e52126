package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresSubscriptionRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresSubscriptionRepository(pool *pgxpool.Pool) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{pool: pool}
}

func (r *PostgresSubscriptionRepository) Subscribe(ctx context.Context, userID, topicID int64) error {
	query := `INSERT INTO topic_subscriptions (user_id, topic_id)
	          VALUES ($1, $2)
	          ON CONFLICT (user_id, topic_id) DO NOTHING`

	if _, err := r.pool.Exec(ctx, query, userID, topicID); err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

func (r *PostgresSubscriptionRepository) Unsubscribe(ctx context.Context, userID, topicID int64) error {
	query := `DELETE FROM topic_subscriptions WHERE user_id = $1 AND topic_id = $2`

	result, err := r.pool.Exec(ctx, query, userID, topicID)
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresSubscriptionRepository) Exists(ctx context.Context, userID, topicID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM topic_subscriptions WHERE user_id = $1 AND topic_id = $2)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, userID, topicID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check subscription: %w", err)
	}
	return exists, nil
}

func (r *PostgresSubscriptionRepository) ListSubscriberIDs(ctx context.Context, topicID, excludeUserID int64) ([]int64, error) {
	query := `SELECT user_id FROM topic_subscriptions
	          WHERE topic_id = $1 AND user_id <> $2
	          ORDER BY user_id`

	rows, err := r.pool.Query(ctx, query, topicID, excludeUserID)
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
