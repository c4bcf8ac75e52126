package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresMessageRepository(pool *pgxpool.Pool) *PostgresMessageRepository {
	return &PostgresMessageRepository{pool: pool}
}

func (r *PostgresMessageRepository) CountUnread(ctx context.Context, userID int64) (int64, error) {
	query := `SELECT COUNT(*)
	          FROM messages m
	          JOIN dialog_participants dp ON dp.dialog_id = m.dialog_id AND dp.user_id = $1
	          WHERE m.author_id <> $1
	            AND NOT EXISTS (
	                SELECT 1 FROM message_reads mr WHERE mr.message_id = m.id AND mr.user_id = $1
	            )`

	var count int64
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}

// MarkDialogRead records a read receipt for every message in the dialog that
// the user has not authored and not read yet.
func (r *PostgresMessageRepository) MarkDialogRead(ctx context.Context, dialogID, userID int64) (int64, error) {
	query := `INSERT INTO message_reads (message_id, user_id)
	          SELECT m.id, $2
	          FROM messages m
	          JOIN dialog_participants dp ON dp.dialog_id = m.dialog_id AND dp.user_id = $2
	          WHERE m.dialog_id = $1 AND m.author_id <> $2
	          ON CONFLICT (message_id, user_id) DO NOTHING`

	result, err := r.pool.Exec(ctx, query, dialogID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark dialog read: %w", err)
	}
	return result.RowsAffected(), nil
}
