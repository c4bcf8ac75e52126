package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/BASTARDsol/Mafia2Forum/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT id, username FROM users WHERE id = $1`

	var user models.User
	err := r.pool.QueryRow(ctx, query, id).Scan(&user.ID, &user.Username)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *PostgresUserRepository) GetByUsernames(ctx context.Context, usernames []string) ([]*models.User, error) {
	if len(usernames) == 0 {
		return nil, nil
	}

	query := `SELECT id, username FROM users WHERE username = ANY($1) ORDER BY username`

	rows, err := r.pool.Query(ctx, query, usernames)
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

type PostgresTopicRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresTopicRepository(pool *pgxpool.Pool) *PostgresTopicRepository {
	return &PostgresTopicRepository{pool: pool}
}

func (r *PostgresTopicRepository) GetByID(ctx context.Context, id int64) (*models.Topic, error) {
	query := `SELECT id, author_id, title FROM topics WHERE id = $1`

	var topic models.Topic
	err := r.pool.QueryRow(ctx, query, id).Scan(&topic.ID, &topic.AuthorID, &topic.Title)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get topic: %w", err)
	}
	return &topic, nil
}
