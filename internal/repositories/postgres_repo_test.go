package repositories

import (
	"context"
	"os"
	"testing"

	"github.com/BASTARDsol/Mafia2Forum/internal/database"
	"github.com/BASTARDsol/Mafia2Forum/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// getTestPool connects to TEST_DATABASE_URL and applies the schema. Tests are
// skipped when it is unset.
func getTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, url)
	require.NoError(t, err, "Failed to connect to test database")
	t.Cleanup(pool.Close)

	require.NoError(t, database.MigratePostgres(ctx, pool))
	return pool
}

// setupTestUsersAndTopic creates uniquely named users and a topic for foreign key constraints
func setupTestUsersAndTopic(t *testing.T, ctx context.Context, pool *pgxpool.Pool, n int) ([]int64, int64) {
	t.Helper()

	userIDs := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		var id int64
		err := pool.QueryRow(ctx,
			`INSERT INTO users (username) VALUES ($1) RETURNING id`,
			"test_"+uuid.NewString()[:8],
		).Scan(&id)
		require.NoError(t, err, "Failed to create test user")
		userIDs = append(userIDs, id)
	}

	var topicID int64
	err := pool.QueryRow(ctx,
		`INSERT INTO topics (author_id, title) VALUES ($1, 'Test topic') RETURNING id`, userIDs[0],
	).Scan(&topicID)
	require.NoError(t, err, "Failed to create test topic")

	t.Cleanup(func() {
		// Deleting users cascades to topics, subscriptions and notifications.
		if _, err := pool.Exec(context.Background(), `DELETE FROM users WHERE id = ANY($1)`, userIDs); err != nil {
			t.Logf("Warning: failed to cleanup test users: %v", err)
		}
	})
	return userIDs, topicID
}

// TestPostgresSubscriptionRepository tests idempotent subscribe and actor exclusion
func TestPostgresSubscriptionRepository(t *testing.T) {
	pool := getTestPool(t)
	ctx := context.Background()
	users, topicID := setupTestUsersAndTopic(t, ctx, pool, 3)
	repo := NewPostgresSubscriptionRepository(pool)

	for _, id := range users {
		require.NoError(t, repo.Subscribe(ctx, id, topicID))
	}
	require.NoError(t, repo.Subscribe(ctx, users[0], topicID))

	ids, err := repo.ListSubscriberIDs(ctx, topicID, users[0])
	require.NoError(t, err)
	assert.ElementsMatch(t, users[1:], ids)

	require.NoError(t, repo.Unsubscribe(ctx, users[0], topicID))
	assert.ErrorIs(t, repo.Unsubscribe(ctx, users[0], topicID), ErrNotFound)

	exists, err := repo.Exists(ctx, users[0], topicID)
	require.NoError(t, err)
	assert.False(t, exists)
}

// TestPostgresNotificationRepository tests create, list and the N then 0 bulk read
func TestPostgresNotificationRepository(t *testing.T) {
	pool := getTestPool(t)
	ctx := context.Background()
	users, topicID := setupTestUsersAndTopic(t, ctx, pool, 2)
	repo := NewPostgresNotificationRepository(pool)

	actorID, recipientID := users[0], users[1]
	for _, msg := range []string{"one", "two"} {
		n := &models.Notification{
			RecipientID: recipientID,
			ActorID:     &actorID,
			Kind:        models.KindCommentUpdate,
			TopicID:     &topicID,
			Message:     msg,
		}
		require.NoError(t, repo.Create(ctx, n))
		assert.NotZero(t, n.ID)
	}

	list, err := repo.ListByRecipient(ctx, recipientID, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "two", list[0].Message)
	assert.Nil(t, list[0].PostID)

	updated, err := repo.MarkAllRead(ctx, recipientID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	updated, err = repo.MarkAllRead(ctx, recipientID)
	require.NoError(t, err)
	assert.Zero(t, updated)

	unread, err := repo.CountUnread(ctx, recipientID)
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestPostgresUserRepository_GetByUsernames(t *testing.T) {
	pool := getTestPool(t)
	ctx := context.Background()
	users, _ := setupTestUsersAndTopic(t, ctx, pool, 1)
	repo := NewPostgresUserRepository(pool)

	user, err := repo.GetByID(ctx, users[0])
	require.NoError(t, err)

	found, err := repo.GetByUsernames(ctx, []string{user.Username, "no_such_user_" + uuid.NewString()[:8]})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, users[0], found[0].ID)

	_, err = repo.GetByID(ctx, -1)
	assert.ErrorIs(t, err, ErrNotFound)
}
