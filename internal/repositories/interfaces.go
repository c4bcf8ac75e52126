package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/BASTARDsol/Mafia2Forum/internal/models"
)

var ErrNotFound = errors.New("not found")

type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	// GetByUsernames returns the users whose username matches exactly. Unknown names are skipped.
	GetByUsernames(ctx context.Context, usernames []string) ([]*models.User, error)
}

type TopicRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Topic, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByRecipient(ctx context.Context, recipientID int64, limit, offset int) ([]*models.Notification, error)
	CountUnread(ctx context.Context, recipientID int64) (int64, error)
	MarkAllRead(ctx context.Context, recipientID int64) (int64, error)
}

type SubscriptionRepository interface {
	// Subscribe is idempotent: subscribing twice leaves a single row.
	Subscribe(ctx context.Context, userID, topicID int64) error
	Unsubscribe(ctx context.Context, userID, topicID int64) error
	Exists(ctx context.Context, userID, topicID int64) (bool, error)
	ListSubscriberIDs(ctx context.Context, topicID, excludeUserID int64) ([]int64, error)
}

type MessageRepository interface {
	// CountUnread counts messages in the user's dialogs authored by someone else
	// and not yet marked read by the user.
	CountUnread(ctx context.Context, userID int64) (int64, error)
	MarkDialogRead(ctx context.Context, dialogID, userID int64) (int64, error)
}

// PresenceStore is the shared cache holding the presence map.
type PresenceStore interface {
	Load(ctx context.Context) (map[int64]models.PresenceEntry, error)
	Save(ctx context.Context, entries map[int64]models.PresenceEntry, ttl time.Duration) error
}

// PresenceWriteLimiter decides whether a session may refresh presence now.
type PresenceWriteLimiter interface {
	Allow(ctx context.Context, sessionID string, interval time.Duration) (bool, error)
}
