package services

import (
	"context"
	"fmt"
	"time"

	"github.com/BASTARDsol/Mafia2Forum/internal/models"
	"github.com/BASTARDsol/Mafia2Forum/internal/realtime"
	"github.com/BASTARDsol/Mafia2Forum/internal/repositories"
	"go.uber.org/zap"
)

const DefaultPushTimeout = time.Second

// NotificationService fans content events out into notification rows and
// pushes live header counters.
//
// Storage errors are returned to the caller. Realtime push errors are logged
// and dropped so they can never fail the write that triggered them.
type NotificationService struct {
	notifications repositories.NotificationRepository
	subscriptions repositories.SubscriptionRepository
	messages      repositories.MessageRepository
	users         repositories.UserRepository
	publisher     realtime.Publisher
	pushTimeout   time.Duration
	logger        *zap.Logger
}

type SubscriberNotice struct {
	TopicID   int64
	ActorID   int64
	Kind      models.NotificationKind
	Message   string
	PostID    *int64
	CommentID *int64
}

type LikeNotice struct {
	ActorID     int64
	RecipientID int64
	Message     string
	TopicID     *int64
	PostID      *int64
	CommentID   *int64
}

// NewNotificationService wires the engine. publisher may be nil, in which case
// header counter pushes are skipped.
func NewNotificationService(
	notifications repositories.NotificationRepository,
	subscriptions repositories.SubscriptionRepository,
	messages repositories.MessageRepository,
	users repositories.UserRepository,
	publisher realtime.Publisher,
	pushTimeout time.Duration,
	logger *zap.Logger,
) *NotificationService {
	if pushTimeout <= 0 {
		pushTimeout = DefaultPushTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		notifications: notifications,
		subscriptions: subscriptions,
		messages:      messages,
		users:         users,
		publisher:     publisher,
		pushTimeout:   pushTimeout,
		logger:        logger,
	}
}

// NotifySubscribers creates one notification per topic subscriber other than
// the actor. It returns how many were created.
func (s *NotificationService) NotifySubscribers(ctx context.Context, notice SubscriberNotice) (int, error) {
	subscriberIDs, err := s.subscriptions.ListSubscriberIDs(ctx, notice.TopicID, notice.ActorID)
	if err != nil {
		return 0, fmt.Errorf("failed to list subscribers: %w", err)
	}

	actorID := notice.ActorID
	topicID := notice.TopicID
	created := 0
	for _, subscriberID := range subscriberIDs {
		if subscriberID == actorID {
			continue
		}

		n := &models.Notification{
			RecipientID: subscriberID,
			ActorID:     &actorID,
			Kind:        notice.Kind,
			TopicID:     &topicID,
			PostID:      notice.PostID,
			CommentID:   notice.CommentID,
			Message:     notice.Message,
		}
		if err := s.notifications.Create(ctx, n); err != nil {
			return created, fmt.Errorf("failed to notify subscriber %d: %w", subscriberID, err)
		}
		created++

		s.PushHeaderCounters(ctx, subscriberID)
	}
	return created, nil
}

// NotifyMentions creates a mention notification for every existing user named
// in the comment, except its author. Unknown names are ignored.
func (s *NotificationService) NotifyMentions(ctx context.Context, comment models.Comment) (int, error) {
	usernames := ExtractMentions(comment.Content)
	if len(usernames) == 0 {
		return 0, nil
	}

	users, err := s.users.GetByUsernames(ctx, usernames)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve mentions: %w", err)
	}

	authorID := comment.Author.ID
	topicID := comment.TopicID
	commentID := comment.ID
	message := fmt.Sprintf("%s mentioned you in a comment.", comment.Author.Username)

	created := 0
	notified := make(map[int64]struct{}, len(users))
	for _, user := range users {
		if user.ID == authorID {
			continue
		}
		if _, ok := notified[user.ID]; ok {
			continue
		}
		notified[user.ID] = struct{}{}

		n := &models.Notification{
			RecipientID: user.ID,
			ActorID:     &authorID,
			Kind:        models.KindMention,
			TopicID:     &topicID,
			PostID:      comment.PostID,
			CommentID:   &commentID,
			Message:     message,
		}
		if err := s.notifications.Create(ctx, n); err != nil {
			return created, fmt.Errorf("failed to notify mentioned user %s: %w", user.Username, err)
		}
		created++

		s.PushHeaderCounters(ctx, user.ID)
	}
	return created, nil
}

// NotifyLike creates a single like notification. Self-likes are ignored and
// report false.
func (s *NotificationService) NotifyLike(ctx context.Context, notice LikeNotice) (bool, error) {
	if notice.ActorID == notice.RecipientID {
		return false, nil
	}

	actorID := notice.ActorID
	n := &models.Notification{
		RecipientID: notice.RecipientID,
		ActorID:     &actorID,
		Kind:        models.KindLike,
		TopicID:     notice.TopicID,
		PostID:      notice.PostID,
		CommentID:   notice.CommentID,
		Message:     notice.Message,
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		return false, fmt.Errorf("failed to create like notification: %w", err)
	}

	s.PushHeaderCounters(ctx, notice.RecipientID)
	return true, nil
}

// Notify creates a single notification of any kind, skipping self-notifications.
func (s *NotificationService) Notify(ctx context.Context, n *models.Notification) (bool, error) {
	if n.ActorID != nil && *n.ActorID == n.RecipientID {
		return false, nil
	}
	if !n.Kind.Valid() {
		return false, fmt.Errorf("unknown notification kind %q", n.Kind)
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		return false, fmt.Errorf("failed to create %s notification: %w", n.Kind, err)
	}

	s.PushHeaderCounters(ctx, n.RecipientID)
	return true, nil
}

func (s *NotificationService) HeaderCounters(ctx context.Context, userID int64) (models.HeaderCounters, error) {
	unreadNotifications, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		return models.HeaderCounters{}, err
	}
	unreadMessages, err := s.messages.CountUnread(ctx, userID)
	if err != nil {
		return models.HeaderCounters{}, err
	}
	return models.HeaderCounters{
		UnreadNotifications: unreadNotifications,
		UnreadMessages:      unreadMessages,
	}, nil
}

// PushHeaderCounters publishes the user's unread counters to their
// notifications group. It never fails the caller.
func (s *NotificationService) PushHeaderCounters(ctx context.Context, userID int64) {
	if s.publisher == nil {
		return
	}

	pushCtx, cancel := context.WithTimeout(ctx, s.pushTimeout)
	defer cancel()

	counters, err := s.HeaderCounters(pushCtx, userID)
	if err != nil {
		s.logger.Warn("header counters unavailable", zap.Int64("user_id", userID), zap.Error(err))
		return
	}

	ev := models.NewEvent(models.EventHeaderCounters, counters)
	if err := s.publisher.Publish(pushCtx, realtime.NotificationsGroup(userID), ev); err != nil {
		s.logger.Debug("header counters push dropped", zap.Int64("user_id", userID), zap.Error(err))
	}
}

// MarkAllRead flips every unread notification of the user to read and returns
// how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	updated, err := s.notifications.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}

	s.PushHeaderCounters(ctx, userID)
	return updated, nil
}

func (s *NotificationService) ListNotifications(ctx context.Context, userID int64, limit, offset int) ([]*models.Notification, error) {
	notifications, err := s.notifications.ListByRecipient(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// MarkDialogRead records read receipts for the dialog and refreshes the
// user's counters.
func (s *NotificationService) MarkDialogRead(ctx context.Context, dialogID, userID int64) (int64, error) {
	updated, err := s.messages.MarkDialogRead(ctx, dialogID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark dialog read: %w", err)
	}

	s.PushHeaderCounters(ctx, userID)
	return updated, nil
}
