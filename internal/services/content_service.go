package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/BASTARDsol/Mafia2Forum/internal/models"
	"github.com/BASTARDsol/Mafia2Forum/internal/repositories"
)

var (
	ErrUnknownEvent = errors.New("unknown content event")
	ErrInvalidEvent = errors.New("invalid content event")
)

const (
	EventTopicCreated   = "topic_created"
	EventPostCreated    = "post_created"
	EventCommentCreated = "comment_created"
	EventReplyCreated   = "reply_created"
	EventTopicLiked     = "topic_liked"
	EventPostLiked      = "post_liked"
	EventCommentLiked   = "comment_liked"
)

// ContentEvent is what the forum reports after it persisted a piece of content.
type ContentEvent struct {
	Type    string `json:"type"`
	ActorID int64  `json:"actor_id"`
	TopicID int64  `json:"topic_id"`

	PostID    *int64 `json:"post_id,omitempty"`
	CommentID *int64 `json:"comment_id,omitempty"`
	Content   string `json:"content,omitempty"`

	// ParentAuthorID is the author of the comment being replied to.
	ParentAuthorID *int64 `json:"parent_author_id,omitempty"`
	// OwnerID is the author of the liked post or comment.
	OwnerID *int64 `json:"owner_id,omitempty"`
}

// ContentService maps forum content events onto the notification engine and
// keeps topic subscriptions.
type ContentService struct {
	topics        repositories.TopicRepository
	users         repositories.UserRepository
	subscriptions repositories.SubscriptionRepository
	notifier      *NotificationService
}

func NewContentService(
	topics repositories.TopicRepository,
	users repositories.UserRepository,
	subscriptions repositories.SubscriptionRepository,
	notifier *NotificationService,
) *ContentService {
	return &ContentService{
		topics:        topics,
		users:         users,
		subscriptions: subscriptions,
		notifier:      notifier,
	}
}

// Handle runs the fan-out for one event. The caller must report each event once.
func (s *ContentService) Handle(ctx context.Context, ev ContentEvent) error {
	if ev.ActorID <= 0 || ev.TopicID <= 0 {
		return fmt.Errorf("%w: actor_id and topic_id are required", ErrInvalidEvent)
	}

	switch ev.Type {
	case EventTopicCreated:
		return s.subscriptions.Subscribe(ctx, ev.ActorID, ev.TopicID)
	case EventPostCreated:
		return s.handlePost(ctx, ev)
	case EventCommentCreated:
		return s.handleComment(ctx, ev)
	case EventReplyCreated:
		return s.handleReply(ctx, ev)
	case EventTopicLiked, EventPostLiked, EventCommentLiked:
		return s.handleLike(ctx, ev)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Type)
	}
}

func (s *ContentService) handlePost(ctx context.Context, ev ContentEvent) error {
	actor, topic, err := s.load(ctx, ev)
	if err != nil {
		return err
	}

	_, err = s.notifier.NotifySubscribers(ctx, SubscriberNotice{
		TopicID: topic.ID,
		ActorID: actor.ID,
		Kind:    models.KindTopicUpdate,
		Message: fmt.Sprintf("%s added a post in %q", actor.Username, topic.Title),
		PostID:  ev.PostID,
	})
	return err
}

func (s *ContentService) handleComment(ctx context.Context, ev ContentEvent) error {
	if ev.CommentID == nil {
		return fmt.Errorf("%w: comment_id is required", ErrInvalidEvent)
	}
	actor, topic, err := s.load(ctx, ev)
	if err != nil {
		return err
	}
	return s.notifyComment(ctx, ev, actor, topic)
}

func (s *ContentService) notifyComment(ctx context.Context, ev ContentEvent, actor *models.User, topic *models.Topic) error {
	_, err := s.notifier.NotifySubscribers(ctx, SubscriberNotice{
		TopicID:   topic.ID,
		ActorID:   actor.ID,
		Kind:      models.KindCommentUpdate,
		Message:   fmt.Sprintf("%s commented on %q", actor.Username, topic.Title),
		PostID:    ev.PostID,
		CommentID: ev.CommentID,
	})
	if err != nil {
		return err
	}

	_, err = s.notifier.NotifyMentions(ctx, models.Comment{
		ID:      *ev.CommentID,
		TopicID: topic.ID,
		PostID:  ev.PostID,
		Author:  *actor,
		Content: ev.Content,
	})
	return err
}

// handleReply notifies like a comment and additionally tells the parent
// comment's author.
func (s *ContentService) handleReply(ctx context.Context, ev ContentEvent) error {
	if ev.CommentID == nil || ev.ParentAuthorID == nil {
		return fmt.Errorf("%w: comment_id and parent_author_id are required", ErrInvalidEvent)
	}
	actor, topic, err := s.load(ctx, ev)
	if err != nil {
		return err
	}
	if err := s.notifyComment(ctx, ev, actor, topic); err != nil {
		return err
	}

	actorID := actor.ID
	topicID := topic.ID
	_, err = s.notifier.Notify(ctx, &models.Notification{
		RecipientID: *ev.ParentAuthorID,
		ActorID:     &actorID,
		Kind:        models.KindReply,
		TopicID:     &topicID,
		PostID:      ev.PostID,
		CommentID:   ev.CommentID,
		Message:     fmt.Sprintf("%s replied to your comment in %q", actor.Username, topic.Title),
	})
	return err
}

func (s *ContentService) handleLike(ctx context.Context, ev ContentEvent) error {
	actor, topic, err := s.load(ctx, ev)
	if err != nil {
		return err
	}

	topicID := topic.ID
	notice := LikeNotice{
		ActorID: actor.ID,
		TopicID: &topicID,
	}

	switch ev.Type {
	case EventTopicLiked:
		notice.RecipientID = topic.AuthorID
		notice.Message = fmt.Sprintf("%s liked your topic %q", actor.Username, topic.Title)
	case EventPostLiked:
		if ev.OwnerID == nil || ev.PostID == nil {
			return fmt.Errorf("%w: owner_id and post_id are required", ErrInvalidEvent)
		}
		notice.RecipientID = *ev.OwnerID
		notice.PostID = ev.PostID
		notice.Message = fmt.Sprintf("%s liked your post in %q", actor.Username, topic.Title)
	case EventCommentLiked:
		if ev.OwnerID == nil || ev.CommentID == nil {
			return fmt.Errorf("%w: owner_id and comment_id are required", ErrInvalidEvent)
		}
		notice.RecipientID = *ev.OwnerID
		notice.PostID = ev.PostID
		notice.CommentID = ev.CommentID
		notice.Message = fmt.Sprintf("%s liked your comment in %q", actor.Username, topic.Title)
	}

	_, err = s.notifier.NotifyLike(ctx, notice)
	return err
}

// ToggleSubscription flips the user's subscription to the topic and reports
// whether the user is subscribed afterwards.
func (s *ContentService) ToggleSubscription(ctx context.Context, userID, topicID int64) (bool, error) {
	if _, err := s.topics.GetByID(ctx, topicID); err != nil {
		return false, err
	}

	subscribed, err := s.subscriptions.Exists(ctx, userID, topicID)
	if err != nil {
		return false, err
	}

	if subscribed {
		if err := s.subscriptions.Unsubscribe(ctx, userID, topicID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return false, err
		}
		return false, nil
	}

	if err := s.subscriptions.Subscribe(ctx, userID, topicID); err != nil {
		return false, err
	}
	return true, nil
}

func (s *ContentService) load(ctx context.Context, ev ContentEvent) (*models.User, *models.Topic, error) {
	actor, err := s.users.GetByID(ctx, ev.ActorID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load actor %d: %w", ev.ActorID, err)
	}
	topic, err := s.topics.GetByID(ctx, ev.TopicID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load topic %d: %w", ev.TopicID, err)
	}
	return actor, topic, nil
}
