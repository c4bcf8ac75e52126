package models

import "time"

type NotificationKind string

const (
	KindTopicUpdate   NotificationKind = "topic"
	KindCommentUpdate NotificationKind = "comment"
	KindMention       NotificationKind = "mention"
	KindLike          NotificationKind = "like"
	KindReply         NotificationKind = "reply"
)

func (k NotificationKind) Valid() bool {
	switch k {
	case KindTopicUpdate, KindCommentUpdate, KindMention, KindLike, KindReply:
		return true
	}
	return false
}

type Notification struct {
	ID          int64            `json:"id"`
	RecipientID int64            `json:"recipient_id"`
	ActorID     *int64           `json:"actor_id,omitempty"`
	Kind        NotificationKind `json:"kind"`
	TopicID     *int64           `json:"topic_id,omitempty"`
	PostID      *int64           `json:"post_id,omitempty"`
	CommentID   *int64           `json:"comment_id,omitempty"`
	Message     string           `json:"message"`
	IsRead      bool             `json:"is_read"`
	CreatedAt   time.Time        `json:"created_at"`
}

// HeaderCounters are the unread badges shown in a user's page header.
type HeaderCounters struct {
	UnreadNotifications int64 `json:"unread_notifications_count"`
	UnreadMessages      int64 `json:"unread_messages_count"`
}
