package models

// Topic and Comment carry only the fields the notification engine reads.
// The forum application owns the full records.

type Topic struct {
	ID       int64  `json:"id"`
	AuthorID int64  `json:"author_id"`
	Title    string `json:"title"`
}

type Comment struct {
	ID       int64  `json:"id"`
	TopicID  int64  `json:"topic_id"`
	PostID   *int64 `json:"post_id,omitempty"`
	ParentID *int64 `json:"parent_id,omitempty"`
	Author   User   `json:"author"`
	Content  string `json:"content"`
}
