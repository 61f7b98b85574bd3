package core

import (
	"time"
)

// User is the identity of the authenticated viewer, as returned by GET /users/me.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Handle      string    `json:"handle"`
	CreatedAt   time.Time `json:"created_at"`
}

// PublicUser is a profile anyone can look up.
type PublicUser struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Handle      string    `json:"handle"`
	CreatedAt   time.Time `json:"created_at"`
	PostCount   int       `json:"post_count"`
}

// Author is the embedded author reference of a post.
type Author struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Handle      string `json:"handle"`
}

// Post is a single message. Author is nil when the author has been removed.
type Post struct {
	ID         string    `json:"id"`
	Body       string    `json:"body"`
	Author     *Author   `json:"author"`
	ParentID   *string   `json:"parent_id"`
	LikeCount  int       `json:"like_count"`
	ReplyCount int       `json:"reply_count"`
	UserLiked  bool      `json:"user_liked"`
	CreatedAt  time.Time `json:"created_at"`
}

// IsReply reports whether the post belongs to a parent's reply list.
func (p Post) IsReply() bool {
	return p.ParentID != nil && *p.ParentID != ""
}

// Removed reports whether the post must be shown as a tombstone.
func (p Post) Removed() bool {
	return p.Author == nil
}

// AuthoredBy reports whether userID wrote the post. Tombstones belong to nobody.
func (p Post) AuthoredBy(userID string) bool {
	return p.Author != nil && userID != "" && p.Author.ID == userID
}

// Like returns the like state of the post.
func (p Post) Like() LikeState {
	return LikeState{Liked: p.UserLiked, LikeCount: p.LikeCount}
}

// FeedPage is one page of top-level posts. NextCursor is nil on the last page.
type FeedPage struct {
	Items      []Post  `json:"items"`
	NextCursor *string `json:"next_cursor"`
}

// PostDetail is a post with its direct replies.
type PostDetail struct {
	Post    Post   `json:"post"`
	Replies []Post `json:"replies"`
}

// LikeState is the per-viewer like flag and the aggregate count of a post.
type LikeState struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

// Registration is the payload of POST /auth/register.
type Registration struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	DisplayName string `json:"display_name" validate:"required,max=40"`
}
