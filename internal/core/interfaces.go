package core

import (
	"context"
)

// SessionAPI is the part of the collaborator the session store talks to.
type SessionAPI interface {
	Register(ctx context.Context, reg Registration) error
	Login(ctx context.Context, email, password string) error
	Logout(ctx context.Context) error
	VerifyEmail(ctx context.Context, token string) error
	Me(ctx context.Context) (*User, error)
}

// FeedSource fetches feed pages. An empty cursor asks for the newest page.
type FeedSource interface {
	GetPosts(ctx context.Context, cursor string, limit int) (*FeedPage, error)
}

// PostSource fetches a single post with its replies.
type PostSource interface {
	GetPost(ctx context.Context, id string) (*PostDetail, error)
}

// MutationAPI is the write side of the collaborator.
type MutationAPI interface {
	CreatePost(ctx context.Context, body, parentID string) (*Post, error)
	DeletePost(ctx context.Context, id string) error
	ToggleLike(ctx context.Context, id string) (*LikeState, error)
}

// ProfileSource looks up public profiles.
type ProfileSource interface {
	GetUser(ctx context.Context, id string) (*PublicUser, error)
}

// API is the complete collaborator contract.
type API interface {
	SessionAPI
	FeedSource
	PostSource
	MutationAPI
	ProfileSource
}

// PostCollection is a set of posts that mutations can rewrite in place.
// Generation changes every time the collection is replaced wholesale.
type PostCollection interface {
	Post(id string) (Post, bool)
	Update(id string, fn func(*Post)) bool
	Generation() uint64
}

// DraftStore keeps unsent composer bodies, keyed by composer.
type DraftStore interface {
	Load(ctx context.Context, key string) (string, error)
	Save(ctx context.Context, key, body string) error
	Delete(ctx context.Context, key string) error
}

// Confirmer asks the user to confirm an irreversible action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// Command is the runner of a CLI command.
type Command interface {
	Run(ctx context.Context) error
}

type MetricsServer interface{}
