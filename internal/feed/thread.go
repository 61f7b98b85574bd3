package feed

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"journal/internal/core"
)

// ThreadSnapshot is a post with its direct replies, as last loaded.
type ThreadSnapshot struct {
	Post    *core.Post
	Replies []core.Post
	Loading bool
	Err     error
}

// Thread is the detail view of one post. It is loaded independently of any feed cursor.
type Thread struct {
	source core.PostSource
	id     string
	logger *slog.Logger

	mu         sync.Mutex
	post       *core.Post
	replies    []core.Post
	loading    bool
	err        error
	epoch      uint64
	generation uint64
}

func NewThread(source core.PostSource, id string, logger *slog.Logger) *Thread {
	if logger == nil {
		logger = slog.Default()
	}
	return &Thread{
		source: source,
		id:     id,
		logger: logger.With("component", "feed.Thread", "post", id),
	}
}

func (t *Thread) ID() string {
	return t.id
}

// Load fetches the post and its replies, replacing what was shown.
func (t *Thread) Load(ctx context.Context) error {
	t.mu.Lock()
	t.epoch++
	epoch := t.epoch
	t.loading = true
	t.err = nil
	t.mu.Unlock()

	detail, err := t.source.GetPost(ctx, t.id)

	t.mu.Lock()
	defer t.mu.Unlock()

	if epoch != t.epoch {
		return nil
	}
	t.loading = false
	if err != nil {
		t.err = err
		t.logger.Warn("Thread load failed", "error", err)
		return err
	}

	post := detail.Post
	t.post = &post
	t.replies = detail.Replies
	t.generation++
	return nil
}

func (t *Thread) Snapshot() ThreadSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := ThreadSnapshot{
		Replies: slices.Clone(t.replies),
		Loading: t.loading,
		Err:     t.err,
	}
	if t.post != nil {
		post := *t.post
		snap.Post = &post
	}
	return snap
}

func (t *Thread) Post(id string) (core.Post, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p := t.find(id); p != nil {
		return *p, true
	}
	return core.Post{}, false
}

func (t *Thread) Update(id string, fn func(*core.Post)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.find(id)
	if p == nil {
		return false
	}
	fn(p)
	return true
}

func (t *Thread) Generation() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.generation
}

// find must be called with mu held.
func (t *Thread) find(id string) *core.Post {
	if t.post != nil && t.post.ID == id {
		return t.post
	}
	for i := range t.replies {
		if t.replies[i].ID == id {
			return &t.replies[i]
		}
	}
	return nil
}
