// Package feed owns the visible collection of posts and its pagination cursor.
package feed

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/lo"

	"journal/internal/core"
)

// DefaultPageSize matches the collaborator's default page.
const DefaultPageSize = 20

var feedPosts = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "journal_feed_posts",
	Help: "Number of posts currently loaded in the feed.",
})

type State int

const (
	StateEmpty State = iota
	StateLoading
	StateLoaded
	StateLoadingMore
	StateError
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateLoadingMore:
		return "loading-more"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Snapshot is a consistent copy of the pager for rendering.
type Snapshot struct {
	State   State
	Items   []core.Post
	HasMore bool
	Err     error
}

// Pager is the only writer of the feed collection.
type Pager struct {
	source   core.FeedSource
	pageSize int
	logger   *slog.Logger

	mu     sync.Mutex
	items  []core.Post
	cursor *string
	state  State
	err    error
	// epoch identifies the latest request; responses of older ones are dropped.
	epoch uint64
	// generation counts wholesale replacements of items.
	generation uint64
}

func NewPager(source core.FeedSource, pageSize int, logger *slog.Logger) *Pager {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pager{
		source:   source,
		pageSize: pageSize,
		logger:   logger.With("component", "feed.Pager"),
	}
}

// LoadInitial fetches the newest page and replaces the collection.
// On failure the previous items stay visible.
func (p *Pager) LoadInitial(ctx context.Context) error {
	p.mu.Lock()
	p.epoch++
	epoch := p.epoch
	p.state = StateLoading
	p.err = nil
	p.mu.Unlock()

	page, err := p.source.GetPosts(ctx, "", p.pageSize)

	p.mu.Lock()
	defer p.mu.Unlock()

	if epoch != p.epoch {
		return nil
	}
	if err != nil {
		p.fail(err)
		return err
	}

	p.items = topLevel(page.Items)
	p.cursor = nextCursor(page)
	p.state = StateLoaded
	p.generation++
	feedPosts.Set(float64(len(p.items)))

	p.logger.Debug("Feed loaded", "posts", len(p.items), "more", p.cursor != nil)
	return nil
}

// LoadMore appends the next page. It does nothing when there is no cursor
// or another load is in flight.
func (p *Pager) LoadMore(ctx context.Context) error {
	p.mu.Lock()
	if p.cursor == nil || p.busy() {
		p.mu.Unlock()
		return nil
	}
	cursor := *p.cursor
	epoch := p.epoch
	p.state = StateLoadingMore
	p.err = nil
	p.mu.Unlock()

	page, err := p.source.GetPosts(ctx, cursor, p.pageSize)

	p.mu.Lock()
	defer p.mu.Unlock()

	if epoch != p.epoch {
		return nil
	}
	if err != nil {
		p.fail(err)
		return err
	}

	p.items = append(p.items, topLevel(page.Items)...)
	p.cursor = nextCursor(page)
	p.state = StateLoaded
	feedPosts.Set(float64(len(p.items)))

	p.logger.Debug("Feed page appended", "cursor", cursor, "posts", len(p.items), "more", p.cursor != nil)
	return nil
}

// nextCursor treats an empty cursor like a missing one.
func nextCursor(page *core.FeedPage) *string {
	if lo.FromPtr(page.NextCursor) == "" {
		return nil
	}
	return page.NextCursor
}

// busy must be called with mu held.
func (p *Pager) busy() bool {
	return p.state == StateLoading || p.state == StateLoadingMore
}

// fail must be called with mu held.
func (p *Pager) fail(err error) {
	p.state = StateError
	p.err = err
	p.logger.Warn("Feed load failed", "error", err)
}

func (p *Pager) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Snapshot{
		State:   p.state,
		Items:   slices.Clone(p.items),
		HasMore: p.cursor != nil,
		Err:     p.err,
	}
}

func (p *Pager) Items() []core.Post {
	return p.Snapshot().Items
}

func (p *Pager) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor != nil
}

func (p *Pager) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pager) Post(id string) (core.Post, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return lo.Find(p.items, func(post core.Post) bool { return post.ID == id })
}

// Update rewrites a loaded post in place and reports whether it was found.
func (p *Pager) Update(id string, fn func(*core.Post)) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := slices.IndexFunc(p.items, func(post core.Post) bool { return post.ID == id })
	if i < 0 {
		return false
	}
	fn(&p.items[i])
	return true
}

func (p *Pager) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generation
}

// topLevel drops replies: they belong to their parent's thread.
func topLevel(posts []core.Post) []core.Post {
	return lo.Filter(posts, func(post core.Post, _ int) bool { return !post.IsReply() })
}
