// Package journal ties the session, the feed and the mutations together
// and derives what the viewer is allowed to do from the session.
package journal

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/samber/lo"

	"journal/internal/compose"
	"journal/internal/core"
	"journal/internal/feed"
	"journal/internal/mutation"
	"journal/internal/session"
	"journal/pkg/async"
)

// DefaultPreviewSize is how many posts an anonymous visitor sees.
const DefaultPreviewSize = 3

type Options struct {
	PageSize    int
	PreviewSize int
	Confirmer   core.Confirmer
	Drafts      core.DraftStore
	Logger      *slog.Logger
}

// Entry is a post together with what the viewer may do with it.
type Entry struct {
	core.Post
	CanLike   bool
	CanDelete bool
	Liking    bool
}

// Home is the state of the main page.
type Home struct {
	Loading      bool
	Viewer       *core.User
	Entries      []Entry
	State        feed.State
	Err          error
	ShowComposer bool
	Composer     compose.State
	CanLoadMore  bool
}

// ThreadView is the state of an open post detail.
type ThreadView struct {
	Viewer       *core.User
	Post         *Entry
	Replies      []Entry
	Loading      bool
	Err          error
	ShowComposer bool
	Composer     compose.State
}

type Engine struct {
	api         core.API
	base        *slog.Logger
	logger      *slog.Logger
	previewSize int

	Session   *session.Store
	Feed      *feed.Pager
	Mutations *mutation.Controller
	Composer  *compose.Draft

	mu         sync.Mutex
	thread     *feed.Thread
	replyDraft *compose.Draft
}

func New(api core.API, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.PreviewSize <= 0 {
		opts.PreviewSize = DefaultPreviewSize
	}
	if opts.Confirmer == nil {
		opts.Confirmer = core.ConfirmFunc(func(context.Context, string) (bool, error) { return false, nil })
	}

	return &Engine{
		api:         api,
		base:        opts.Logger,
		logger:      opts.Logger.With("component", "journal.Engine"),
		previewSize: opts.PreviewSize,
		Session:     session.New(api, opts.Logger),
		Feed:        feed.NewPager(api, opts.PageSize, opts.Logger),
		Mutations:   mutation.NewController(api, opts.Confirmer, opts.Drafts, opts.Logger),
		Composer:    compose.NewDraft(""),
	}
}

// Start resolves the session and loads the first page at the same time.
// Only a feed failure is reported; an unresolved session just means anonymous.
func (e *Engine) Start(ctx context.Context) error {
	resolve := async.Job(ctx, func(ctx context.Context) (*core.User, error) {
		return e.Session.Resolve(ctx), nil
	})
	load := async.Job(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, e.Feed.LoadInitial(ctx)
	})

	viewer, _ := resolve.Wait()
	if viewer != nil {
		if err := e.Mutations.Resume(ctx, e.Composer); err != nil {
			e.logger.Warn("Failed to restore draft", "error", err)
		}
	}

	_, err := load.Wait()
	return err
}

func (e *Engine) Viewer() *core.User {
	user, _ := e.Session.Current()
	return user
}

func (e *Engine) Home() Home {
	user, resolved := e.Session.Current()
	snap := e.Feed.Snapshot()

	home := Home{
		Loading: !resolved,
		Viewer:  user,
		State:   snap.State,
		Err:     snap.Err,
	}
	if !resolved {
		return home
	}

	posts := snap.Items
	if user == nil {
		posts = lo.Slice(posts, 0, e.previewSize)
	} else {
		home.ShowComposer = true
		home.Composer = e.Composer.State()
		home.CanLoadMore = snap.HasMore
	}
	home.Entries = e.entries(user, posts)
	return home
}

func (e *Engine) entries(user *core.User, posts []core.Post) []Entry {
	return lo.Map(posts, func(p core.Post, _ int) Entry {
		return e.entry(user, p)
	})
}

func (e *Engine) entry(user *core.User, p core.Post) Entry {
	liking := e.Mutations.IsToggling(p.ID)
	return Entry{
		Post:      p,
		CanLike:   user != nil && !liking,
		CanDelete: user != nil && p.AuthoredBy(user.ID),
		Liking:    liking,
	}
}

// Login signs in and reloads the feed so per-viewer flags are fresh.
func (e *Engine) Login(ctx context.Context, email, password string) (*core.User, error) {
	user, err := e.Session.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if err := e.Mutations.Resume(ctx, e.Composer); err != nil {
		e.logger.Warn("Failed to restore draft", "error", err)
	}
	e.reloadFeed(ctx)
	return user, nil
}

// Logout signs out and reloads the feed as anonymous. The session is cleared even if the call fails.
func (e *Engine) Logout(ctx context.Context) error {
	err := e.Session.Logout(ctx)

	e.mu.Lock()
	e.thread, e.replyDraft = nil, nil
	e.mu.Unlock()
	e.Composer.SetBody("")

	e.reloadFeed(ctx)
	return err
}

// reloadFeed refreshes the feed after a session change. The failure stays
// on the feed snapshot.
func (e *Engine) reloadFeed(ctx context.Context) {
	if err := e.observe(e.Feed.LoadInitial(ctx)); err != nil {
		e.logger.Warn("Failed to reload feed", "error", err)
	}
}

func (e *Engine) Register(ctx context.Context, reg core.Registration) error {
	return e.Session.Register(ctx, reg)
}

func (e *Engine) VerifyEmail(ctx context.Context, token string) error {
	return e.Session.VerifyEmail(ctx, token)
}

func (e *Engine) Refresh(ctx context.Context) error {
	return e.observe(e.Feed.LoadInitial(ctx))
}

// LoadMore is only offered to signed in viewers.
func (e *Engine) LoadMore(ctx context.Context) error {
	if _, err := e.Session.Require(); err != nil {
		return err
	}
	return e.observe(e.Feed.LoadMore(ctx))
}

// ToggleLike toggles the like of a post in the open thread, or in the feed when no thread is open.
func (e *Engine) ToggleLike(ctx context.Context, id string) (*core.LikeState, error) {
	if _, err := e.Session.Require(); err != nil {
		return nil, err
	}

	state, err := e.Mutations.ToggleLike(ctx, e.collection(), id)
	return state, e.observe(err)
}

// Delete removes one of the viewer's own posts after confirmation and reloads what is shown.
func (e *Engine) Delete(ctx context.Context, id string) (bool, error) {
	user, err := e.Session.Require()
	if err != nil {
		return false, err
	}

	post, ok := e.collection().Post(id)
	if !ok {
		return false, core.NewError(core.ErrNotFound, 0, "Post not found")
	}
	if !post.AuthoredBy(user.ID) {
		return false, core.AuthError("You can only delete your own posts")
	}

	deleted, err := e.Mutations.Delete(ctx, id, e.reloadAfterDelete(id))
	return deleted, e.observe(err)
}

func (e *Engine) reloadAfterDelete(id string) func(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	thread := e.thread
	switch {
	case thread == nil:
		return e.Feed.LoadInitial
	case thread.ID() == id:
		return func(ctx context.Context) error {
			e.closeThread()
			return e.Feed.LoadInitial(ctx)
		}
	default:
		return thread.Load
	}
}

// Publish submits the top-level composer and reloads the feed on success.
func (e *Engine) Publish(ctx context.Context) (*core.Post, error) {
	if _, err := e.Session.Require(); err != nil {
		return nil, err
	}

	post, err := e.Mutations.Create(ctx, e.Composer, e.Feed.LoadInitial)
	return post, e.observe(err)
}

// OpenThread loads a post with its replies and makes it the target of likes, deletes and replies.
func (e *Engine) OpenThread(ctx context.Context, id string) (ThreadView, error) {
	thread := feed.NewThread(e.api, id, e.base)
	if err := thread.Load(ctx); err != nil {
		return ThreadView{Err: err}, e.observe(err)
	}

	draft := compose.NewDraft(id)
	if e.Viewer() != nil {
		if err := e.Mutations.Resume(ctx, draft); err != nil {
			e.logger.Warn("Failed to restore draft", "key", draft.Key(), "error", err)
		}
	}

	e.mu.Lock()
	e.thread, e.replyDraft = thread, draft
	e.mu.Unlock()

	return e.Thread(), nil
}

// CloseThread goes back to the feed, which is reloaded so it reflects changes made in the thread.
func (e *Engine) CloseThread(ctx context.Context) error {
	e.closeThread()
	return e.observe(e.Feed.LoadInitial(ctx))
}

func (e *Engine) closeThread() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.thread, e.replyDraft = nil, nil
}

// ReplyDraft is the composer of the open thread, nil when none is open.
func (e *Engine) ReplyDraft() *compose.Draft {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.replyDraft
}

// Reply submits the reply composer and reloads the thread on success.
func (e *Engine) Reply(ctx context.Context) (*core.Post, error) {
	if _, err := e.Session.Require(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	thread, draft := e.thread, e.replyDraft
	e.mu.Unlock()
	if thread == nil {
		return nil, core.ValidationError("Open a post to reply to it")
	}

	post, err := e.Mutations.Create(ctx, draft, thread.Load)
	return post, e.observe(err)
}

// Thread returns the open thread; the zero value when none is open.
func (e *Engine) Thread() ThreadView {
	e.mu.Lock()
	thread, draft := e.thread, e.replyDraft
	e.mu.Unlock()

	if thread == nil {
		return ThreadView{}
	}

	user := e.Viewer()
	snap := thread.Snapshot()
	view := ThreadView{
		Viewer:  user,
		Replies: e.entries(user, snap.Replies),
		Loading: snap.Loading,
		Err:     snap.Err,
	}
	if snap.Post != nil {
		entry := e.entry(user, *snap.Post)
		view.Post = &entry
	}
	if user != nil {
		view.ShowComposer = true
		view.Composer = draft.State()
	}
	return view
}

func (e *Engine) Profile(ctx context.Context, id string) (*core.PublicUser, error) {
	user, err := e.api.GetUser(ctx, id)
	return user, e.observe(err)
}

// collection is what likes and deletes act on.
func (e *Engine) collection() core.PostCollection {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.thread != nil {
		return e.thread
	}
	return e.Feed
}

// observe drops the session when the collaborator says it is no longer valid.
func (e *Engine) observe(err error) error {
	var apiErr *core.APIError
	if errors.As(err, &apiErr) && errors.Is(apiErr, core.ErrAuth) && apiErr.Status == http.StatusUnauthorized {
		e.logger.Warn("Session rejected, signing out locally", "error", err)
		e.Session.Invalidate()
	}
	return err
}
