package mutation

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/lo"

	"journal/internal/compose"
	"journal/internal/core"
)

const DeletePrompt = "Delete this post? This cannot be undone."

var mutations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "journal_mutations_total",
	Help: "The total number of mutations by kind and outcome.",
}, []string{"kind", "outcome"})

const (
	kindLike   = "like"
	kindDelete = "delete"
	kindCreate = "create"

	outcomeOK       = "ok"
	outcomeFailed   = "failed"
	outcomeRejected = "rejected"
	outcomeDeclined = "declined"
)

// likeSnapshot is what a like toggle needs to roll back.
type likeSnapshot struct {
	state      core.LikeState
	generation uint64
}

// Controller runs like toggles, deletes and creates.
// At most one like toggle per post id is in flight.
type Controller struct {
	api     core.MutationAPI
	confirm core.Confirmer
	drafts  core.DraftStore
	logger  *slog.Logger

	mu       sync.Mutex
	toggling map[string]struct{}
}

func NewController(api core.MutationAPI, confirm core.Confirmer, drafts core.DraftStore, logger *slog.Logger) *Controller {
	if drafts == nil {
		drafts = &compose.MemoryStore{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		api:      api,
		confirm:  confirm,
		drafts:   drafts,
		logger:   logger.With("component", "mutation.Controller"),
		toggling: map[string]struct{}{},
	}
}

// ToggleLike flips the liked flag of a post in coll and adjusts its count,
// then reconciles with the collaborator's answer. A toggle for a post that
// already has one in flight fails with ErrBusy.
//
// If coll is replaced while the call is in flight, the new contents win and
// neither the reconciliation nor the rollback is applied.
func (c *Controller) ToggleLike(ctx context.Context, coll core.PostCollection, id string) (*core.LikeState, error) {
	if !c.begin(id) {
		mutations.WithLabelValues(kindLike, outcomeRejected).Inc()
		return nil, core.NewError(core.ErrBusy, 0, "Like is already being updated")
	}
	defer c.end(id)

	write := func(generation uint64, state core.LikeState) {
		if coll.Generation() != generation {
			return
		}
		coll.Update(id, func(p *core.Post) {
			p.UserLiked = state.Liked
			p.LikeCount = state.LikeCount
		})
	}

	op := Optimistic[likeSnapshot, *core.LikeState]{
		Snapshot: func() (likeSnapshot, error) {
			post, ok := coll.Post(id)
			if !ok {
				return likeSnapshot{}, core.NewError(core.ErrNotFound, 0, "Post not found")
			}
			return likeSnapshot{state: post.Like(), generation: coll.Generation()}, nil
		},
		Apply: func(s likeSnapshot) {
			next := core.LikeState{Liked: !s.state.Liked, LikeCount: s.state.LikeCount + 1}
			if s.state.Liked {
				next.LikeCount = s.state.LikeCount - 1
			}
			write(s.generation, next)
		},
		Remote: func(ctx context.Context) (*core.LikeState, error) {
			return c.api.ToggleLike(ctx, id)
		},
		Reconcile: func(s likeSnapshot, res *core.LikeState) {
			write(s.generation, *res)
		},
		Restore: func(s likeSnapshot) {
			write(s.generation, s.state)
		},
	}

	state, err := op.Run(ctx)
	if err != nil {
		mutations.WithLabelValues(kindLike, outcomeFailed).Inc()
		c.logger.Warn("Like rolled back", "post", id, "error", err)
		return nil, err
	}

	mutations.WithLabelValues(kindLike, outcomeOK).Inc()
	return state, nil
}

func (c *Controller) begin(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.toggling[id]; ok {
		return false
	}
	c.toggling[id] = struct{}{}
	return true
}

func (c *Controller) end(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.toggling, id)
}

// IsToggling reports whether a like toggle for the post is in flight.
func (c *Controller) IsToggling(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.toggling[id]
	return ok
}

// Pending lists post ids with a like toggle in flight, sorted.
func (c *Controller) Pending() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := lo.Keys(c.toggling)
	slices.Sort(ids)
	return ids
}

// Delete asks for confirmation, deletes the post and runs reload on success.
// Nothing is removed locally: the reload brings a consistent collection.
// It reports whether the post was deleted.
func (c *Controller) Delete(ctx context.Context, id string, reload func(context.Context) error) (bool, error) {
	ok, err := c.confirm.Confirm(ctx, DeletePrompt)
	if err != nil {
		return false, err
	}
	if !ok {
		mutations.WithLabelValues(kindDelete, outcomeDeclined).Inc()
		return false, nil
	}

	if err := c.api.DeletePost(ctx, id); err != nil {
		mutations.WithLabelValues(kindDelete, outcomeFailed).Inc()
		c.logger.Warn("Delete failed", "post", id, "error", err)
		return false, err
	}
	mutations.WithLabelValues(kindDelete, outcomeOK).Inc()
	c.logger.Info("Post deleted", "post", id)

	if reload == nil {
		return true, nil
	}
	return true, reload(ctx)
}

// Create submits a draft. The body is validated first and nothing is sent if it is invalid.
// On failure the body stays in the draft and is saved so it survives a restart;
// on success the draft is cleared and after runs.
func (c *Controller) Create(ctx context.Context, draft *compose.Draft, after func(context.Context) error) (*core.Post, error) {
	body, err := draft.Begin()
	if err != nil {
		return nil, err
	}

	post, err := c.api.CreatePost(ctx, body, draft.ParentID())
	if err != nil {
		draft.Fail(err)
		mutations.WithLabelValues(kindCreate, outcomeFailed).Inc()
		c.logger.Warn("Create failed, draft kept", "key", draft.Key(), "error", err)

		if saveErr := c.drafts.Save(ctx, draft.Key(), body); saveErr != nil {
			c.logger.Warn("Failed to save draft", "key", draft.Key(), "error", saveErr)
		}
		return nil, err
	}

	draft.Succeed()
	mutations.WithLabelValues(kindCreate, outcomeOK).Inc()

	if err := c.drafts.Delete(ctx, draft.Key()); err != nil {
		c.logger.Warn("Failed to delete draft", "key", draft.Key(), "error", err)
	}

	if after == nil {
		return post, nil
	}
	return post, after(ctx)
}

// Resume fills an empty draft with a body saved by an earlier failed create.
func (c *Controller) Resume(ctx context.Context, draft *compose.Draft) error {
	if draft.Body() != "" {
		return nil
	}

	body, err := c.drafts.Load(ctx, draft.Key())
	if err != nil {
		return err
	}
	if body != "" {
		draft.SetBody(body)
	}
	return nil
}
