// Package fakeapi is an in-memory implementation of core.API for tests.
//
// Calls can be held in flight with Hold, failed with Fail and counted with Calls.
package fakeapi

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"journal/internal/core"
)

const (
	Register    = "Register"
	Login       = "Login"
	Logout      = "Logout"
	VerifyEmail = "VerifyEmail"
	Me          = "Me"
	GetUser     = "GetUser"
	GetPosts    = "GetPosts"
	CreatePost  = "CreatePost"
	GetPost     = "GetPost"
	DeletePost  = "DeletePost"
	ToggleLike  = "ToggleLike"
)

type account struct {
	password string
	user     core.User
	verified bool
}

// Gate holds calls of one method until released.
type Gate struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

// Entered receives once per call that reached the gate.
func (g *Gate) Entered() <-chan struct{} {
	return g.entered
}

func (g *Gate) Release() {
	g.once.Do(func() { close(g.release) })
}

// API is a fake collaborator. The zero value is not usable, use New.
type API struct {
	mu sync.Mutex

	accounts map[string]*account
	tokens   map[string]string
	viewer   *core.User

	posts   []core.Post
	replies map[string][]core.Post
	likes   map[string]map[string]bool

	// pages, when set, are served verbatim by cursor instead of slicing posts.
	pages map[string]core.FeedPage

	calls    map[string]int
	failures map[string][]error
	gates    map[string]*Gate
	seq      int
	now      time.Time
}

func New() *API {
	return &API{
		accounts: map[string]*account{},
		tokens:   map[string]string{},
		replies:  map[string][]core.Post{},
		likes:    map[string]map[string]bool{},
		calls:    map[string]int{},
		failures: map[string][]error{},
		gates:    map[string]*Gate{},
		now:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

// AddAccount registers a verified account.
func (f *API) AddAccount(email, password string, user core.User) {
	f.mu.Lock()
	defer f.mu.Unlock()

	user.Email = email
	f.accounts[email] = &account{password: password, user: user, verified: true}
}

// SignIn starts a server-side session for the account as if a cookie already existed.
func (f *API) SignIn(email string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	user := f.accounts[email].user
	f.viewer = &user
}

// AddPosts appends top-level posts in feed order.
func (f *API) AddPosts(posts ...core.Post) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, posts...)
}

func (f *API) AddReplies(parentID string, replies ...core.Post) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range replies {
		replies[i].ParentID = &parentID
	}
	f.replies[parentID] = append(f.replies[parentID], replies...)
}

// SetPages makes GetPosts serve the given pages keyed by cursor; "" is the first page.
func (f *API) SetPages(pages map[string]core.FeedPage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages = pages
}

// Fail queues an error returned by the next call of method.
func (f *API) Fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method] = append(f.failures[method], err)
}

// Hold makes calls of method block until the returned gate is released.
func (f *API) Hold(method string) *Gate {
	f.mu.Lock()
	defer f.mu.Unlock()

	g := &Gate{entered: make(chan struct{}, 16), release: make(chan struct{})}
	f.gates[method] = g
	return g
}

func (f *API) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *API) TopLevel() []core.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.posts)
}

func (f *API) enter(ctx context.Context, method string) error {
	f.mu.Lock()
	f.calls[method]++
	gate := f.gates[method]
	var err error
	if queued := f.failures[method]; len(queued) > 0 {
		err, f.failures[method] = queued[0], queued[1:]
	}
	f.mu.Unlock()

	if gate != nil {
		gate.entered <- struct{}{}
		select {
		case <-gate.release:
		case <-ctx.Done():
			return core.TransportError(ctx.Err())
		}
	}
	return err
}

func (f *API) Register(ctx context.Context, reg core.Registration) error {
	if err := f.enter(ctx, Register); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.accounts[reg.Email]; ok {
		return core.NewError(core.ErrConflict, 400, "Email already registered")
	}
	f.seq++
	f.accounts[reg.Email] = &account{
		password: reg.Password,
		user: core.User{
			ID:          fmt.Sprintf("u%d", f.seq),
			Email:       reg.Email,
			DisplayName: reg.DisplayName,
			Handle:      fmt.Sprintf("user%d", f.seq),
			CreatedAt:   f.now,
		},
	}
	f.tokens[fmt.Sprintf("00000000-0000-4000-8000-%012d", f.seq)] = reg.Email
	return nil
}

func (f *API) Login(ctx context.Context, email, password string) error {
	if err := f.enter(ctx, Login); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	acc, ok := f.accounts[email]
	if !ok || acc.password != password {
		return core.NewError(core.ErrAuth, 401, "Invalid credentials")
	}
	if !acc.verified {
		return core.NewError(core.ErrAuth, 401, "Please verify your email first")
	}
	user := acc.user
	f.viewer = &user
	return nil
}

func (f *API) Logout(ctx context.Context) error {
	err := f.enter(ctx, Logout)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		return err
	}
	if f.viewer == nil {
		return core.NewError(core.ErrAuth, 401, "Authentication required")
	}
	f.viewer = nil
	return nil
}

func (f *API) VerifyEmail(ctx context.Context, token string) error {
	if err := f.enter(ctx, VerifyEmail); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	email, ok := f.tokens[token]
	if !ok {
		return core.NewError(core.ErrAuth, 400, "Invalid or expired token")
	}
	f.accounts[email].verified = true
	delete(f.tokens, token)
	return nil
}

// VerificationToken returns the pending token of an account registered through Register.
func (f *API) VerificationToken(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	for token, e := range f.tokens {
		if e == email {
			return token
		}
	}
	return ""
}

func (f *API) Me(ctx context.Context) (*core.User, error) {
	if err := f.enter(ctx, Me); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.viewer == nil {
		return nil, core.NewError(core.ErrAuth, 401, "Authentication required")
	}
	user := *f.viewer
	return &user, nil
}

func (f *API) GetUser(ctx context.Context, id string) (*core.PublicUser, error) {
	if err := f.enter(ctx, GetUser); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, acc := range f.accounts {
		if acc.user.ID != id {
			continue
		}
		count := 0
		for _, p := range f.posts {
			if p.AuthoredBy(id) {
				count++
			}
		}
		return &core.PublicUser{
			ID:          id,
			DisplayName: acc.user.DisplayName,
			Handle:      acc.user.Handle,
			CreatedAt:   acc.user.CreatedAt,
			PostCount:   count,
		}, nil
	}
	return nil, core.NewError(core.ErrNotFound, 404, "User not found")
}

func (f *API) GetPosts(ctx context.Context, cursor string, limit int) (*core.FeedPage, error) {
	if err := f.enter(ctx, GetPosts); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.pages != nil {
		page, ok := f.pages[cursor]
		if !ok {
			return &core.FeedPage{Items: []core.Post{}}, nil
		}
		return &core.FeedPage{Items: f.decorate(page.Items), NextCursor: page.NextCursor}, nil
	}

	start := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil {
			return nil, core.NewError(core.ErrValidation, 400, "invalid cursor")
		}
		start = n
	}
	start = min(start, len(f.posts))
	end := min(start+limit, len(f.posts))

	page := &core.FeedPage{Items: f.decorate(f.posts[start:end])}
	if end < len(f.posts) {
		next := strconv.Itoa(end)
		page.NextCursor = &next
	}
	return page, nil
}

func (f *API) CreatePost(ctx context.Context, body, parentID string) (*core.Post, error) {
	if err := f.enter(ctx, CreatePost); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.viewer == nil {
		return nil, core.NewError(core.ErrAuth, 401, "Authentication required")
	}
	if len([]rune(body)) > 140 {
		return nil, core.NewError(core.ErrValidation, 422, "String should have at most 140 characters")
	}

	f.seq++
	post := core.Post{
		ID:        fmt.Sprintf("new-%d", f.seq),
		Body:      body,
		Author:    &core.Author{ID: f.viewer.ID, DisplayName: f.viewer.DisplayName, Handle: f.viewer.Handle},
		CreatedAt: f.now.Add(time.Duration(f.seq) * time.Minute),
	}

	if parentID == "" {
		f.posts = append([]core.Post{post}, f.posts...)
		return &post, nil
	}

	if _, ok := f.find(parentID); !ok {
		return nil, core.NewError(core.ErrNotFound, 404, "Parent post not found")
	}
	post.ParentID = &parentID
	f.replies[parentID] = append(f.replies[parentID], post)
	return &post, nil
}

func (f *API) GetPost(ctx context.Context, id string) (*core.PostDetail, error) {
	if err := f.enter(ctx, GetPost); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	post, ok := f.find(id)
	if !ok {
		return nil, core.NewError(core.ErrNotFound, 404, "Post not found")
	}
	return &core.PostDetail{
		Post:    f.decorate([]core.Post{post})[0],
		Replies: f.decorate(f.replies[id]),
	}, nil
}

func (f *API) DeletePost(ctx context.Context, id string) error {
	if err := f.enter(ctx, DeletePost); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.viewer == nil {
		return core.NewError(core.ErrAuth, 401, "Authentication required")
	}
	post, ok := f.find(id)
	if !ok {
		return core.NewError(core.ErrNotFound, 404, "Post not found")
	}
	if !post.AuthoredBy(f.viewer.ID) {
		return core.NewError(core.ErrAuth, 403, "Not authorized to delete this post")
	}

	f.posts = slices.DeleteFunc(f.posts, func(p core.Post) bool { return p.ID == id })
	for parent, replies := range f.replies {
		f.replies[parent] = slices.DeleteFunc(replies, func(p core.Post) bool { return p.ID == id })
	}
	return nil
}

func (f *API) ToggleLike(ctx context.Context, id string) (*core.LikeState, error) {
	if err := f.enter(ctx, ToggleLike); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.viewer == nil {
		return nil, core.NewError(core.ErrAuth, 401, "Authentication required")
	}
	post, ok := f.find(id)
	if !ok {
		return nil, core.NewError(core.ErrNotFound, 404, "Post not found")
	}

	liked := f.liked(post)
	if f.likes[id] == nil {
		f.likes[id] = map[string]bool{}
	}
	f.likes[id][f.viewer.ID] = !liked

	return &core.LikeState{Liked: !liked, LikeCount: f.likeCount(post)}, nil
}

// find looks a post up among top-level posts and replies.
func (f *API) find(id string) (core.Post, bool) {
	for _, p := range f.posts {
		if p.ID == id {
			return p, true
		}
	}
	for _, replies := range f.replies {
		for _, p := range replies {
			if p.ID == id {
				return p, true
			}
		}
	}
	return core.Post{}, false
}

// liked tells whether the viewer likes the post; seeded UserLiked applies until toggled.
func (f *API) liked(p core.Post) bool {
	if f.viewer == nil {
		return false
	}
	if v, ok := f.likes[p.ID][f.viewer.ID]; ok {
		return v
	}
	return p.UserLiked
}

func (f *API) likeCount(p core.Post) int {
	count := p.LikeCount
	if f.viewer != nil && p.UserLiked != f.liked(p) {
		if f.liked(p) {
			count++
		} else {
			count--
		}
	}
	return count
}

func (f *API) decorate(posts []core.Post) []core.Post {
	out := make([]core.Post, len(posts))
	for i, p := range posts {
		p.LikeCount = f.likeCount(p)
		p.UserLiked = f.liked(p)
		p.ReplyCount = max(p.ReplyCount, len(f.replies[p.ID]))
		out[i] = p
	}
	return out
}
