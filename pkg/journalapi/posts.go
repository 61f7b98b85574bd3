package journalapi

import (
	"context"
	"strconv"

	"journal/internal/core"
)

const (
	posts      = "/posts"
	post       = "/posts/{id}"
	toggleLike = "/posts/{id}/like"
)

// GetPosts returns a page of top-level posts, newest first. An empty cursor asks for the first page.
func (c *Client) GetPosts(ctx context.Context, cursor string, limit int) (*core.FeedPage, error) {
	req := c.r(ctx).
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetResult(&core.FeedPage{})

	if cursor != "" {
		req.SetQueryParam("cursor", cursor)
	}

	res, err := req.Get(posts)
	if err := check(res, err); err != nil {
		return nil, err
	}

	page := res.Result().(*core.FeedPage)
	if page.Items == nil {
		page.Items = []core.Post{}
	}
	return page, nil
}

// CreatePost creates a top-level post, or a reply when parentID is set.
func (c *Client) CreatePost(ctx context.Context, body, parentID string) (*core.Post, error) {
	type createPost struct {
		Body     string  `json:"body"`
		ParentID *string `json:"parent_id,omitempty"`
	}

	payload := createPost{Body: body}
	if parentID != "" {
		payload.ParentID = &parentID
	}

	res, err := c.r(ctx).
		SetBody(payload).
		SetResult(&core.Post{}).
		Post(posts)
	if err := check(res, err); err != nil {
		return nil, err
	}

	return res.Result().(*core.Post), nil
}

func (c *Client) GetPost(ctx context.Context, id string) (*core.PostDetail, error) {
	res, err := c.r(ctx).
		SetPathParam("id", id).
		SetResult(&core.PostDetail{}).
		Get(post)
	if err := check(res, err); err != nil {
		return nil, err
	}

	detail := res.Result().(*core.PostDetail)
	if detail.Replies == nil {
		detail.Replies = []core.Post{}
	}
	return detail, nil
}

func (c *Client) DeletePost(ctx context.Context, id string) error {
	res, err := c.r(ctx).
		SetPathParam("id", id).
		Delete(post)

	return check(res, err)
}

// ToggleLike flips the viewer's like and returns the server-confirmed state.
func (c *Client) ToggleLike(ctx context.Context, id string) (*core.LikeState, error) {
	res, err := c.r(ctx).
		SetPathParam("id", id).
		SetResult(&core.LikeState{}).
		Post(toggleLike)
	if err := check(res, err); err != nil {
		return nil, err
	}

	return res.Result().(*core.LikeState), nil
}
