package journalapi

import (
	"context"

	"journal/internal/core"
)

const (
	getUser = "/users/{id}"
)

func (c *Client) GetUser(ctx context.Context, id string) (*core.PublicUser, error) {
	res, err := c.r(ctx).
		SetPathParam("id", id).
		SetResult(&core.PublicUser{}).
		Get(getUser)
	if err := check(res, err); err != nil {
		return nil, err
	}

	return res.Result().(*core.PublicUser), nil
}
