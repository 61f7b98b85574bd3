package journalapi

import (
	"context"

	"journal/internal/core"
)

const (
	register    = "/auth/register"
	login       = "/auth/login"
	logout      = "/auth/logout"
	verifyEmail = "/auth/verify-email"
	me          = "/users/me"
)

func (c *Client) Register(ctx context.Context, reg core.Registration) error {
	res, err := c.r(ctx).
		SetBody(reg).
		Post(register)

	return asConflict(check(res, err))
}

// Login exchanges credentials for a session cookie.
func (c *Client) Login(ctx context.Context, email, password string) error {
	res, err := c.r(ctx).
		SetBody(map[string]string{
			"email":    email,
			"password": password,
		}).
		Post(login)

	return check(res, err)
}

func (c *Client) Logout(ctx context.Context) error {
	res, err := c.r(ctx).Post(logout)
	return check(res, err)
}

func (c *Client) VerifyEmail(ctx context.Context, token string) error {
	res, err := c.r(ctx).
		SetBody(map[string]string{"token": token}).
		Post(verifyEmail)

	return check(res, err)
}

// Me returns the identity behind the current session cookie.
func (c *Client) Me(ctx context.Context) (*core.User, error) {
	res, err := c.r(ctx).
		SetResult(&core.User{}).
		Get(me)
	if err := check(res, err); err != nil {
		return nil, err
	}

	return res.Result().(*core.User), nil
}
