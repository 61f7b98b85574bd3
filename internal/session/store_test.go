package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"journal/internal/core"
	"journal/internal/session"
	"journal/internal/testutil/fakeapi"
)

var ada = core.User{ID: "u1", DisplayName: "Ada", Handle: "ada"}

func newStore(t *testing.T) (*session.Store, *fakeapi.API) {
	t.Helper()

	api := fakeapi.New()
	api.AddAccount("ada@example.com", "correct horse", ada)
	return session.New(api, nil), api
}

func TestStore_Resolve(t *testing.T) {
	t.Parallel()

	t.Run("anonymous", func(t *testing.T) {
		t.Parallel()

		store, _ := newStore(t)
		require.True(t, store.Loading())

		_, err := store.Require()
		require.ErrorIs(t, err, core.ErrNotReady)

		require.Nil(t, store.Resolve(t.Context()))
		require.False(t, store.Loading())

		_, err = store.Require()
		require.ErrorIs(t, err, core.ErrAuth)
	})

	t.Run("existing session", func(t *testing.T) {
		t.Parallel()

		store, api := newStore(t)
		api.SignIn("ada@example.com")

		user := store.Resolve(t.Context())
		require.NotNil(t, user)
		require.Equal(t, "u1", user.ID)

		current, err := store.Require()
		require.NoError(t, err)
		require.Equal(t, "Ada", current.DisplayName)
	})

	t.Run("transport failure means absent", func(t *testing.T) {
		t.Parallel()

		store, api := newStore(t)
		api.SignIn("ada@example.com")
		api.Fail(fakeapi.Me, core.TransportError(errors.New("connection refused")))

		require.Nil(t, store.Resolve(t.Context()))
		require.False(t, store.Loading())
	})

	t.Run("concurrent calls share one request", func(t *testing.T) {
		t.Parallel()

		store, api := newStore(t)
		api.SignIn("ada@example.com")
		gate := api.Hold(fakeapi.Me)

		result := make(chan *core.User, 1)
		go func() { result <- store.Resolve(context.Background()) }()
		<-gate.Entered()

		require.True(t, store.Loading())
		select {
		case <-store.Ready():
			t.Fatal("ready before the first resolution")
		default:
		}

		cancelled, cancel := context.WithCancel(t.Context())
		cancel()
		require.Nil(t, store.Resolve(cancelled))
		require.Equal(t, 1, api.Calls(fakeapi.Me))

		gate.Release()
		require.Equal(t, "u1", (<-result).ID)
		<-store.Ready()
		require.Equal(t, 1, api.Calls(fakeapi.Me))
	})
}

func TestStore_Login(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		store, _ := newStore(t)
		require.Nil(t, store.Resolve(t.Context()))

		user, err := store.Login(t.Context(), "ada@example.com", "correct horse")
		require.NoError(t, err)
		require.Equal(t, "u1", user.ID)

		current, _ := store.Current()
		require.Equal(t, "u1", current.ID)
	})

	t.Run("wrong password leaves session unchanged", func(t *testing.T) {
		t.Parallel()

		store, _ := newStore(t)
		require.Nil(t, store.Resolve(t.Context()))

		_, err := store.Login(t.Context(), "ada@example.com", "nope")
		require.ErrorIs(t, err, core.ErrAuth)
		require.Equal(t, "Invalid credentials", core.Describe(err))

		current, resolved := store.Current()
		require.True(t, resolved)
		require.Nil(t, current)
	})
}

func TestStore_Logout(t *testing.T) {
	t.Parallel()

	t.Run("clears the user", func(t *testing.T) {
		t.Parallel()

		store, api := newStore(t)
		api.SignIn("ada@example.com")
		require.NotNil(t, store.Resolve(t.Context()))

		require.NoError(t, store.Logout(t.Context()))
		current, _ := store.Current()
		require.Nil(t, current)
		require.Nil(t, store.Resolve(t.Context()))
	})

	t.Run("expired session counts as logged out", func(t *testing.T) {
		t.Parallel()

		store, _ := newStore(t)
		require.NoError(t, store.Logout(t.Context()))
		require.False(t, store.Loading())
	})

	t.Run("failure still clears locally", func(t *testing.T) {
		t.Parallel()

		store, api := newStore(t)
		api.SignIn("ada@example.com")
		require.NotNil(t, store.Resolve(t.Context()))

		api.Fail(fakeapi.Logout, core.TransportError(errors.New("timeout")))
		require.ErrorIs(t, store.Logout(t.Context()), core.ErrTransport)

		current, _ := store.Current()
		require.Nil(t, current)
	})

	t.Run("discards a resolution started before it", func(t *testing.T) {
		t.Parallel()

		store, api := newStore(t)
		api.SignIn("ada@example.com")
		gate := api.Hold(fakeapi.Me)

		result := make(chan *core.User, 1)
		go func() { result <- store.Resolve(context.Background()) }()
		<-gate.Entered()

		// The collaborator keeps the session, so only the local reset can hide it.
		api.Fail(fakeapi.Logout, core.TransportError(errors.New("timeout")))
		require.Error(t, store.Logout(t.Context()))
		gate.Release()

		require.Nil(t, <-result)
		current, _ := store.Current()
		require.Nil(t, current)
	})
}

func TestStore_Register(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		reg     core.Registration
		kind    error
		message string
	}{
		{
			name:    "invalid fields",
			reg:     core.Registration{Email: "not-an-email", Password: "short", DisplayName: "Grace"},
			kind:    core.ErrValidation,
			message: "email must be a valid email; password must be at least 8 characters",
		},
		{
			name:    "missing display name",
			reg:     core.Registration{Email: "grace@example.com", Password: "password1"},
			kind:    core.ErrValidation,
			message: "display name is required",
		},
		{
			name:    "duplicate email",
			reg:     core.Registration{Email: "ada@example.com", Password: "password1", DisplayName: "Ada"},
			kind:    core.ErrConflict,
			message: "Email already registered",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store, _ := newStore(t)
			err := store.Register(t.Context(), tt.reg)
			require.ErrorIs(t, err, tt.kind)
			require.Equal(t, tt.message, core.Describe(err))
		})
	}

	t.Run("local failures never reach the collaborator", func(t *testing.T) {
		t.Parallel()

		store, api := newStore(t)
		require.Error(t, store.Register(t.Context(), core.Registration{Email: "x"}))
		require.Zero(t, api.Calls(fakeapi.Register))
	})
}

func TestStore_VerifyEmail(t *testing.T) {
	t.Parallel()

	store, api := newStore(t)
	ctx := t.Context()

	reg := core.Registration{Email: "grace@example.com", Password: "password1", DisplayName: "Grace"}
	require.NoError(t, store.Register(ctx, reg))

	current, _ := store.Current()
	require.Nil(t, current)

	_, err := store.Login(ctx, reg.Email, reg.Password)
	require.Equal(t, "Please verify your email first", core.Describe(err))

	err = store.VerifyEmail(ctx, "not-a-token")
	require.ErrorIs(t, err, core.ErrValidation)
	require.Zero(t, api.Calls(fakeapi.VerifyEmail))

	require.NoError(t, store.VerifyEmail(ctx, api.VerificationToken(reg.Email)))

	user, err := store.Login(ctx, reg.Email, reg.Password)
	require.NoError(t, err)
	require.Equal(t, "Grace", user.DisplayName)
}
