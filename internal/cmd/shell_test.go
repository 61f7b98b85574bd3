package cmd

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"journal/internal/config"
	"journal/internal/core"
	"journal/internal/journal"
	"journal/internal/testutil/fakeapi"
	"journal/internal/view"
)

var ada = core.User{ID: "u1", Email: "ada@example.com", DisplayName: "Ada", Handle: "ada"}

func runShell(t *testing.T, api *fakeapi.API, script ...string) string {
	t.Helper()

	var out bytes.Buffer
	w := &lockedWriter{w: &out}
	p := newPrompter(strings.NewReader(strings.Join(script, "\n")+"\n"), w)
	engine := newEngine(&config.Config{PageSize: 10}, api, nil, p, slog.Default())
	r := view.Renderer{Now: func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }}

	require.NoError(t, newShell(engine, p, w, r, slog.Default()).Run(t.Context()))
	return out.String()
}

func newAPI() *fakeapi.API {
	api := fakeapi.New()
	api.AddAccount("ada@example.com", "correct horse", ada)
	api.AddPosts(core.Post{
		ID:     "p1",
		Body:   "Grateful for sunshine",
		Author: &core.Author{ID: ada.ID, DisplayName: ada.DisplayName, Handle: ada.Handle},
	})
	return api
}

func TestShell_Session(t *testing.T) {
	t.Parallel()

	api := newAPI()
	out := runShell(t, api,
		"whoami",
		"login ada@example.com",
		"correct horse",
		"post Grateful for tests",
		"like 2",
		"delete 1",
		"n",
		"delete 1",
		"y",
		"open 1",
		"reply Nice one",
		"back",
		"whoami",
		"logout",
		"bogus",
		"quit",
	)

	require.Contains(t, out, "Not signed in.")
	require.Contains(t, out, "Signed in as Ada.")
	require.Contains(t, out, "Liked p1 (1 like).")
	require.Contains(t, out, "Kept.")
	require.Contains(t, out, "Deleted.")
	require.Contains(t, out, "Nice one")
	require.Contains(t, out, "Ada @ada <ada@example.com>")
	require.Contains(t, out, "Signed out.")
	require.Contains(t, out, `! Unknown command "bogus"`)

	require.Equal(t, 1, api.Calls(fakeapi.ToggleLike))
	require.Equal(t, 2, api.Calls(fakeapi.CreatePost))
	require.Equal(t, 1, api.Calls(fakeapi.DeletePost))
	require.Equal(t, []string{"p1"}, ids(api.TopLevel()))
}

func TestShell_Anonymous(t *testing.T) {
	t.Parallel()

	api := newAPI()
	out := runShell(t, api, "like 1", "post hello", "open 7", "profile nope")

	require.Contains(t, out, "! Please sign in")
	require.Contains(t, out, "! No post number 7 here")
	require.Contains(t, out, "! User not found")
	require.Zero(t, api.Calls(fakeapi.ToggleLike))
	require.Zero(t, api.Calls(fakeapi.CreatePost))
}

func TestShell_ForgetsFinishedLikes(t *testing.T) {
	t.Parallel()

	api := newAPI()
	api.SignIn("ada@example.com")

	p := newPrompter(strings.NewReader(""), io.Discard)
	engine := newEngine(&config.Config{PageSize: 10}, api, nil, p, slog.Default())
	sh := newShell(engine, p, io.Discard, view.Renderer{}, slog.Default())
	require.NoError(t, engine.Start(t.Context()))

	for range 3 {
		require.NoError(t, sh.like(t.Context(), "1"))
		_, err := sh.likes[len(sh.likes)-1].Wait()
		require.NoError(t, err)
	}

	require.Len(t, sh.likes, 1)
	require.Equal(t, 3, api.Calls(fakeapi.ToggleLike))
}

func TestEntryAt(t *testing.T) {
	t.Parallel()

	entries := []journal.Entry{{Post: core.Post{ID: "a"}}, {Post: core.Post{ID: "b"}}}
	root := &journal.Entry{Post: core.Post{ID: "root"}}

	id, err := entryAt(entries, nil, 2)
	require.NoError(t, err)
	require.Equal(t, "b", id)

	id, err = entryAt(entries, root, 0)
	require.NoError(t, err)
	require.Equal(t, "root", id)

	_, err = entryAt(entries, nil, 0)
	require.ErrorIs(t, err, core.ErrNotFound)
	_, err = entryAt(entries, root, 3)
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestParseID(t *testing.T) {
	t.Parallel()

	id, err := parseID("0B7F6F3E-9F5C-4A59-8D0A-6A1F2D3C4E5F", "Post not found")
	require.NoError(t, err)
	require.Equal(t, "0b7f6f3e-9f5c-4a59-8d0a-6a1f2d3c4e5f", id)

	_, err = parseID("42", "Post not found")
	require.ErrorIs(t, err, core.ErrNotFound)
	require.Equal(t, "Post not found", core.Describe(err))
}

func ids(posts []core.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}
