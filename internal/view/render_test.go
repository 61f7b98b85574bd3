package view_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"journal/internal/compose"
	"journal/internal/core"
	"journal/internal/feed"
	"journal/internal/journal"
	"journal/internal/view"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

var (
	ada   = &core.Author{ID: "u1", DisplayName: "Ada", Handle: "ada"}
	grace = &core.Author{ID: "u2", DisplayName: "Grace", Handle: "grace"}
)

func renderer() view.Renderer {
	return view.Renderer{Now: func() time.Time { return now }}
}

func assertGolden(t *testing.T, name string, got []byte) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, got)
}

func TestRenderer_Home(t *testing.T) {
	t.Parallel()

	draft := compose.NewDraft("")
	draft.SetBody(strings.Repeat("grateful ", 14) + "today")
	draft.Fail(core.NewError(core.ErrValidation, 400, "Post contains negative content"))

	tests := []struct {
		name string
		home journal.Home
	}{
		{
			name: "home_loading",
			home: journal.Home{Loading: true, State: feed.StateLoading},
		},
		{
			name: "home_anonymous",
			home: journal.Home{
				State: feed.StateLoaded,
				Entries: []journal.Entry{
					{Post: core.Post{ID: "a", Body: "Grateful for my morning coffee", Author: ada, LikeCount: 3, ReplyCount: 1, CreatedAt: now.Add(-2 * time.Hour)}},
					{Post: core.Post{ID: "b", Body: "Sunset walk with the dog", CreatedAt: now.Add(-72 * time.Hour)}},
				},
			},
		},
		{
			name: "home_signed_in",
			home: journal.Home{
				Viewer:       &core.User{ID: "u1", DisplayName: "Ada", Handle: "ada"},
				State:        feed.StateLoaded,
				ShowComposer: true,
				Composer:     draft.State(),
				CanLoadMore:  true,
				Entries: []journal.Entry{
					{
						Post:      core.Post{ID: "c", Body: "Finished my first 5k", Author: ada, LikeCount: 1, UserLiked: true, CreatedAt: now.Add(-5 * time.Minute)},
						CanLike:   true,
						CanDelete: true,
					},
					{
						Post:   core.Post{ID: "d", Body: "Planted tomatoes", Author: grace, LikeCount: 1234, CreatedAt: now.Add(-90 * time.Second)},
						Liking: true,
					},
				},
			},
		},
		{
			name: "home_error",
			home: journal.Home{State: feed.StateError, Err: core.TransportError(errors.New("dial tcp: connection refused"))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			require.NoError(t, renderer().Home(&buf, tt.home))
			assertGolden(t, tt.name, buf.Bytes())
		})
	}
}

func TestRenderer_Thread(t *testing.T) {
	t.Parallel()

	draft := compose.NewDraft("d")
	draft.SetBody(" ")
	_, err := draft.Begin()
	require.Error(t, err)
	draft.SetBody("")

	v := journal.ThreadView{
		Viewer: &core.User{ID: "u1", DisplayName: "Ada", Handle: "ada"},
		Post: &journal.Entry{
			Post:    core.Post{ID: "d", Body: "Planted tomatoes", Author: grace, LikeCount: 2, ReplyCount: 1, CreatedAt: now.Add(-2 * time.Hour)},
			CanLike: true,
		},
		Replies: []journal.Entry{{
			Post:      core.Post{ID: "r", Body: "Congrats!", Author: ada, ParentID: ptr("d"), CreatedAt: now.Add(-time.Minute)},
			CanLike:   true,
			CanDelete: true,
		}},
		ShowComposer: true,
		Composer:     draft.State(),
	}

	var buf bytes.Buffer
	require.NoError(t, renderer().Thread(&buf, v))
	assertGolden(t, "thread", buf.Bytes())

	buf.Reset()
	require.NoError(t, renderer().Thread(&buf, journal.ThreadView{Err: core.NewError(core.ErrNotFound, 404, "Post not found")}))
	require.Equal(t, "Error: Post not found\n", buf.String())
}

func TestRenderer_Profile(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := renderer().Profile(&buf, &core.PublicUser{ID: "u2", DisplayName: "Grace", Handle: "grace", CreatedAt: now, PostCount: 12})
	require.NoError(t, err)
	assertGolden(t, "profile", buf.Bytes())
}

func TestRenderer_Debug(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	r := view.Renderer{Debug: true}
	require.NoError(t, r.Profile(&buf, &core.PublicUser{DisplayName: "Grace"}))
	require.Contains(t, buf.String(), "Grace")
}

func ptr(s string) *string {
	return &s
}
