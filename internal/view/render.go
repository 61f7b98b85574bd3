// Package view renders engine state as plain text.
package view

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/k0kubun/pp"

	"journal/internal/compose"
	"journal/internal/core"
	"journal/internal/feed"
	"journal/internal/journal"
)

const Tombstone = "[Post removed by author]"

type Renderer struct {
	// Now is the reference for relative times, time.Now when nil.
	Now func() time.Time
	// Debug dumps the raw state instead of text.
	Debug bool
}

func (r Renderer) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func (r Renderer) Home(w io.Writer, home journal.Home) error {
	if r.Debug {
		return dump(w, home)
	}

	p := &printer{w: w}

	switch {
	case home.Loading:
		p.line("Loading...")
		return p.err
	case home.Viewer != nil:
		p.line("Signed in as %s @%s", home.Viewer.DisplayName, home.Viewer.Handle)
	default:
		p.line("Not signed in. Showing the latest posts.")
	}
	p.line("")

	if home.ShowComposer {
		r.composer(p, "New post", home.Composer)
		p.line("")
	}

	if home.State == feed.StateError {
		p.line("Error: %s", core.Describe(home.Err))
	}
	if len(home.Entries) == 0 && home.State != feed.StateError {
		p.line("No posts yet.")
	}
	for i, e := range home.Entries {
		r.entry(p, i+1, e, false)
	}
	if home.CanLoadMore {
		p.line("More posts available.")
	}

	return p.err
}

func (r Renderer) Thread(w io.Writer, v journal.ThreadView) error {
	if r.Debug {
		return dump(w, v)
	}

	p := &printer{w: w}

	if v.Post == nil {
		switch {
		case v.Err != nil:
			p.line("Error: %s", core.Describe(v.Err))
		case v.Loading:
			p.line("Loading...")
		}
		return p.err
	}

	r.entry(p, 0, *v.Post, true)
	p.line("")

	if v.Err != nil {
		p.line("Error: %s", core.Describe(v.Err))
	}
	if v.ShowComposer {
		r.composer(p, "Reply", v.Composer)
		p.line("")
	}

	if len(v.Replies) == 0 {
		p.line("No replies yet.")
	}
	for i, e := range v.Replies {
		r.entry(p, i+1, e, false)
	}

	return p.err
}

func (r Renderer) Profile(w io.Writer, u *core.PublicUser) error {
	if r.Debug {
		return dump(w, u)
	}

	p := &printer{w: w}
	p.line("%s @%s", u.DisplayName, u.Handle)
	p.line("Joined %s · %s", u.CreatedAt.Format("Jan 2, 2006"), plural(u.PostCount, "post", "posts"))
	return p.err
}

func (r Renderer) entry(p *printer, n int, e journal.Entry, replies bool) {
	when := humanize.RelTime(e.CreatedAt, r.now(), "ago", "from now")

	prefix := ""
	if n > 0 {
		prefix = fmt.Sprintf("%2d. ", n)
	}
	indent := strings.Repeat(" ", len(prefix))

	if e.Removed() {
		p.line("%s%s · %s", prefix, Tombstone, when)
	} else {
		p.line("%s%s @%s · %s", prefix, e.Author.DisplayName, e.Author.Handle, when)
	}
	p.line("%s%s", indent, e.Body)

	meta := []string{plural(e.LikeCount, "like", "likes")}
	if e.UserLiked {
		meta[0] += " (liked)"
	}
	if e.Liking {
		meta[0] += " (updating)"
	}
	if replies || e.ReplyCount > 0 {
		meta = append(meta, plural(e.ReplyCount, "reply", "replies"))
	}
	if e.CanDelete {
		meta = append(meta, "yours")
	}
	p.line("%s%s", indent, strings.Join(meta, " · "))
}

func (r Renderer) composer(p *printer, label string, s compose.State) {
	switch compose.Level(s.Remaining) {
	case compose.CounterOver:
		p.line("%s: %d characters over the limit", label, -s.Remaining)
	case compose.CounterWarning:
		p.line("%s: %d characters left (!)", label, s.Remaining)
	default:
		p.line("%s: %d characters left", label, s.Remaining)
	}
	if s.Body != "" {
		p.line("  > %s", s.Body)
	}
	if s.Submitting {
		p.line("  Posting...")
	}
	if s.Message != "" {
		p.line("  ! %s", s.Message)
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return humanize.Comma(int64(n)) + " " + many
}

func dump(w io.Writer, v any) error {
	_, err := pp.Fprintln(w, v)
	return err
}

// printer keeps the first write error so rendering code stays linear.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format+"\n", args...)
}
