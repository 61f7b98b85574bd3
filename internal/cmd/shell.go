package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/urfave/cli/v3"
	"github.com/zhulik/pal"

	"journal/internal/config"
	"journal/internal/core"
	"journal/internal/journal"
	"journal/internal/view"
	"journal/pkg/async"
)

var shellCmd = &cli.Command{
	Name:  "shell",
	Usage: "Browse, post, like and reply interactively",
	Action: func(ctx context.Context, c *cli.Command) error {
		return run(ctx, c, pal.Provide[core.Command, shellRunner]())
	},
}

const helpText = `Commands:
  login <email>    sign in, the password is prompted for
  logout           sign out
  whoami           show who is signed in
  feed             reload the latest posts
  more             load the next page
  like <n|id>      like or unlike a post
  delete <n|id>    delete one of your posts
  post <text>      publish a post
  open <n|id>      show a post with its replies
  reply <text>     reply to the open post
  back             return to the feed
  profile <id>     show a public profile
  help             show this help
  quit             leave the shell
In a thread, 0 is the post itself and 1.. are its replies.`

var errQuit = errors.New("quit")

type shellRunner struct {
	Logger *slog.Logger
	Config *config.Config
	API    core.API
	Drafts core.DraftStore
}

func (r *shellRunner) Run(ctx context.Context) error {
	out := &lockedWriter{w: os.Stdout}
	p := newPrompter(os.Stdin, out)
	engine := newEngine(r.Config, r.API, r.Drafts, p, r.Logger)

	return newShell(engine, p, out, newRenderer(r.Config), r.Logger).Run(ctx)
}

type shell struct {
	engine *journal.Engine
	prompt *prompter
	out    io.Writer
	view   view.Renderer
	logger *slog.Logger

	mu    sync.Mutex
	likes []*async.JobHandle[*core.LikeState]
}

func newShell(engine *journal.Engine, p *prompter, out io.Writer, r view.Renderer, logger *slog.Logger) *shell {
	return &shell{
		engine: engine,
		prompt: p,
		out:    out,
		view:   r,
		logger: logger.With("component", "shell"),
	}
}

// Run reads commands until quit or the end of the input. Likes still in
// flight are awaited before it returns.
func (s *shell) Run(ctx context.Context) error {
	defer s.waitLikes()

	if err := s.engine.Start(ctx); err != nil {
		s.fail(err)
	}
	s.home()
	s.printf("Type 'help' for commands.\n")

	for {
		line, err := s.prompt.Line("> ")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		err = s.dispatch(ctx, strings.TrimSpace(line))
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			s.fail(err)
		}
	}
}

func (s *shell) dispatch(ctx context.Context, line string) error {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "":
		return nil
	case "help":
		s.printf("%s\n", helpText)
	case "quit", "exit":
		return errQuit
	case "login":
		return s.login(ctx, arg)
	case "logout":
		if err := s.engine.Logout(ctx); err != nil {
			return err
		}
		s.printf("Signed out.\n")
		s.home()
	case "whoami":
		if user := s.engine.Viewer(); user != nil {
			s.printf("%s @%s <%s>\n", user.DisplayName, user.Handle, user.Email)
		} else {
			s.printf("Not signed in.\n")
		}
	case "feed", "back":
		if err := s.engine.CloseThread(ctx); err != nil {
			return err
		}
		s.home()
	case "more":
		if err := s.engine.LoadMore(ctx); err != nil {
			return err
		}
		s.home()
	case "like":
		return s.like(ctx, arg)
	case "delete":
		return s.delete(ctx, arg)
	case "post":
		return s.post(ctx, arg)
	case "open":
		id, err := s.target(arg)
		if err != nil {
			return err
		}
		if _, err := s.engine.OpenThread(ctx, id); err != nil {
			return err
		}
		s.thread()
	case "reply":
		return s.reply(ctx, arg)
	case "profile":
		id, err := parseID(arg, "User not found")
		if err != nil {
			return err
		}
		user, err := s.engine.Profile(ctx, id)
		if err != nil {
			return err
		}
		s.render(func(w io.Writer) error { return s.view.Profile(w, user) })
	default:
		return core.ValidationError(fmt.Sprintf("Unknown command %q, type 'help' for the list", name))
	}
	return nil
}

func (s *shell) login(ctx context.Context, email string) error {
	if email == "" {
		return core.ValidationError("Usage: login <email>")
	}

	password, err := s.prompt.Password("Password: ")
	if err != nil {
		return err
	}

	user, err := s.engine.Login(ctx, email, password)
	if err != nil {
		return err
	}
	s.printf("Signed in as %s.\n", user.DisplayName)
	s.home()
	return nil
}

// like toggles in the background so the prompt stays responsive.
func (s *shell) like(ctx context.Context, ref string) error {
	id, err := s.target(ref)
	if err != nil {
		return err
	}

	job := async.Job(ctx, func(ctx context.Context) (*core.LikeState, error) {
		state, err := s.engine.ToggleLike(ctx, id)
		if err != nil {
			s.fail(err)
			return nil, err
		}

		verb := "Liked"
		if !state.Liked {
			verb = "Unliked"
		}
		s.printf("%s %s (%s).\n", verb, id, likes(state.LikeCount))
		return state, nil
	})

	s.mu.Lock()
	s.likes = append(lo.Filter(s.likes, func(j *async.JobHandle[*core.LikeState], _ int) bool {
		return !finished(j)
	}), job)
	s.mu.Unlock()
	return nil
}

func finished[T any](j *async.JobHandle[T]) bool {
	select {
	case <-j.Done():
		return true
	default:
		return false
	}
}

func (s *shell) waitLikes() {
	s.mu.Lock()
	jobs := s.likes
	s.likes = nil
	s.mu.Unlock()

	// Failures were already reported by the jobs.
	_ = async.WaitAll(jobs...)
}

func (s *shell) delete(ctx context.Context, ref string) error {
	id, err := s.target(ref)
	if err != nil {
		return err
	}

	deleted, err := s.engine.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		s.printf("Kept.\n")
		return nil
	}

	s.printf("Deleted.\n")
	s.current()
	return nil
}

func (s *shell) post(ctx context.Context, body string) error {
	s.engine.Composer.SetBody(body)

	if _, err := s.engine.Publish(ctx); err != nil {
		s.home()
		return err
	}
	s.home()
	return nil
}

func (s *shell) reply(ctx context.Context, body string) error {
	if draft := s.engine.ReplyDraft(); draft != nil {
		draft.SetBody(body)
	}

	_, err := s.engine.Reply(ctx)
	if s.engine.ReplyDraft() != nil {
		s.thread()
	}
	return err
}

// target resolves a position in the current listing or a post id.
func (s *shell) target(ref string) (string, error) {
	n, err := strconv.Atoi(ref)
	if err != nil {
		return parseID(ref, "Post not found")
	}

	if thread := s.engine.Thread(); thread.Post != nil {
		return entryAt(thread.Replies, thread.Post, n)
	}
	return entryAt(s.engine.Home().Entries, nil, n)
}

func entryAt(entries []journal.Entry, root *journal.Entry, n int) (string, error) {
	if n == 0 && root != nil {
		return root.ID, nil
	}
	if n < 1 || n > len(entries) {
		return "", core.NewError(core.ErrNotFound, 404, fmt.Sprintf("No post number %d here", n))
	}
	return entries[n-1].ID, nil
}

func (s *shell) current() {
	if s.engine.Thread().Post != nil {
		s.thread()
		return
	}
	s.home()
}

func (s *shell) home() {
	home := s.engine.Home()
	s.render(func(w io.Writer) error { return s.view.Home(w, home) })
}

func (s *shell) thread() {
	thread := s.engine.Thread()
	s.render(func(w io.Writer) error { return s.view.Thread(w, thread) })
}

// render buffers a whole view so background output cannot interleave with it.
func (s *shell) render(fn func(io.Writer) error) {
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		s.logger.Error("Failed to render", "error", err)
		return
	}
	if _, err := s.out.Write(buf.Bytes()); err != nil {
		s.logger.Error("Failed to write", "error", err)
	}
}

func (s *shell) printf(format string, args ...any) {
	s.render(func(w io.Writer) error {
		_, err := fmt.Fprintf(w, format, args...)
		return err
	})
}

func (s *shell) fail(err error) {
	s.printf("! %s\n", core.Describe(err))
}

func likes(n int) string {
	if n == 1 {
		return "1 like"
	}
	return strconv.Itoa(n) + " likes"
}
