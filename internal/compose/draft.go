package compose

import (
	"context"
	"sync"

	"journal/internal/core"
)

// Draft is the input state of a composer: the body being typed,
// the inline message and whether a submission is in flight.
type Draft struct {
	mu sync.Mutex

	parentID   string
	body       string
	message    string
	submitting bool
}

// State is a point-in-time copy of a draft for rendering.
type State struct {
	Body       string
	Remaining  int
	Level      CounterLevel
	CanSubmit  bool
	Submitting bool
	Message    string
}

// NewDraft creates an empty top-level composer, or a reply composer when parentID is set.
func NewDraft(parentID string) *Draft {
	return &Draft{parentID: parentID}
}

func (d *Draft) Kind() Kind {
	if d.parentID != "" {
		return KindReply
	}
	return KindPost
}

func (d *Draft) ParentID() string {
	return d.parentID
}

// Key identifies the draft in a DraftStore.
func (d *Draft) Key() string {
	if d.parentID == "" {
		return "draft.root"
	}
	return "draft." + d.parentID
}

func (d *Draft) SetBody(body string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.body = body
}

func (d *Draft) Body() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.body
}

func (d *Draft) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()

	remaining := Remaining(d.body)
	return State{
		Body:       d.body,
		Remaining:  remaining,
		Level:      Level(remaining),
		CanSubmit:  !d.submitting && Validate(d.Kind(), d.body) == nil,
		Submitting: d.submitting,
		Message:    d.message,
	}
}

// Begin validates the body and marks the draft as submitting.
// A validation failure is also kept as the inline message.
func (d *Draft) Begin() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.submitting {
		return "", core.ErrBusy
	}
	if err := Validate(d.Kind(), d.body); err != nil {
		d.message = core.Describe(err)
		return "", err
	}

	d.message = ""
	d.submitting = true
	return d.body, nil
}

// Fail ends a submission and keeps the body so the user does not lose it.
func (d *Draft) Fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.submitting = false
	d.message = core.Describe(err)
}

// Succeed ends a submission and clears the composer.
func (d *Draft) Succeed() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.submitting = false
	d.body = ""
	d.message = ""
}

// MemoryStore is a process-local DraftStore.
type MemoryStore struct {
	mu     sync.Mutex
	drafts map[string]string
}

func (s *MemoryStore) Load(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drafts[key], nil
}

func (s *MemoryStore) Save(_ context.Context, key, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.drafts == nil {
		s.drafts = map[string]string{}
	}
	s.drafts[key] = body
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, key)
	return nil
}
