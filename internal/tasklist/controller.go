// Package tasklist owns the client-side view of the task collection.
//
// The cache is a copy of the last server snapshot plus whatever optimistic
// edits are still in flight. Toggling and soft-deleting are optimistic: the
// cache changes first and is reverted if the server says no. Creating and
// editing wait for the server, since the record the server returns is the
// one to keep.
package tasklist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/idilsaglam/neontodo/internal/api"
	"github.com/idilsaglam/neontodo/internal/logging"
	"github.com/idilsaglam/neontodo/internal/model"
)

var (
	// ErrEmptyTitle rejects a blank title before any request is made.
	ErrEmptyTitle = errors.New("title cannot be empty")
	// ErrNotFound means the id is not in the cache.
	ErrNotFound = errors.New("task not found")
	// ErrSignedOut means there is no session to act with.
	ErrSignedOut = errors.New("not signed in")
	// ErrSettled is returned when an Op is settled twice.
	ErrSettled = errors.New("operation already settled")
)

// API is the slice of the backend the controller uses.
type API interface {
	ListTodos(ctx context.Context) ([]model.Task, error)
	CreateTodo(ctx context.Context, d model.Draft) (model.Task, error)
	UpdateTodo(ctx context.Context, id string, p model.Patch) (model.Task, error)
	DeleteTodo(ctx context.Context, id string) error
}

// Session is the part of the session context the controller needs.
type Session interface {
	Authenticated() bool
	Teardown() error
	OnTeardown(fn func())
}

// Notifier receives the status line messages.
type Notifier interface {
	Success(text string)
	Error(text string)
}

// Controller is the task list. Safe for concurrent use; requests are made
// without holding the cache lock.
type Controller struct {
	api    API
	sess   Session
	note   Notifier
	logger *log.Logger
	now    func() time.Time

	mu     sync.Mutex
	tasks  []model.Task // newest first
	loaded bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option { return func(c *Controller) { c.logger = l } }

// WithClock sets the clock used by the "today" filter.
func WithClock(now func() time.Time) Option { return func(c *Controller) { c.now = now } }

// New wires a controller. A session teardown discards the cache.
func New(backend API, sess Session, note Notifier, opts ...Option) *Controller {
	c := &Controller{api: backend, sess: sess, note: note, logger: logging.Discard(), now: time.Now}
	for _, o := range opts {
		o(c)
	}
	sess.OnTeardown(c.discard)
	return c
}

// Authenticated reports whether the session is live.
func (c *Controller) Authenticated() bool { return c.sess.Authenticated() }

// Loaded reports whether a server snapshot has been fetched since the last teardown.
func (c *Controller) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

func (c *Controller) discard() {
	c.mu.Lock()
	c.tasks, c.loaded = nil, false
	c.mu.Unlock()
	c.logger.Debug("task cache discarded")
}

// ---------------------------------------------------
// views
// ---------------------------------------------------

// List returns the tasks matching f right now.
func (c *Controller) List(f model.Filter) []model.Task {
	return c.ListAt(f, c.now())
}

// ListAt returns the tasks matching f at instant now, in cache order.
// The slice and its elements are copies.
func (c *Controller) ListAt(f model.Filter, now time.Time) []model.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Task, 0, len(c.tasks))
	for _, t := range c.tasks {
		if f.Match(t, now) {
			out = append(out, t.Clone())
		}
	}
	return out
}

// Tasks returns a copy of the whole cache.
func (c *Controller) Tasks() []model.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Task, len(c.tasks))
	for i, t := range c.tasks {
		out[i] = t.Clone()
	}
	return out
}

// Get returns the cached task with id.
func (c *Controller) Get(id string) (model.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.index(id); i >= 0 {
		return c.tasks[i].Clone(), true
	}
	return model.Task{}, false
}

// index must be called with mu held.
func (c *Controller) index(id string) int {
	for i := range c.tasks {
		if c.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// replace swaps in t if its id is still cached. Must be called with mu held.
func (c *Controller) replace(t model.Task) bool {
	if i := c.index(t.ID); i >= 0 {
		c.tasks[i] = t.Clone()
		return true
	}
	return false
}

// ---------------------------------------------------
// server round trips
// ---------------------------------------------------

// Refresh replaces the cache with the server's snapshot.
func (c *Controller) Refresh(ctx context.Context) error {
	if !c.sess.Authenticated() {
		return ErrSignedOut
	}
	tasks, err := c.api.ListTodos(ctx)
	if err != nil {
		c.report(err, "Failed to load tasks", "Could not connect to the server. Is the backend running?", false)
		return fmt.Errorf("refresh: %w", err)
	}
	snap := make([]model.Task, len(tasks))
	for i, t := range tasks {
		snap[i] = t.Clone()
	}
	c.mu.Lock()
	c.tasks, c.loaded = snap, true
	c.mu.Unlock()
	c.logger.Debug("tasks loaded", "count", len(snap))
	return nil
}

// Create sends a new task and prepends the server's record on success.
// Nothing is inserted until the server confirms.
func (c *Controller) Create(ctx context.Context, title, description string) (model.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Task{}, ErrEmptyTitle
	}
	if !c.sess.Authenticated() {
		return model.Task{}, ErrSignedOut
	}
	t, err := c.api.CreateTodo(ctx, model.Draft{Title: title, Description: strings.TrimSpace(description)})
	if err != nil {
		c.report(err, "Failed to add task", "Network error: Could not add task.", true)
		return model.Task{}, fmt.Errorf("create: %w", err)
	}
	c.mu.Lock()
	c.tasks = append([]model.Task{t.Clone()}, c.tasks...)
	c.mu.Unlock()
	c.logger.Info("task created", "id", t.ID)
	c.note.Success("Task added successfully!")
	return t, nil
}

// Edit updates title and description. The cache changes only after the
// server answers; on failure the caller keeps its edit state and may retry.
func (c *Controller) Edit(ctx context.Context, id, title, description string) (model.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Task{}, ErrEmptyTitle
	}
	if !c.sess.Authenticated() {
		return model.Task{}, ErrSignedOut
	}
	if _, ok := c.Get(id); !ok {
		return model.Task{}, ErrNotFound
	}
	description = strings.TrimSpace(description)
	t, err := c.api.UpdateTodo(ctx, id, model.Patch{Title: &title, Description: &description})
	if err != nil {
		c.report(err, "Failed to save changes", "Network error: Could not save changes", false)
		return model.Task{}, fmt.Errorf("edit: %w", err)
	}
	c.mu.Lock()
	c.replace(t)
	c.mu.Unlock()
	c.logger.Info("task edited", "id", id)
	c.note.Success("Task updated successfully!")
	return t, nil
}

// Toggle flips completion optimistically and reverts on failure.
func (c *Controller) Toggle(ctx context.Context, id string) error {
	op, err := c.BeginToggle(id)
	if err != nil {
		return err
	}
	return op.Settle(ctx)
}

// Remove soft-deletes optimistically and reverts on failure.
func (c *Controller) Remove(ctx context.Context, id string) error {
	op, err := c.BeginRemove(id)
	if err != nil {
		return err
	}
	return op.Settle(ctx)
}

// ApplyRemote folds in a record the server has already changed, for
// example through the chat endpoint. No request is made. It reports
// whether the cache changed.
func (c *Controller) ApplyRemote(intent model.Intent, t model.Task) bool {
	if t.ID == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch intent.Normalize() {
	case model.IntentCreate:
		if !c.replace(t) {
			c.tasks = append([]model.Task{t.Clone()}, c.tasks...)
		}
		return true
	case model.IntentUpdate:
		return c.replace(t)
	case model.IntentDelete:
		t.IsDeleted = true
		return c.replace(t)
	}
	return false
}

// report turns a failed request into a status message. A 401 also ends
// the session, which discards the cache.
func (c *Controller) report(err error, failed, network string, useDetail bool) {
	msg := failed
	switch {
	case api.IsTransport(err):
		msg = network
	case useDetail:
		if se, ok := api.AsStatus(err); ok && se.Detail != "" {
			msg = se.Detail
		}
	}
	c.logger.Warn(failed, "err", err)
	c.note.Error(msg)
	if errors.Is(err, api.ErrUnauthorized) {
		if terr := c.sess.Teardown(); terr != nil {
			c.logger.Error("session teardown", "err", terr)
		}
	}
}
