package tasklist

import (
	"context"
	"fmt"
	"sync"

	"github.com/idilsaglam/neontodo/internal/model"
)

type opKind int

const (
	opToggle opKind = iota
	opRemove
)

func (k opKind) String() string {
	if k == opRemove {
		return "remove"
	}
	return "toggle"
}

// Op is an optimistic change already visible in the cache. Settle sends
// it and, on failure, puts back the record exactly as it was captured.
// Each Op covers one record, so two Ops in flight never undo each other.
type Op struct {
	c    *Controller
	kind opKind
	prev model.Task
	next model.Task

	once sync.Once
}

// ID is the id of the affected task.
func (op *Op) ID() string { return op.prev.ID }

// BeginToggle flips the completion flag of id in the cache.
func (c *Controller) BeginToggle(id string) (*Op, error) {
	return c.begin(opToggle, id, func(t *model.Task) { t.Completed = !t.Completed })
}

// BeginRemove marks id as deleted in the cache. The row stays cached.
func (c *Controller) BeginRemove(id string) (*Op, error) {
	return c.begin(opRemove, id, func(t *model.Task) { t.IsDeleted = true })
}

func (c *Controller) begin(kind opKind, id string, mutate func(*model.Task)) (*Op, error) {
	if !c.sess.Authenticated() {
		return nil, ErrSignedOut
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.index(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	op := &Op{c: c, kind: kind, prev: c.tasks[i].Clone()}
	mutate(&c.tasks[i])
	op.next = c.tasks[i].Clone()
	c.logger.Debug("optimistic "+kind.String(), "id", id)
	return op, nil
}

// Settle sends the change. It may be called once.
func (op *Op) Settle(ctx context.Context) error {
	err := ErrSettled
	op.once.Do(func() {
		err = op.settle(ctx)
	})
	return err
}

func (op *Op) settle(ctx context.Context) error {
	c := op.c
	var err error
	switch op.kind {
	case opToggle:
		want := op.next.Completed
		_, err = c.api.UpdateTodo(ctx, op.ID(), model.Patch{Completed: &want})
	case opRemove:
		err = c.api.DeleteTodo(ctx, op.ID())
	}
	if err != nil {
		op.revert()
		switch op.kind {
		case opToggle:
			c.report(err, "Failed to update task status", "Network error: Could not update task", false)
		case opRemove:
			c.report(err, "Failed to delete task", "Network error: Could not delete task", false)
		}
		return fmt.Errorf("%s %s: %w", op.kind, op.ID(), err)
	}

	c.logger.Info("task "+op.kind.String(), "id", op.ID())
	switch {
	case op.kind == opRemove:
		c.note.Success("Task moved to Trash!")
	case op.next.Completed:
		c.note.Success("Task moved to Completed folder!")
	default:
		c.note.Success("Task moved back to Active tasks")
	}
	return nil
}

// revert restores the snapshot if the record is still cached.
func (op *Op) revert() {
	c := op.c
	c.mu.Lock()
	ok := c.replace(op.prev)
	c.mu.Unlock()
	c.logger.Debug("reverted "+op.kind.String(), "id", op.ID(), "restored", ok)
}
