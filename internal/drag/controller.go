package drag

import (
	"context"
	"errors"
	"fmt"

	"taskboard/internal/models/task"
)

var ErrUnknownTarget = errors.New("unknown drop target")

// Target is a list a card can be dropped on.
type Target string

const (
	TargetNotStarted Target = "not-started"
	TargetInProgress Target = "in-progress"
)

// Status maps a drop target to the status a dropped task moves to.
func (t Target) Status() (task.Status, bool) {
	switch t {
	case TargetNotStarted:
		return task.StatusNotStarted, true
	case TargetInProgress:
		return task.StatusInProgress, true
	default:
		return "", false
	}
}

// StatusSetter applies a status transition to a task.
type StatusSetter func(ctx context.Context, id int64, status task.Status) error

// Controller tracks the single task currently being dragged. It holds no
// lock of its own; the owner serializes calls.
type Controller struct {
	setStatus StatusSetter
	dragging  int64
	active    bool
}

func NewController(setStatus StatusSetter) *Controller {
	return &Controller{setStatus: setStatus}
}

func (c *Controller) Start(id int64) {
	c.dragging = id
	c.active = true
}

// End clears the dragged task whatever the drop outcome was.
func (c *Controller) End() {
	c.dragging = 0
	c.active = false
}

func (c *Controller) Current() (int64, bool) {
	return c.dragging, c.active
}

// Drop moves the dragged task to the status of target and clears the
// drag. Without a dragged task it does nothing.
func (c *Controller) Drop(ctx context.Context, target Target) error {
	status, ok := target.Status()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTarget, target)
	}
	id, active := c.Current()
	if !active {
		return nil
	}
	c.End()
	return c.setStatus(ctx, id, status)
}
