package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"taskboard/internal/drag"
	"taskboard/internal/logger"
	"taskboard/internal/models/task"
	repo "taskboard/internal/repository"
	"taskboard/internal/repository/task/inmemory"
	"taskboard/internal/store"
	"taskboard/internal/timer"
	"taskboard/internal/view"
	"time"

	"go.uber.org/zap"
)

type Deps struct {
	Store    store.Store
	Renderer Renderer
	Notifier Notifier

	// Key is the store key of the collection; store.DefaultKey when empty.
	Key string
	// Scheduler drives the countdowns; a TickerScheduler when nil.
	Scheduler timer.Scheduler
	// TickInterval defaults to one second.
	TickInterval time.Duration
	// DefaultSeconds is the countdown given on entering in-progress.
	DefaultSeconds int
	// IDSource mints task ids; the millisecond clock when nil.
	IDSource func() int64
}

// Board owns the task collection, the timers and the drag state of one
// board. A single mutex serializes every entry point and every tick.
type Board struct {
	mu             sync.Mutex
	repo           *inmemory.TaskStorage
	timers         *timer.Coordinator
	drag           *drag.Controller
	store          store.Store
	key            string
	renderer       Renderer
	notifier       Notifier
	defaultSeconds int
}

func NewBoard(deps Deps) *Board {
	b := &Board{
		store:          deps.Store,
		key:            deps.Key,
		renderer:       deps.Renderer,
		notifier:       deps.Notifier,
		defaultSeconds: deps.DefaultSeconds,
	}
	if b.key == "" {
		b.key = store.DefaultKey
	}
	if b.renderer == nil {
		b.renderer = nopRenderer{}
	}
	if b.notifier == nil {
		b.notifier = nopNotifier{}
	}
	if b.defaultSeconds <= 0 {
		b.defaultSeconds = task.DefaultRemainingSeconds
	}

	b.timers = timer.NewCoordinator(deps.Scheduler, deps.TickInterval, &b.mu, b.tick)
	b.drag = drag.NewController(b.setStatus)

	opts := []inmemory.Option{inmemory.WithDeleteHook(b.timers.Cancel)}
	if deps.IDSource != nil {
		opts = append(opts, inmemory.WithIDSource(deps.IDSource))
	}
	b.repo = inmemory.NewTaskStorage(opts...)
	return b
}

// Open builds a board and restores the collection saved in deps.Store.
// Every restored in-progress task gets its countdown running again.
func Open(ctx context.Context, deps Deps) (*Board, error) {
	b := NewBoard(deps)
	if err := b.restore(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Board) restore(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	tasks, err := b.load(ctx)
	if err != nil {
		return err
	}

	changed := false
	for i := range tasks {
		if b.normalize(&tasks[i]) {
			changed = true
		}
	}
	b.repo.Load(ctx, tasks)

	if changed {
		if err := b.persist(ctx); err != nil {
			return err
		}
	}

	// no countdown runs until the restored board is known to be saved
	for _, t := range b.repo.List(ctx) {
		if t.Status == task.StatusInProgress {
			b.timers.Start(t.ID)
		}
	}

	logger.Info("Board: restored",
		zap.Int("tasks", b.repo.Len()),
		zap.Int("timers", b.timers.Len()))
	b.render(ctx)
	return nil
}

func (b *Board) load(ctx context.Context) ([]task.Task, error) {
	if b.store == nil {
		return []task.Task{}, nil
	}
	blob, err := b.store.Get(ctx, b.key)
	if errors.Is(err, store.ErrAbsent) {
		return []task.Task{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load board: %w", err)
	}
	tasks, err := task.UnmarshalList(blob)
	if err != nil {
		return nil, fmt.Errorf("load board: %w", err)
	}
	return tasks, nil
}

// normalize makes a stored task satisfy the remaining-time rule and
// reports whether it had to change anything.
func (b *Board) normalize(t *task.Task) bool {
	changed := false
	if !t.Priority.IsValid() {
		t.Priority = task.PriorityMedium
		changed = true
	}
	if !t.Status.IsValid() {
		t.Status = task.StatusNotStarted
		changed = true
	}
	if t.Status == task.StatusInProgress && !t.HasRemaining() {
		task.Apply(t, task.WithRemaining(b.defaultSeconds))
		changed = true
	}
	if t.Status != task.StatusInProgress && t.HasRemaining() {
		task.Apply(t, task.WithoutRemaining())
		changed = true
	}
	return changed
}

// Close stops every countdown.
func (b *Board) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.timers.CancelAll()
}

func (b *Board) Create(ctx context.Context, name, due string, priority task.Priority) (task.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if priority == "" {
		priority = task.PriorityMedium
	}
	if !priority.IsValid() {
		logger.Warn("Board: invalid priority on create", zap.String("priority", string(priority)))
		return task.Task{}, NewValidationError("priority", "must be one of high, medium, low")
	}

	created, err := b.repo.Create(ctx, name, due, priority)
	if err != nil {
		if errors.Is(err, repo.ErrEmptyName) {
			logger.Warn("Board: empty task name rejected")
			return task.Task{}, NewValidationError("name", "must not be empty")
		}
		return task.Task{}, err
	}

	logger.Debug("Board: task created", zap.Int64("task_id", created.ID))
	err = b.persist(ctx)
	b.render(ctx)
	return created, err
}

func (b *Board) EditName(ctx context.Context, id int64, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	name, ok := task.NormalizeName(name)
	if !ok {
		logger.Warn("Board: empty task name rejected", zap.Int64("task_id", id))
		return NewValidationError("name", "must not be empty")
	}
	if _, ok := b.repo.Update(ctx, id, task.WithName(name)); !ok {
		logStale("edit name", id)
		return nil
	}

	err := b.persist(ctx)
	b.render(ctx)
	return err
}

// SetPriority changes the priority only; it does not redraw the board.
func (b *Board) SetPriority(ctx context.Context, id int64, priority task.Priority) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !priority.IsValid() {
		logger.Warn("Board: invalid priority", zap.Int64("task_id", id), zap.String("priority", string(priority)))
		return NewValidationError("priority", "must be one of high, medium, low")
	}
	if _, ok := b.repo.Update(ctx, id, task.WithPriority(priority)); !ok {
		logStale("set priority", id)
		return nil
	}
	return b.persist(ctx)
}

// SetStatus moves a task to any status. Entering in-progress starts (or
// restarts) its countdown; leaving it stops the countdown and drops the
// remaining time.
func (b *Board) SetStatus(ctx context.Context, id int64, status task.Status) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.setStatus(ctx, id, status)
}

// setStatus must be called with b.mu held.
func (b *Board) setStatus(ctx context.Context, id int64, status task.Status) error {
	if !status.IsValid() {
		logger.Warn("Board: invalid status", zap.Int64("task_id", id), zap.String("status", string(status)))
		return NewValidationError("status", "must be one of not-started, in-progress, done")
	}

	current, err := b.repo.Find(ctx, id)
	if err != nil {
		logStale("set status", id)
		return nil
	}

	if status == task.StatusInProgress {
		opts := []task.TaskOption{task.WithStatus(status)}
		if current.Remaining() <= 0 {
			opts = append(opts, task.WithRemaining(b.defaultSeconds))
		}
		b.repo.Update(ctx, id, opts...)
		b.timers.Start(id)
	} else {
		b.timers.Cancel(id)
		b.repo.Update(ctx, id, task.WithStatus(status), task.WithoutRemaining())
	}

	logger.Debug("Board: status changed",
		zap.Int64("task_id", id),
		zap.String("from", string(current.Status)),
		zap.String("to", string(status)))

	err = b.persist(ctx)
	b.render(ctx)
	return err
}

// Delete removes a task. Its countdown is cancelled before the task goes.
func (b *Board) Delete(ctx context.Context, id int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.repo.Delete(ctx, id) {
		logStale("delete", id)
		return nil
	}
	logger.Debug("Board: task deleted", zap.Int64("task_id", id))

	err := b.persist(ctx)
	b.render(ctx)
	return err
}

func (b *Board) DragStart(id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drag.Start(id)
}

func (b *Board) DragEnd() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drag.End()
}

// Drop moves the dragged task to the list named by target.
func (b *Board) Drop(ctx context.Context, target drag.Target) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	err := b.drag.Drop(ctx, target)
	if errors.Is(err, drag.ErrUnknownTarget) {
		return NewValidationError("target", "must be not-started or in-progress")
	}
	return err
}

func (b *Board) Find(ctx context.Context, id int64) (task.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, err := b.repo.Find(ctx, id)
	if err != nil {
		return task.Task{}, NewNotFound("task", id)
	}
	return t, nil
}

func (b *Board) Tasks(ctx context.Context) []task.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.repo.List(ctx)
}

func (b *Board) View(ctx context.Context) view.BoardView {
	return view.Build(b.Tasks(ctx))
}

// HealthCheck reports whether the backing store is reachable. Stores
// without a health check are always healthy.
func (b *Board) HealthCheck(ctx context.Context) error {
	hc, ok := b.store.(store.HealthChecker)
	if !ok {
		return nil
	}
	return hc.HealthCheck(ctx)
}

// ActiveTimers returns the ids that have a running countdown.
func (b *Board) ActiveTimers() []int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.timers.IDs()
}

// tick advances one countdown. The coordinator calls it with b.mu held.
func (b *Board) tick(id int64) {
	ctx := context.Background()

	current, err := b.repo.Find(ctx, id)
	if err != nil || current.Status != task.StatusInProgress {
		// deletes and status changes cancel first, so this is a bug
		logger.Error("Board: tick for task without countdown", err, zap.Int64("task_id", id))
		b.timers.Cancel(id)
		return
	}

	remaining := current.Remaining()
	if remaining > 0 {
		remaining--
		updated, _ := b.repo.Update(ctx, id, task.WithRemaining(remaining))
		if remaining > 0 {
			if err := b.persist(ctx); err != nil {
				logger.Error("Board: persist after tick failed", err, zap.Int64("task_id", id))
			}
			b.renderer.TimerUpdated(updated)
			return
		}
	}

	b.expire(ctx, current)
}

func (b *Board) expire(ctx context.Context, t task.Task) {
	b.timers.Cancel(t.ID)
	b.repo.Update(ctx, t.ID, task.WithStatus(task.StatusDone), task.WithoutRemaining())

	if err := b.persist(ctx); err != nil {
		logger.Error("Board: persist after expiry failed", err, zap.Int64("task_id", t.ID))
	}
	b.render(ctx)

	logger.Info("Board: countdown finished", zap.Int64("task_id", t.ID), zap.String("name", t.Name))
	b.notifier.Expired(t.Name)
}

// persist writes the whole collection. It must be called with b.mu held.
func (b *Board) persist(ctx context.Context) error {
	if b.store == nil {
		return nil
	}
	blob, err := task.MarshalList(b.repo.List(ctx))
	if err != nil {
		return err
	}
	if err := b.store.Set(ctx, b.key, blob); err != nil {
		logger.Error("Board: persist failed", err)
		return fmt.Errorf("persist board: %w", err)
	}
	return nil
}

func (b *Board) render(ctx context.Context) {
	b.renderer.Render(b.repo.List(ctx))
}

func logStale(op string, id int64) {
	logger.Debug("Board: stale task id ignored", zap.String("op", op), zap.Int64("task_id", id))
}
