package inmemory

import (
	"context"
	"sync"
	"taskboard/internal/logger"
	"taskboard/internal/models/task"
	repo "taskboard/internal/repository"
	"time"

	"go.uber.org/zap"
)

// TaskStorage keeps tasks in insertion order. Order never changes on edit.
type TaskStorage struct {
	storage  map[int64]*task.Task
	ids      []int64
	mtx      *sync.RWMutex
	nextID   func() int64
	lastID   int64
	onDelete func(id int64)
}

type Option func(*TaskStorage)

// WithIDSource replaces the millisecond clock used to mint ids.
func WithIDSource(next func() int64) Option {
	return func(s *TaskStorage) {
		s.nextID = next
	}
}

// WithDeleteHook registers fn to run before a task is removed.
func WithDeleteHook(fn func(id int64)) Option {
	return func(s *TaskStorage) {
		s.onDelete = fn
	}
}

func NewTaskStorage(opts ...Option) *TaskStorage {
	s := &TaskStorage{
		storage: make(map[int64]*task.Task),
		ids:     []int64{},
		mtx:     &sync.RWMutex{},
		nextID:  func() int64 { return time.Now().UnixMilli() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the contents with tasks, keeping their order. Later
// duplicates of an id are dropped.
func (s *TaskStorage) Load(ctx context.Context, tasks []task.Task) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.storage = make(map[int64]*task.Task, len(tasks))
	s.ids = make([]int64, 0, len(tasks))
	s.lastID = 0

	for _, t := range tasks {
		if _, dup := s.storage[t.ID]; dup {
			logger.Warn("Repository: duplicate task id dropped on load", zap.Int64("task_id", t.ID))
			continue
		}
		stored := t.Clone()
		s.storage[t.ID] = &stored
		s.ids = append(s.ids, t.ID)
		if t.ID > s.lastID {
			s.lastID = t.ID
		}
	}
}

func (s *TaskStorage) Create(ctx context.Context, name, due string, priority task.Priority) (task.Task, error) {
	name, ok := task.NormalizeName(name)
	if !ok {
		return task.Task{}, repo.ErrEmptyName
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	created := &task.Task{
		ID:       s.mintID(),
		Name:     name,
		Due:      due,
		Priority: priority,
		Status:   task.StatusNotStarted,
	}
	s.storage[created.ID] = created
	s.ids = append(s.ids, created.ID)

	return created.Clone(), nil
}

// mintID must be called with the write lock held.
func (s *TaskStorage) mintID() int64 {
	id := s.nextID()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	for {
		if _, taken := s.storage[id]; !taken {
			break
		}
		id++
	}
	s.lastID = id
	return id
}

func (s *TaskStorage) Find(ctx context.Context, id int64) (task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	found, ok := s.storage[id]
	if !ok {
		return task.Task{}, repo.ErrNotFound
	}
	return found.Clone(), nil
}

// Update applies options to the task with id. A missing id is reported
// through the bool and leaves the storage untouched.
func (s *TaskStorage) Update(ctx context.Context, id int64, options ...task.TaskOption) (task.Task, bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existing, ok := s.storage[id]
	if !ok {
		return task.Task{}, false
	}
	task.Apply(existing, options...)
	return existing.Clone(), true
}

// Delete removes the task and reports whether it existed. The delete
// hook runs first, even for unknown ids.
func (s *TaskStorage) Delete(ctx context.Context, id int64) bool {
	if s.onDelete != nil {
		s.onDelete(id)
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.storage[id]; !ok {
		return false
	}
	delete(s.storage, id)
	for ind, val := range s.ids {
		if val == id {
			s.ids = append(s.ids[:ind], s.ids[ind+1:]...)
			break
		}
	}
	return true
}

func (s *TaskStorage) List(ctx context.Context) []task.Task {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := make([]task.Task, 0, len(s.ids))
	for _, id := range s.ids {
		res = append(res, s.storage[id].Clone())
	}
	return res
}

func (s *TaskStorage) Len() int {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return len(s.ids)
}
