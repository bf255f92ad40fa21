package service_test

import (
	"context"
	"errors"
	"math/rand"
	"taskboard/internal/drag"
	"taskboard/internal/models/task"
	"taskboard/internal/service"
	"taskboard/internal/store"
	"taskboard/internal/store/memory"
	"taskboard/internal/timer/timertest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) Render(tasks []task.Task) {
	m.Called(tasks)
}

func (m *MockRenderer) TimerUpdated(t task.Task) {
	m.Called(t)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Expired(name string) {
	m.Called(name)
}

var (
	_ service.Renderer = (*MockRenderer)(nil)
	_ service.Notifier = (*MockNotifier)(nil)
)

type fixture struct {
	board    *service.Board
	sched    *timertest.Scheduler
	store    *memory.Store
	renderer *MockRenderer
	notifier *MockNotifier
}

func counter(start int64) func() int64 {
	next := start
	return func() int64 {
		next++
		return next
	}
}

func newFixture(t *testing.T, st *memory.Store) *fixture {
	t.Helper()
	if st == nil {
		st = memory.New()
	}
	f := &fixture{
		sched:    timertest.NewScheduler(),
		store:    st,
		renderer: new(MockRenderer),
		notifier: new(MockNotifier),
	}
	f.renderer.On("Render", mock.Anything).Return().Maybe()
	f.renderer.On("TimerUpdated", mock.Anything).Return().Maybe()
	f.notifier.On("Expired", mock.Anything).Return().Maybe()

	board, err := service.Open(context.Background(), service.Deps{
		Store:     f.store,
		Renderer:  f.renderer,
		Notifier:  f.notifier,
		Scheduler: f.sched,
		IDSource:  counter(1000),
	})
	require.NoError(t, err)
	t.Cleanup(board.Close)
	f.board = board
	return f
}

func callCount(m *mock.Mock, method string) int {
	n := 0
	for _, c := range m.Calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (f *fixture) mustFind(t *testing.T, id int64) task.Task {
	t.Helper()
	found, err := f.board.Find(context.Background(), id)
	require.NoError(t, err)
	return found
}

func (f *fixture) stored(t *testing.T) []task.Task {
	t.Helper()
	blob, err := f.store.Get(context.Background(), store.DefaultKey)
	require.NoError(t, err)
	tasks, err := task.UnmarshalList(blob)
	require.NoError(t, err)
	return tasks
}

func TestBoard_Create(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	rendersBefore := callCount(&f.renderer.Mock, "Render")

	created, err := f.board.Create(ctx, "Write report", "", task.PriorityMedium)
	require.NoError(t, err)

	assert.Equal(t, "Write report", created.Name)
	assert.Equal(t, task.StatusNotStarted, created.Status)
	assert.False(t, created.HasRemaining())
	assert.Equal(t, 0, f.sched.Live())

	assert.Equal(t, []task.Task{created}, f.stored(t))
	assert.Equal(t, rendersBefore+1, callCount(&f.renderer.Mock, "Render"))
}

func TestBoard_Create_Validation(t *testing.T) {
	tests := []struct {
		name      string
		taskName  string
		priority  task.Priority
		wantField string
	}{
		{name: "empty name", taskName: "", priority: task.PriorityHigh, wantField: "name"},
		{name: "whitespace name", taskName: "   ", priority: task.PriorityHigh, wantField: "name"},
		{name: "unknown priority", taskName: "ok", priority: "urgent", wantField: "priority"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			rendersBefore := callCount(&f.renderer.Mock, "Render")

			_, err := f.board.Create(context.Background(), tt.taskName, "", tt.priority)

			require.Error(t, err)
			assert.True(t, service.IsValidation(err))
			var be *service.BusinessError
			require.ErrorAs(t, err, &be)
			assert.Equal(t, tt.wantField, be.Details["field"])

			assert.Empty(t, f.board.Tasks(context.Background()))
			assert.Equal(t, 0, f.store.Writes(), "no persistence write on rejected create")
			assert.Equal(t, rendersBefore, callCount(&f.renderer.Mock, "Render"))
		})
	}
}

func TestBoard_Create_DefaultsPriorityToMedium(t *testing.T) {
	f := newFixture(t, nil)

	created, err := f.board.Create(context.Background(), "x", "2026-12-01", "")
	require.NoError(t, err)
	assert.Equal(t, task.PriorityMedium, created.Priority)
	assert.Equal(t, "2026-12-01", created.Due)
}

func TestBoard_SetStatus_InProgressStartsCountdown(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	created, err := f.board.Create(ctx, "Write report", "", task.PriorityMedium)
	require.NoError(t, err)

	require.NoError(t, f.board.SetStatus(ctx, created.ID, task.StatusInProgress))

	got := f.mustFind(t, created.ID)
	assert.Equal(t, task.StatusInProgress, got.Status)
	assert.Equal(t, 1500, got.Remaining())
	assert.Equal(t, 1, f.sched.Live())
	assert.Equal(t, []int64{created.ID}, f.board.ActiveTimers())
	assert.Equal(t, 1500, f.stored(t)[0].Remaining())
}

func TestBoard_CountdownExpires(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	created, err := f.board.Create(ctx, "Write report", "", task.PriorityMedium)
	require.NoError(t, err)
	require.NoError(t, f.board.SetStatus(ctx, created.ID, task.StatusInProgress))

	f.sched.TickN(1499)
	mid := f.mustFind(t, created.ID)
	assert.Equal(t, task.StatusInProgress, mid.Status)
	assert.Equal(t, 1, mid.Remaining())
	f.notifier.AssertNotCalled(t, "Expired", mock.Anything)

	f.sched.Tick()

	got := f.mustFind(t, created.ID)
	assert.Equal(t, task.StatusDone, got.Status)
	assert.False(t, got.HasRemaining())
	assert.Equal(t, 0, f.sched.Live())
	assert.Empty(t, f.board.ActiveTimers())
	f.notifier.AssertCalled(t, "Expired", "Write report")
	f.notifier.AssertNumberOfCalls(t, "Expired", 1)
	assert.Equal(t, 1499, callCount(&f.renderer.Mock, "TimerUpdated"))

	stored := f.stored(t)
	assert.Equal(t, task.StatusDone, stored[0].Status)
	assert.False(t, stored[0].HasRemaining())

	// nothing left to tick
	f.sched.TickN(10)
	f.notifier.AssertNumberOfCalls(t, "Expired", 1)
}

func TestBoard_TickUpdatesTimerDisplayOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	created, err := f.board.Create(ctx, "t", "", task.PriorityMedium)
	require.NoError(t, err)
	require.NoError(t, f.board.SetStatus(ctx, created.ID, task.StatusInProgress))
	rendersBefore := callCount(&f.renderer.Mock, "Render")

	f.sched.Tick()

	assert.Equal(t, rendersBefore, callCount(&f.renderer.Mock, "Render"))
	f.renderer.AssertCalled(t, "TimerUpdated", mock.MatchedBy(func(tk task.Task) bool {
		return tk.ID == created.ID && tk.Remaining() == 1499
	}))
	assert.Equal(t, 1499, f.stored(t)[0].Remaining())
}

func TestBoard_LeavingInProgressResetsCountdown(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	created, err := f.board.Create(ctx, "t", "", task.PriorityMedium)
	require.NoError(t, err)
	require.NoError(t, f.board.SetStatus(ctx, created.ID, task.StatusInProgress))
	f.sched.TickN(600)
	require.Equal(t, 900, f.mustFind(t, created.ID).Remaining())

	require.NoError(t, f.board.SetStatus(ctx, created.ID, task.StatusNotStarted))

	got := f.mustFind(t, created.ID)
	assert.Equal(t, task.StatusNotStarted, got.Status)
	assert.False(t, got.HasRemaining())
	assert.Equal(t, 0, f.sched.Live())

	require.NoError(t, f.board.SetStatus(ctx, created.ID, task.StatusInProgress))
	assert.Equal(t, 1500, f.mustFind(t, created.ID).Remaining())
}

func TestBoard_SetStatusDoneStopsCountdown(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	created, err := f.board.Create(ctx, "t", "", task.PriorityMedium)
	require.NoError(t, err)
	require.NoError(t, f.board.SetStatus(ctx, created.ID, task.StatusInProgress))

	require.NoError(t, f.board.SetStatus(ctx, created.ID, task.StatusDone))

	got := f.mustFind(t, created.ID)
	assert.Equal(t, task.StatusDone, got.Status)
	assert.False(t, got.HasRemaining())
	assert.Equal(t, 0, f.sched.Live())
	f.notifier.AssertNotCalled(t, "Expired", mock.Anything)
}

func TestBoard_ReenteringInProgressKeepsOneTimer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	created, err := f.board.Create(ctx, "t", "", task.PriorityMedium)
	require.NoError(t, err)

	require.NoError(t, f.board.SetStatus(ctx, created.ID, task.StatusInProgress))
	f.sched.TickN(10)
	require.NoError(t, f.board.SetStatus(ctx, created.ID, task.StatusInProgress))

	assert.Equal(t, 1, f.sched.Live())
	// remaining time survives a restart while staying in progress
	assert.Equal(t, 1490, f.mustFind(t, created.ID).Remaining())

	f.sched.Tick()
	assert.Equal(t, 1489, f.mustFind(t, created.ID).Remaining(), "one tick, one decrement")

	// a tick already in flight from the replaced timer is dropped
	f.sched.Created()[0].Fire()
	assert.Equal(t, 1489, f.mustFind(t, created.ID).Remaining())
}

func TestBoard_SetStatus_Invalid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	created, err := f.board.Create(ctx, "t", "", task.PriorityMedium)
	require.NoError(t, err)

	err = f.board.SetStatus(ctx, created.ID, "archived")
	assert.True(t, service.IsValidation(err))
	assert.Equal(t, task.StatusNotStarted, f.mustFind(t, created.ID).Status)
}

func TestBoard_SetPriority(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	created, err := f.board.Create(ctx, "t", "", task.PriorityMedium)
	require.NoError(t, err)
	rendersBefore := callCount(&f.renderer.Mock, "Render")
	writesBefore := f.store.Writes()

	require.NoError(t, f.board.SetPriority(ctx, created.ID, task.PriorityHigh))

	assert.Equal(t, task.PriorityHigh, f.mustFind(t, created.ID).Priority)
	assert.Equal(t, task.PriorityHigh, f.stored(t)[0].Priority)
	assert.Equal(t, writesBefore+1, f.store.Writes())
	assert.Equal(t, rendersBefore, callCount(&f.renderer.Mock, "Render"))

	err = f.board.SetPriority(ctx, created.ID, "critical")
	assert.True(t, service.IsValidation(err))
	assert.Equal(t, task.PriorityHigh, f.mustFind(t, created.ID).Priority)
}

func TestBoard_EditName(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	created, err := f.board.Create(ctx, "old", "", task.PriorityMedium)
	require.NoError(t, err)

	require.NoError(t, f.board.EditName(ctx, created.ID, "  new name "))
	assert.Equal(t, "new name", f.mustFind(t, created.ID).Name)

	err = f.board.EditName(ctx, created.ID, "  ")
	assert.True(t, service.IsValidation(err))
	assert.Equal(t, "new name", f.mustFind(t, created.ID).Name)
}

func TestBoard_Delete_CancelsCountdown(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	a, err := f.board.Create(ctx, "A", "", task.PriorityMedium)
	require.NoError(t, err)
	b, err := f.board.Create(ctx, "B", "", task.PriorityMedium)
	require.NoError(t, err)

	f.board.DragStart(a.ID)
	require.NoError(t, f.board.Drop(ctx, drag.TargetInProgress))
	f.board.DragEnd()
	require.Equal(t, 1, f.sched.Live())

	require.NoError(t, f.board.Delete(ctx, a.ID))

	assert.Equal(t, 0, f.sched.Live())
	assert.Empty(t, f.board.ActiveTimers())
	_, err = f.board.Find(ctx, a.ID)
	assert.Error(t, err)
	assert.Equal(t, []task.Task{b}, f.stored(t))

	// a tick that was already on its way must not resurrect anything
	renders := callCount(&f.renderer.Mock, "Render")
	f.sched.Created()[0].Fire()
	assert.Equal(t, renders, callCount(&f.renderer.Mock, "Render"))
	assert.Len(t, f.board.Tasks(ctx), 1)
}

func TestBoard_DragAndDrop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	created, err := f.board.Create(ctx, "t", "", task.PriorityMedium)
	require.NoError(t, err)

	// drop with nothing dragged
	require.NoError(t, f.board.Drop(ctx, drag.TargetInProgress))
	assert.Equal(t, task.StatusNotStarted, f.mustFind(t, created.ID).Status)

	f.board.DragStart(created.ID)
	require.NoError(t, f.board.Drop(ctx, drag.TargetInProgress))
	assert.Equal(t, task.StatusInProgress, f.mustFind(t, created.ID).Status)
	assert.Equal(t, 1, f.sched.Live())

	// the drop consumed the drag
	require.NoError(t, f.board.Drop(ctx, drag.TargetNotStarted))
	assert.Equal(t, task.StatusInProgress, f.mustFind(t, created.ID).Status)

	f.board.DragStart(created.ID)
	require.NoError(t, f.board.Drop(ctx, drag.TargetNotStarted))
	got := f.mustFind(t, created.ID)
	assert.Equal(t, task.StatusNotStarted, got.Status)
	assert.False(t, got.HasRemaining())
	assert.Equal(t, 0, f.sched.Live())

	f.board.DragStart(created.ID)
	err = f.board.Drop(ctx, drag.Target("trash"))
	assert.True(t, service.IsValidation(err))
}

func TestBoard_StaleIDsAreNoops(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	const ghost = int64(424242)

	assert.NoError(t, f.board.EditName(ctx, ghost, "x"))
	assert.NoError(t, f.board.SetPriority(ctx, ghost, task.PriorityLow))
	assert.NoError(t, f.board.SetStatus(ctx, ghost, task.StatusInProgress))
	assert.NoError(t, f.board.Delete(ctx, ghost))

	f.board.DragStart(ghost)
	assert.NoError(t, f.board.Drop(ctx, drag.TargetInProgress))

	assert.Equal(t, 0, f.store.Writes())
	assert.Equal(t, 0, f.sched.Live())
	assert.Empty(t, f.board.Tasks(ctx))
}

func intPtr(v int) *int { return &v }

func TestOpen_RestoresAndNormalizes(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	blob, err := task.MarshalList([]task.Task{
		{ID: 1, Name: "running", Priority: task.PriorityHigh, Status: task.StatusInProgress, RemainingTime: intPtr(42)},
		{ID: 2, Name: "running, no time", Priority: task.PriorityLow, Status: task.StatusInProgress},
		{ID: 3, Name: "done with time", Priority: task.PriorityMedium, Status: task.StatusDone, RemainingTime: intPtr(7)},
		{ID: 4, Name: "waiting", Priority: task.PriorityMedium, Status: task.StatusNotStarted},
	})
	require.NoError(t, err)
	require.NoError(t, st.Set(ctx, store.DefaultKey, blob))

	f := newFixture(t, st)

	assert.Equal(t, []int64{1, 2}, f.board.ActiveTimers())
	assert.Equal(t, 2, f.sched.Live())
	assert.Equal(t, 42, f.mustFind(t, 1).Remaining())
	assert.Equal(t, 1500, f.mustFind(t, 2).Remaining())
	assert.False(t, f.mustFind(t, 3).HasRemaining())

	// normalized collection was written back
	stored := f.stored(t)
	require.Len(t, stored, 4)
	assert.Equal(t, 1500, stored[1].Remaining())
	assert.False(t, stored[2].HasRemaining())

	f.sched.Tick()
	assert.Equal(t, 41, f.mustFind(t, 1).Remaining())
	assert.Equal(t, 1499, f.mustFind(t, 2).Remaining())

	// ids minted after a restore do not collide
	created, err := f.board.Create(ctx, "new", "", task.PriorityMedium)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), created.ID)
}

func TestOpen_AbsentValueIsEmptyBoard(t *testing.T) {
	f := newFixture(t, nil)

	assert.Empty(t, f.board.Tasks(context.Background()))
	assert.Equal(t, 0, f.store.Writes())
	f.renderer.AssertNumberOfCalls(t, "Render", 1)
}

func TestOpen_CorruptBlob(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	require.NoError(t, st.Set(ctx, store.DefaultKey, []byte("{broken")))

	_, err := service.Open(ctx, service.Deps{Store: st, Scheduler: timertest.NewScheduler()})
	assert.Error(t, err)
}

type failingStore struct {
	*memory.Store
	err error
}

func (s *failingStore) Set(ctx context.Context, key string, blob []byte) error {
	return s.err
}

func TestOpen_FailedWriteBackStartsNoCountdown(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk full")
	backing := memory.New()
	blob, err := task.MarshalList([]task.Task{
		{ID: 1, Name: "running", Priority: "bogus", Status: task.StatusInProgress, RemainingTime: intPtr(30)},
	})
	require.NoError(t, err)
	require.NoError(t, backing.Set(ctx, store.DefaultKey, blob))

	sched := timertest.NewScheduler()
	board, err := service.Open(ctx, service.Deps{
		Store:     &failingStore{Store: backing, err: boom},
		Scheduler: sched,
	})

	assert.Nil(t, board)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, sched.Live())
	assert.Empty(t, sched.Created())
}

func TestBoard_PersistFailureKeepsMutation(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk full")
	board := service.NewBoard(service.Deps{
		Store:     &failingStore{Store: memory.New(), err: boom},
		Scheduler: timertest.NewScheduler(),
	})
	defer board.Close()

	created, err := board.Create(ctx, "t", "", task.PriorityMedium)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, board.Tasks(ctx), 1)
	assert.Equal(t, "t", created.Name)
}

// Random sequences of operations must keep the remaining-time rule and
// the one-timer-per-in-progress-task rule.
func TestBoard_CountdownRulesHoldUnderRandomOperations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	rng := rand.New(rand.NewSource(7))
	statuses := []task.Status{task.StatusNotStarted, task.StatusInProgress, task.StatusDone}

	var ids []int64
	for step := 0; step < 500; step++ {
		switch op := rng.Intn(6); {
		case op == 0 || len(ids) == 0:
			created, err := f.board.Create(ctx, "t", "", task.PriorityMedium)
			require.NoError(t, err)
			ids = append(ids, created.ID)
		case op == 1:
			require.NoError(t, f.board.Delete(ctx, ids[rng.Intn(len(ids))]))
		case op == 2:
			f.board.DragStart(ids[rng.Intn(len(ids))])
			target := drag.TargetInProgress
			if rng.Intn(2) == 0 {
				target = drag.TargetNotStarted
			}
			require.NoError(t, f.board.Drop(ctx, target))
		case op == 3:
			f.sched.TickN(rng.Intn(5) + 1)
		default:
			require.NoError(t, f.board.SetStatus(ctx, ids[rng.Intn(len(ids))], statuses[rng.Intn(len(statuses))]))
		}

		var inProgress []int64
		for _, tk := range f.board.Tasks(ctx) {
			assert.Equal(t, tk.Status == task.StatusInProgress, tk.HasRemaining(), "task %d", tk.ID)
			if tk.Status == task.StatusInProgress {
				inProgress = append(inProgress, tk.ID)
			}
		}
		assert.ElementsMatch(t, inProgress, f.board.ActiveTimers())
		assert.Equal(t, len(inProgress), f.sched.Live())
	}
}

type unhealthyStore struct {
	*memory.Store
}

func (unhealthyStore) HealthCheck(ctx context.Context) error {
	return errors.New("connection refused")
}

func TestBoard_HealthCheck(t *testing.T) {
	f := newFixture(t, nil)
	assert.NoError(t, f.board.HealthCheck(context.Background()))

	board := service.NewBoard(service.Deps{
		Store:     unhealthyStore{Store: memory.New()},
		Scheduler: timertest.NewScheduler(),
	})
	assert.Error(t, board.HealthCheck(context.Background()))
}
