package timer

import (
	"sort"
	"sync"
	"time"
)

// Coordinator keeps at most one countdown timer per task id.
//
// Start, Cancel and the other methods must be called with the shared
// lock held. Ticks take the same lock before reaching onTick, and a tick
// whose timer was cancelled or replaced in the meantime is dropped, so
// once Cancel returns the old timer can no longer reach onTick.
type Coordinator struct {
	mu       sync.Locker
	sched    Scheduler
	interval time.Duration
	onTick   func(id int64)
	timers   map[int64]*entry
	gen      uint64
}

type entry struct {
	gen     uint64
	stopper Stopper
}

func NewCoordinator(sched Scheduler, interval time.Duration, mu sync.Locker, onTick func(id int64)) *Coordinator {
	if sched == nil {
		sched = TickerScheduler{}
	}
	if interval <= 0 {
		interval = time.Second
	}
	if mu == nil {
		mu = &sync.Mutex{}
	}
	return &Coordinator{
		mu:       mu,
		sched:    sched,
		interval: interval,
		onTick:   onTick,
		timers:   make(map[int64]*entry),
	}
}

// Start (re)starts the timer for id. A running timer for the same id is
// cancelled first.
func (c *Coordinator) Start(id int64) {
	c.Cancel(id)

	c.gen++
	gen := c.gen
	e := &entry{gen: gen}
	c.timers[id] = e
	e.stopper = c.sched.Every(c.interval, func() {
		c.deliver(id, gen)
	})
}

// Cancel stops the timer for id. Unknown ids are ignored.
func (c *Coordinator) Cancel(id int64) {
	e, ok := c.timers[id]
	if !ok {
		return
	}
	delete(c.timers, id)
	if e.stopper != nil {
		e.stopper.Stop()
	}
}

func (c *Coordinator) CancelAll() {
	for id := range c.timers {
		c.Cancel(id)
	}
}

func (c *Coordinator) Active(id int64) bool {
	_, ok := c.timers[id]
	return ok
}

func (c *Coordinator) Len() int {
	return len(c.timers)
}

// IDs returns the ids with a live timer in ascending order.
func (c *Coordinator) IDs() []int64 {
	ids := make([]int64, 0, len(c.timers))
	for id := range c.timers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (c *Coordinator) deliver(id int64, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.timers[id]
	if !ok || e.gen != gen {
		return
	}
	if c.onTick != nil {
		c.onTick(id)
	}
}
