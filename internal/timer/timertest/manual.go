// Package timertest provides a scheduler whose ticks are delivered by
// the test instead of the wall clock.
package timertest

import (
	"sync"
	"time"

	"taskboard/internal/timer"
)

type Scheduler struct {
	mu     sync.Mutex
	timers []*Timer
}

var _ timer.Scheduler = (*Scheduler)(nil)

type Timer struct {
	Interval time.Duration

	fn      func()
	mu      sync.Mutex
	stopped bool
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

func (s *Scheduler) Every(interval time.Duration, fn func()) timer.Stopper {
	t := &Timer{Interval: interval, fn: fn}
	s.mu.Lock()
	s.timers = append(s.timers, t)
	s.mu.Unlock()
	return t
}

// Tick fires one tick on every timer that has not been stopped.
func (s *Scheduler) Tick() {
	for _, t := range s.live() {
		t.fire(false)
	}
}

func (s *Scheduler) TickN(n int) {
	for i := 0; i < n; i++ {
		s.Tick()
	}
}

// Live returns the number of timers that have not been stopped.
func (s *Scheduler) Live() int {
	return len(s.live())
}

// Created returns every timer ever registered, stopped or not.
func (s *Scheduler) Created() []*Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Timer, len(s.timers))
	copy(out, s.timers)
	return out
}

func (s *Scheduler) live() []*Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Timer, 0, len(s.timers))
	for _, t := range s.timers {
		if !t.Stopped() {
			out = append(out, t)
		}
	}
	return out
}

func (t *Timer) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

func (t *Timer) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// Fire invokes the callback even when the timer is stopped, the way a
// tick already in flight would.
func (t *Timer) Fire() {
	t.fire(true)
}

func (t *Timer) fire(force bool) {
	if !force && t.Stopped() {
		return
	}
	t.fn()
}
