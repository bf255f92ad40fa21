// Package events fans board updates out to connected pages.
package events

import (
	"sync"
	"sync/atomic"

	"taskboard/internal/logger"
	"taskboard/internal/models/task"
	"taskboard/internal/view"

	"go.uber.org/zap"
)

type Type string

const (
	TypeRender  Type = "render"
	TypeTimer   Type = "timer"
	TypeExpired Type = "expired"
)

// Event is one message for a page. Render carries the whole board, Timer
// one card, Expired the name of the finished task.
type Event struct {
	Type  Type            `json:"type"`
	Board *view.BoardView `json:"board,omitempty"`
	Task  *view.TaskView  `json:"task,omitempty"`
	Name  string          `json:"name,omitempty"`
}

const defaultBuffer = 64

// Hub implements the board's Renderer and Notifier by publishing to every
// subscriber. Publishing never blocks; a subscriber whose buffer is full
// misses the event.
type Hub struct {
	mu      sync.RWMutex
	subs    map[uint64]chan Event
	next    uint64
	buffer  int
	dropped atomic.Uint64
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		subs:   make(map[uint64]chan Event),
		buffer: buffer,
	}
}

// Subscribe returns a channel of events and a func that unsubscribes and
// closes the channel. The func is safe to call more than once.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, h.buffer)

	h.mu.Lock()
	h.next++
	id := h.next
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped counts events that did not fit a subscriber's buffer.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

func (h *Hub) Render(tasks []task.Task) {
	board := view.Build(tasks)
	h.publish(Event{Type: TypeRender, Board: &board})
}

func (h *Hub) TimerUpdated(t task.Task) {
	card := view.Card(t)
	h.publish(Event{Type: TypeTimer, Task: &card})
}

func (h *Hub) Expired(name string) {
	h.publish(Event{Type: TypeExpired, Name: name})
}

func (h *Hub) publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.dropped.Add(1)
			logger.Debug("Events: subscriber buffer full, event dropped",
				zap.Uint64("subscriber", id),
				zap.String("type", string(ev.Type)))
		}
	}
}
