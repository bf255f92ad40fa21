package service

import "taskboard/internal/models/task"

// Renderer redraws the page. Render gets the full collection after a
// mutation; TimerUpdated gets one in-progress task after a tick.
type Renderer interface {
	Render(tasks []task.Task)
	TimerUpdated(t task.Task)
}

// Notifier is told when a task's countdown runs out.
type Notifier interface {
	Expired(name string)
}

type nopRenderer struct{}

func (nopRenderer) Render([]task.Task)     {}
func (nopRenderer) TimerUpdated(task.Task) {}

type nopNotifier struct{}

func (nopNotifier) Expired(string) {}
