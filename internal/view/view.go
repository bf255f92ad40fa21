package view

import (
	"fmt"

	"taskboard/internal/models/task"
)

const noDueDate = "No date"

// TaskView is what the page needs to draw one card.
type TaskView struct {
	ID        int64         `json:"id"`
	Name      string        `json:"name"`
	Due       string        `json:"due"`
	Priority  task.Priority `json:"priority"`
	Status    task.Status   `json:"status"`
	Remaining string        `json:"remaining,omitempty"`
	Seconds   int           `json:"seconds,omitempty"`
}

// BoardView splits the board into its two lists. Done tasks are in neither.
type BoardView struct {
	NotStarted []TaskView `json:"not_started"`
	InProgress []TaskView `json:"in_progress"`
}

func Build(tasks []task.Task) BoardView {
	v := BoardView{
		NotStarted: []TaskView{},
		InProgress: []TaskView{},
	}
	for i := range tasks {
		switch tasks[i].Status {
		case task.StatusNotStarted:
			v.NotStarted = append(v.NotStarted, Card(tasks[i]))
		case task.StatusInProgress:
			v.InProgress = append(v.InProgress, Card(tasks[i]))
		}
	}
	return v
}

func Card(t task.Task) TaskView {
	due := t.Due
	if due == "" {
		due = noDueDate
	}
	tv := TaskView{
		ID:       t.ID,
		Name:     t.Name,
		Due:      due,
		Priority: t.Priority,
		Status:   t.Status,
	}
	if t.Status == task.StatusInProgress {
		tv.Seconds = t.Remaining()
		tv.Remaining = FormatRemaining(tv.Seconds)
	}
	return tv
}

// FormatRemaining renders seconds as HH:MM:SS.
func FormatRemaining(sec int) string {
	if sec < 0 {
		sec = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, (sec%3600)/60, sec%60)
}
