package task

import (
	"strings"
)

type Status string
type Priority string

const (
	StatusNotStarted Status = "not-started"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
)

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// DefaultRemainingSeconds is the countdown a task gets when it enters in-progress.
const DefaultRemainingSeconds = 25 * 60

func (s Status) IsValid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusDone:
		return true
	default:
		return false
	}
}

func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// Task is a single card on the board. RemainingTime is set only while
// the task is in progress.
type Task struct {
	ID            int64    `json:"id" yaml:"id"`
	Name          string   `json:"name" yaml:"name"`
	Due           string   `json:"due" yaml:"due"`
	Priority      Priority `json:"priority" yaml:"priority"`
	Status        Status   `json:"status" yaml:"status"`
	RemainingTime *int     `json:"remainingTime,omitempty" yaml:"remaining_time,omitempty"`
}

func (t Task) HasRemaining() bool {
	return t.RemainingTime != nil
}

// Remaining returns the countdown in seconds, or 0 when there is none.
func (t Task) Remaining() int {
	if t.RemainingTime == nil {
		return 0
	}
	return *t.RemainingTime
}

// Clone returns a copy that shares no memory with t.
func (t Task) Clone() Task {
	if t.RemainingTime != nil {
		v := *t.RemainingTime
		t.RemainingTime = &v
	}
	return t
}

// NormalizeName trims the display name; an empty result is not a valid name.
func NormalizeName(name string) (string, bool) {
	trimmed := strings.TrimSpace(name)
	return trimmed, trimmed != ""
}
