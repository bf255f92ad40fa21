package dto

import (
	"taskboard/internal/models/task"
	"taskboard/internal/view"
)

type CreateTaskRequest struct {
	Name     string `json:"name"`
	Due      string `json:"due"`
	Priority string `json:"priority"`
}

type NameRequest struct {
	Name string `json:"name"`
}

type PriorityRequest struct {
	Priority string `json:"priority"`
}

type StatusRequest struct {
	Status string `json:"status"`
}

type TaskResponse struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Due           string `json:"due"`
	Priority      string `json:"priority"`
	Status        string `json:"status"`
	RemainingTime *int   `json:"remainingTime,omitempty"`
	Remaining     string `json:"remaining,omitempty"`
}

func FromTask(t task.Task) TaskResponse {
	resp := TaskResponse{
		ID:            t.ID,
		Name:          t.Name,
		Due:           t.Due,
		Priority:      string(t.Priority),
		Status:        string(t.Status),
		RemainingTime: t.Clone().RemainingTime,
	}
	if t.HasRemaining() {
		resp.Remaining = view.FormatRemaining(t.Remaining())
	}
	return resp
}
