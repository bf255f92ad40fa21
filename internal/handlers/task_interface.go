package handlers

import (
	"context"

	"taskboard/internal/drag"
	"taskboard/internal/events"
	"taskboard/internal/models/task"
	"taskboard/internal/view"
)

type BoardService interface {
	Create(ctx context.Context, name, due string, priority task.Priority) (task.Task, error)
	EditName(ctx context.Context, id int64, name string) error
	SetPriority(ctx context.Context, id int64, priority task.Priority) error
	SetStatus(ctx context.Context, id int64, status task.Status) error
	Delete(ctx context.Context, id int64) error
	DragStart(id int64)
	DragEnd()
	Drop(ctx context.Context, target drag.Target) error
	Find(ctx context.Context, id int64) (task.Task, error)
	View(ctx context.Context) view.BoardView
	HealthCheck(ctx context.Context) error
}

type Subscriber interface {
	Subscribe() (<-chan events.Event, func())
}
