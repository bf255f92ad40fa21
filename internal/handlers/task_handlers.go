package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"taskboard/internal/drag"
	"taskboard/internal/handlers/dto"
	"taskboard/internal/logger"
	"taskboard/internal/models/task"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type TaskHandler struct {
	Board  BoardService
	Events Subscriber
}

func NewTaskHandler(board BoardService, events Subscriber) *TaskHandler {
	return &TaskHandler{
		Board:  board,
		Events: events,
	}
}

// Routes mounts the board API and the health check on r.
func (h *TaskHandler) Routes(r chi.Router) {
	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", h.GetBoard)  // GET /api/tasks
			r.Post("/", h.PostTask) // POST /api/tasks

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetTaskByID)         // GET /api/tasks/{id}
				r.Delete("/", h.DeleteTaskByID)   // DELETE /api/tasks/{id}
				r.Put("/name", h.PutName)         // PUT /api/tasks/{id}/name
				r.Put("/priority", h.PutPriority) // PUT /api/tasks/{id}/priority
				r.Put("/status", h.PutStatus)     // PUT /api/tasks/{id}/status
			})
		})

		r.Post("/drag/{id}", h.DragStart) // POST /api/drag/{id}
		r.Delete("/drag", h.DragEnd)      // DELETE /api/drag
		r.Post("/drop/{target}", h.Drop)  // POST /api/drop/{target}
		r.Get("/events", h.StreamEvents)  // GET /api/events
	})
}

func (h *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.Board.HealthCheck(r.Context()); err != nil {
		logger.Error("HTTP: health check failed", err)
		responseWithJSON(w, http.StatusServiceUnavailable,
			toPayload("service", "taskboard"),
			toPayload("status", "unavailable"),
			toPayload("error", err.Error()),
		)
		return
	}
	responseWithJSON(w, http.StatusOK,
		toPayload("service", "taskboard"),
		toPayload("status", "ok"),
	)
}

func (h *TaskHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	responseWithJSON(w, http.StatusOK, toPayload("board", h.Board.View(r.Context())))
}

func (h *TaskHandler) PostTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var request dto.CreateTaskRequest
	if !h.decode(w, r, &request) {
		return
	}

	created, err := h.Board.Create(r.Context(), request.Name, request.Due, task.Priority(request.Priority))
	if err != nil {
		h.serviceError(w, r, "create_task", err)
		return
	}

	logger.Info("HTTP_OUT: task created",
		zap.Int64("task_id", created.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	responseWithJSON(w, http.StatusCreated,
		toPayload("task", dto.FromTask(created)),
		toPayload("board", h.Board.View(r.Context())),
	)
}

func (h *TaskHandler) GetTaskByID(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	found, err := h.Board.Find(r.Context(), id)
	if err != nil {
		h.serviceError(w, r, "get_task", err)
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("task", dto.FromTask(found)))
}

func (h *TaskHandler) PutName(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var request dto.NameRequest
	if !h.decode(w, r, &request) {
		return
	}

	h.respondBoard(w, r, "edit_name", h.Board.EditName(r.Context(), id, request.Name))
}

func (h *TaskHandler) PutPriority(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var request dto.PriorityRequest
	if !h.decode(w, r, &request) {
		return
	}

	h.respondBoard(w, r, "set_priority", h.Board.SetPriority(r.Context(), id, task.Priority(request.Priority)))
}

func (h *TaskHandler) PutStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var request dto.StatusRequest
	if !h.decode(w, r, &request) {
		return
	}

	h.respondBoard(w, r, "set_status", h.Board.SetStatus(r.Context(), id, task.Status(request.Status)))
}

func (h *TaskHandler) DeleteTaskByID(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	h.respondBoard(w, r, "delete_task", h.Board.Delete(r.Context(), id))
}

func (h *TaskHandler) DragStart(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	h.Board.DragStart(id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) DragEnd(w http.ResponseWriter, r *http.Request) {
	h.Board.DragEnd()
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) Drop(w http.ResponseWriter, r *http.Request) {
	target := drag.Target(chi.URLParam(r, "target"))

	h.respondBoard(w, r, "drop", h.Board.Drop(r.Context(), target))
}

// respondBoard answers a mutation with the board as it is now.
func (h *TaskHandler) respondBoard(w http.ResponseWriter, r *http.Request, op string, err error) {
	if err != nil {
		h.serviceError(w, r, op, err)
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("board", h.Board.View(r.Context())))
}

func (h *TaskHandler) serviceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if handleBusinessError(w, err) {
		return
	}
	logger.Error("HTTP: service error", err,
		zap.String("operation", op),
		zap.String("client_ip", r.RemoteAddr))

	responseWithError(w, http.StatusInternalServerError, err.Error())
}

func (h *TaskHandler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := idParam(r)
	if err != nil {
		logger.Warn("HTTP: cannot parse id",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "invalid task id: "+chi.URLParam(r, "id"))
		return 0, false
	}
	return id, true
}

// decode reads a JSON request body into dst. Every handler that takes a
// body goes through here, so the media type is checked in one place.
func (h *TaskHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()
	if !checkContentType(r, "application/json") {
		logger.Warn("HTTP: wrong content type",
			zap.String("expected", "application/json"),
			zap.String("received", r.Header.Get("Content-Type")),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.Warn("HTTP: cannot decode JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
