package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-management-api/internal/middleware"
	"github.com/iliyamo/task-management-api/internal/model"
	"github.com/iliyamo/task-management-api/internal/repository"
)

// TaskHandler bundles dependencies for task endpoints.
type TaskHandler struct {
	Tasks *repository.TaskRepo
	Users *repository.UserRepo
}

func NewTaskHandler(t *repository.TaskRepo, u *repository.UserRepo) *TaskHandler {
	return &TaskHandler{Tasks: t, Users: u}
}

type createTaskReq struct {
	Text       string    `json:"text"`
	Deadline   time.Time `json:"deadline"`
	ExecutorID uint64    `json:"executorId"`
}
type changeTaskStatusReq struct {
	Status string `json:"status"`
}
type taskResp struct {
	ID         uint64    `json:"id"`
	Text       string    `json:"text"`
	ExecutorID uint64    `json:"executorId,omitempty"`
	ReviewerID uint64    `json:"reviewerId"`
	Deadline   time.Time `json:"deadline"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toTaskResp(t model.Task) taskResp {
	return taskResp{
		ID:         t.ID,
		Text:       t.Text,
		ExecutorID: t.ExecutorID,
		ReviewerID: t.ReviewerID,
		Deadline:   t.Deadline,
		Status:     string(t.Status),
		CreatedAt:  t.CreatedAt,
	}
}

// Create: admin-only. The creating admin becomes the reviewer.
func (h *TaskHandler) Create(c echo.Context) error {
	identity, _ := middleware.IdentityFrom(c)
	var req createTaskReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" || req.Deadline.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "text/deadline required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	reviewer, err := h.Users.FindByUsername(ctx, identity.Subject)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load reviewer failed"})
	}
	id, err := h.Tasks.Create(ctx, req.Text, reviewer.ID, req.ExecutorID, req.Deadline)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create task failed"})
	}
	t, err := h.Tasks.FindByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load task failed"})
	}
	return c.JSON(http.StatusCreated, toTaskResp(t))
}

// List: paged listing for any authenticated caller.
func (h *TaskHandler) List(c echo.Context) error {
	page, size := pageParams(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tasks, total, err := h.Tasks.List(ctx, page, size)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]taskResp, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskResp(t))
	}
	return c.JSON(http.StatusOK, echo.Map{"tasks": out, "total": total, "page": page, "size": size})
}

// Get: fetch a single task.
func (h *TaskHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid task id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t, err := h.Tasks.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toTaskResp(t))
}

// ChangeStatus: admin-only task status transition.
func (h *TaskHandler) ChangeStatus(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid task id"})
	}
	var req changeTaskStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	status, ok := model.ParseTaskStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tasks.ChangeStatus(ctx, id, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Take: a user assigns an unassigned task to themselves.
func (h *TaskHandler) Take(c echo.Context) error {
	identity, _ := middleware.IdentityFrom(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid task id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.FindByUsername(ctx, identity.Subject)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	if err := h.Tasks.Take(ctx, id, u.ID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "task already assigned or not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete: admin-only.
func (h *TaskHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid task id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tasks.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
