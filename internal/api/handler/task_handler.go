package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/taskboard/taskboard-api/internal/core/ports"
	"github.com/taskboard/taskboard-api/internal/core/query"
)

const msgTaskRequired = "Name and deadline are required"

// TaskHandler handles the /tasks endpoints.
type TaskHandler struct {
	service ports.TaskService
	log     zerolog.Logger
}

func NewTaskHandler(service ports.TaskService, log zerolog.Logger) *TaskHandler {
	return &TaskHandler{service: service, log: log}
}

// List handles GET /api/tasks.
//
// @Summary      List tasks
// @Tags         tasks
// @Produce      json
// @Param        where   query     string  false  "JSON filter, e.g. {\"completed\":false}"
// @Param        sort    query     string  false  "JSON sort, e.g. {\"deadline\":1}"
// @Param        select  query     string  false  "JSON projection"
// @Param        skip    query     int     false  "Documents to skip"
// @Param        limit   query     int     false  "Maximum documents (default 100)"
// @Param        count   query     bool    false  "Return only the number of matches"
// @Success      200     {object}  listEnvelope
// @Failure      400     {object}  errorEnvelope
// @Failure      500     {object}  errorEnvelope
// @Router       /api/tasks [get]
func (h *TaskHandler) List(c echo.Context) error {
	res, err := h.service.ListTasks(c.Request().Context(), query.FromValues(c.QueryParams()))
	if err != nil {
		return fail(c, h.log, err, msgTaskRequired, "Error retrieving tasks")
	}
	if res.CountOnly {
		return respond(c, http.StatusOK, "Count of tasks retrieved successfully", res.Count)
	}
	return respond(c, http.StatusOK, "Tasks retrieved successfully", res.Items)
}

// Create handles POST /api/tasks.
//
// @Summary      Create a task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header    string       false  "Replays the original response for a repeated key"
// @Param        body             body      taskRequest  true   "Task"
// @Success      201              {object}  taskEnvelope
// @Failure      400              {object}  errorEnvelope
// @Failure      500              {object}  errorEnvelope
// @Router       /api/tasks [post]
func (h *TaskHandler) Create(c echo.Context) error {
	var req taskRequest
	if err := c.Bind(&req); err != nil {
		return respond(c, http.StatusBadRequest, "Invalid request body", nil)
	}
	if err := c.Validate(&req); err != nil {
		return fail(c, h.log, err, msgTaskRequired, "Error creating task")
	}

	task, err := h.service.CreateTask(c.Request().Context(), req.toInput(), c.Request().Header.Get(HeaderIdempotencyKey))
	if err != nil {
		return fail(c, h.log, err, msgTaskRequired, "Error creating task")
	}
	return respond(c, http.StatusCreated, "Task created successfully", task)
}

// Get handles GET /api/tasks/:id.
//
// @Summary      Get a task
// @Tags         tasks
// @Produce      json
// @Param        id      path      string  true   "Task id"
// @Param        select  query     string  false  "JSON projection"
// @Success      200     {object}  taskEnvelope
// @Failure      400     {object}  errorEnvelope
// @Failure      404     {object}  errorEnvelope
// @Failure      500     {object}  errorEnvelope
// @Router       /api/tasks/{id} [get]
func (h *TaskHandler) Get(c echo.Context) error {
	doc, err := h.service.GetTask(c.Request().Context(), c.Param("id"), query.FromValues(c.QueryParams()))
	if err != nil {
		return fail(c, h.log, err, msgTaskRequired, "Error retrieving task")
	}
	return respond(c, http.StatusOK, "Task retrieved successfully", doc)
}

// Replace handles PUT /api/tasks/:id. An absent assignedUser unassigns the task.
//
// @Summary      Replace a task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Param        id    path      string       true  "Task id"
// @Param        body  body      taskRequest  true  "Task"
// @Success      200   {object}  taskEnvelope
// @Failure      400   {object}  errorEnvelope
// @Failure      404   {object}  errorEnvelope
// @Failure      500   {object}  errorEnvelope
// @Router       /api/tasks/{id} [put]
func (h *TaskHandler) Replace(c echo.Context) error {
	var req taskRequest
	if err := c.Bind(&req); err != nil {
		return respond(c, http.StatusBadRequest, "Invalid request body", nil)
	}
	if err := c.Validate(&req); err != nil {
		return fail(c, h.log, err, msgTaskRequired, "Error updating task")
	}

	task, err := h.service.ReplaceTask(c.Request().Context(), c.Param("id"), req.toInput())
	if err != nil {
		return fail(c, h.log, err, msgTaskRequired, "Error updating task")
	}
	return respond(c, http.StatusOK, "Task updated successfully", task)
}

// Delete handles DELETE /api/tasks/:id.
//
// @Summary      Delete a task
// @Tags         tasks
// @Param        id   path  string  true  "Task id"
// @Success      204
// @Failure      404  {object}  errorEnvelope
// @Failure      500  {object}  errorEnvelope
// @Router       /api/tasks/{id} [delete]
func (h *TaskHandler) Delete(c echo.Context) error {
	if err := h.service.DeleteTask(c.Request().Context(), c.Param("id")); err != nil {
		return fail(c, h.log, err, msgTaskRequired, "Error deleting task")
	}
	return c.NoContent(http.StatusNoContent)
}

// History handles GET /api/tasks/:id/history.
//
// @Summary      Assignment history of a task
// @Tags         tasks
// @Produce      json
// @Param        id   path      string  true  "Task id"
// @Success      200  {object}  listEnvelope
// @Failure      404  {object}  errorEnvelope
// @Failure      500  {object}  errorEnvelope
// @Router       /api/tasks/{id}/history [get]
func (h *TaskHandler) History(c echo.Context) error {
	events, err := h.service.TaskHistory(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, h.log, err, msgTaskRequired, "Error retrieving task history")
	}
	return respond(c, http.StatusOK, "Task history retrieved successfully", events)
}
