package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/taskboard/taskboard-api/internal/core/ports"
	"github.com/taskboard/taskboard-api/internal/core/query"
)

const msgUserRequired = "Name and email are required"

// UserHandler handles the /users endpoints.
type UserHandler struct {
	service ports.UserService
	log     zerolog.Logger
}

func NewUserHandler(service ports.UserService, log zerolog.Logger) *UserHandler {
	return &UserHandler{service: service, log: log}
}

// List handles GET /api/users.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Param        where   query     string  false  "JSON filter, e.g. {\"name\":\"Ann\"}"
// @Param        sort    query     string  false  "JSON sort, e.g. {\"name\":1}"
// @Param        select  query     string  false  "JSON projection, e.g. {\"email\":0}"
// @Param        skip    query     int     false  "Documents to skip"
// @Param        limit   query     int     false  "Maximum documents (unbounded by default)"
// @Param        count   query     bool    false  "Return only the number of matches"
// @Success      200     {object}  listEnvelope
// @Failure      400     {object}  errorEnvelope
// @Failure      500     {object}  errorEnvelope
// @Router       /api/users [get]
func (h *UserHandler) List(c echo.Context) error {
	res, err := h.service.ListUsers(c.Request().Context(), query.FromValues(c.QueryParams()))
	if err != nil {
		return fail(c, h.log, err, msgUserRequired, "Error retrieving users")
	}
	if res.CountOnly {
		return respond(c, http.StatusOK, "Count of users retrieved successfully", res.Count)
	}
	return respond(c, http.StatusOK, "Users retrieved successfully", res.Items)
}

// Create handles POST /api/users.
//
// @Summary      Create a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header    string       false  "Replays the original response for a repeated key"
// @Param        body             body      userRequest  true   "User"
// @Success      201              {object}  userEnvelope
// @Failure      400              {object}  errorEnvelope
// @Failure      500              {object}  errorEnvelope
// @Router       /api/users [post]
func (h *UserHandler) Create(c echo.Context) error {
	var req userRequest
	if err := c.Bind(&req); err != nil {
		return respond(c, http.StatusBadRequest, "Invalid request body", nil)
	}
	if err := c.Validate(&req); err != nil {
		return fail(c, h.log, err, msgUserRequired, "Error creating user")
	}

	user, err := h.service.CreateUser(c.Request().Context(), req.toInput(), c.Request().Header.Get(HeaderIdempotencyKey))
	if err != nil {
		return fail(c, h.log, err, msgUserRequired, "Error creating user")
	}
	return respond(c, http.StatusCreated, "User created successfully", user)
}

// Get handles GET /api/users/:id.
//
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Param        id      path      string  true   "User id"
// @Param        select  query     string  false  "JSON projection"
// @Success      200     {object}  userEnvelope
// @Failure      400     {object}  errorEnvelope
// @Failure      404     {object}  errorEnvelope
// @Failure      500     {object}  errorEnvelope
// @Router       /api/users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	doc, err := h.service.GetUser(c.Request().Context(), c.Param("id"), query.FromValues(c.QueryParams()))
	if err != nil {
		return fail(c, h.log, err, msgUserRequired, "Error retrieving user")
	}
	return respond(c, http.StatusOK, "User retrieved successfully", doc)
}

// Replace handles PUT /api/users/:id. pendingTasks, when present, becomes the
// user's complete task list.
//
// @Summary      Replace a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id    path      string       true  "User id"
// @Param        body  body      userRequest  true  "User"
// @Success      200   {object}  userEnvelope
// @Failure      400   {object}  errorEnvelope
// @Failure      404   {object}  errorEnvelope
// @Failure      500   {object}  errorEnvelope
// @Router       /api/users/{id} [put]
func (h *UserHandler) Replace(c echo.Context) error {
	var req userRequest
	if err := c.Bind(&req); err != nil {
		return respond(c, http.StatusBadRequest, "Invalid request body", nil)
	}
	if err := c.Validate(&req); err != nil {
		return fail(c, h.log, err, msgUserRequired, "Error updating user")
	}

	user, err := h.service.ReplaceUser(c.Request().Context(), c.Param("id"), req.toInput())
	if err != nil {
		return fail(c, h.log, err, msgUserRequired, "Error updating user")
	}
	return respond(c, http.StatusOK, "User updated successfully", user)
}

// Delete handles DELETE /api/users/:id.
//
// @Summary      Delete a user
// @Tags         users
// @Param        id   path  string  true  "User id"
// @Success      204
// @Failure      404  {object}  errorEnvelope
// @Failure      500  {object}  errorEnvelope
// @Router       /api/users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	if err := h.service.DeleteUser(c.Request().Context(), c.Param("id")); err != nil {
		return fail(c, h.log, err, msgUserRequired, "Error deleting user")
	}
	return c.NoContent(http.StatusNoContent)
}
