package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/taskboard/taskboard-api/internal/core/domain"
	"github.com/taskboard/taskboard-api/internal/core/query"
	"github.com/taskboard/taskboard-api/internal/core/service"
)

// HeaderIdempotencyKey carries the client key that makes a create request
// replayable.
const HeaderIdempotencyKey = "Idempotency-Key"

// Envelope wraps every response body.
type Envelope struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func respond(c echo.Context, code int, message string, data any) error {
	return c.JSON(code, Envelope{Message: message, Data: data})
}

// Resolve maps err to a status and envelope. fallback is the message used
// for unexpected failures, whose underlying text is returned in data.
// Validation failures use required as their message. A mutation that failed
// after some of its steps were applied is always a 500, whatever the cause.
func Resolve(err error, required, fallback string) (int, Envelope) {
	var (
		ref  *domain.ReferenceError
		step *service.StepError
	)
	switch {
	case errors.As(err, &step) && step.Partial():
		return http.StatusInternalServerError, Envelope{Message: fallback, Data: err.Error()}
	case errors.Is(err, query.ErrBadRequest):
		return http.StatusBadRequest, Envelope{Message: badQueryMessage(err)}
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, Envelope{Message: required}
	case errors.As(err, &ref):
		return http.StatusBadRequest, Envelope{Message: capitalize(ref.Kind) + " not found"}
	case errors.Is(err, domain.ErrDuplicateEmail):
		return http.StatusBadRequest, Envelope{Message: capitalize(domain.ErrDuplicateEmail.Error())}
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, Envelope{Message: capitalize(domain.ErrUserNotFound.Error())}
	case errors.Is(err, domain.ErrTaskNotFound):
		return http.StatusNotFound, Envelope{Message: capitalize(domain.ErrTaskNotFound.Error())}
	}
	return http.StatusInternalServerError, Envelope{Message: fallback, Data: err.Error()}
}

// fail renders err and logs the ones that end as 500.
func fail(c echo.Context, log zerolog.Logger, err error, required, fallback string) error {
	code, env := Resolve(err, required, fallback)
	if code >= http.StatusInternalServerError {
		log.Error().Err(err).
			Str("method", c.Request().Method).
			Str("path", c.Path()).
			Msg(fallback)
	}
	return c.JSON(code, env)
}

// badQueryMessage drops the sentinel prefix, leaving "where: unknown field ...".
func badQueryMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, query.ErrBadRequest.Error()+": "); i >= 0 {
		msg = msg[i+len(query.ErrBadRequest.Error())+2:]
	}
	return "Invalid query parameter: " + msg
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
