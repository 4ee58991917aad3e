package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/taskboard/taskboard-api/internal/api/handler"
)

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler for errors that escape
// the handlers, such as unknown routes, wrong methods and panics turned into
// errors by Recover. Every response uses the {message, data} envelope.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			_ = c.JSON(he.Code, handler.Envelope{Message: fmt.Sprintf("%v", he.Message)})
			return
		}

		code, env := handler.Resolve(err, "Invalid request", "Internal server error")
		if code >= http.StatusInternalServerError {
			log.Error().
				Err(err).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Msg("unhandled error")
		}
		_ = c.JSON(code, env)
	}
}
