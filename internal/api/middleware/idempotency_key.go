package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskboard/taskboard-api/internal/api/handler"
)

const maxIdempotencyKeyLen = 255

// IdempotencyKey rejects keys that are too long or contain non-printable
// characters before they reach the store.
func IdempotencyKey() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.Request().Header.Get(handler.HeaderIdempotencyKey)
			if key != "" && !validKey(key) {
				return c.JSON(http.StatusBadRequest, handler.Envelope{
					Message: "Invalid Idempotency-Key header",
				})
			}
			return next(c)
		}
	}
}

func validKey(key string) bool {
	if len(key) > maxIdempotencyKeyLen {
		return false
	}
	for i := 0; i < len(key); i++ {
		if key[i] < 0x21 || key[i] > 0x7e {
			return false
		}
	}
	return true
}
