// Package middleware holds echo middleware shared by the socket server.
package middleware

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
)

// CharmLog logs every request through charmbracelet/log. Errors returned by
// handlers are passed to echo's error handler first so the logged status is
// the one the client sees.
func CharmLog() echo.MiddlewareFunc {
	logger := log.WithPrefix("ipc")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			fields := []any{
				"method", req.Method,
				"path", req.URL.Path,
				"status", res.Status,
				"took", time.Since(start),
			}
			switch {
			case err != nil:
				logger.Error("request failed", append(fields, "err", err)...)
			case res.Status >= 400:
				logger.Warn("request rejected", fields...)
			default:
				logger.Debug("request", fields...)
			}
			return nil
		}
	}
}
