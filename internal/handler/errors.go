package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-service/internal/service"
)

// ErrorHandler renders errors that escape handlers (unknown routes, wrong
// methods, body limits, panics) with the same envelope the API uses.
func ErrorHandler(debug bool, log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		message := "Internal server error"
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			switch {
			case status == http.StatusNotFound:
				message = "Route not found"
			case status < 500:
				if m, ok := he.Message.(string); ok {
					message = m
				} else {
					message = http.StatusText(status)
				}
			}
		}

		r := service.Failure(status, message)
		if status >= 500 {
			log.ErrorContext(c.Request().Context(), "unhandled error", "err", err, "path", c.Request().URL.Path)
			if debug {
				r.Body.Error = fmt.Sprint(err)
			}
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, r.Body)
		}
		if err != nil {
			log.WarnContext(c.Request().Context(), "write error response", "err", err)
		}
	}
}
