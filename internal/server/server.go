// Package server exposes the router, resolvers and metrics over HTTP and
// streams topic deliveries over websockets.
package server

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/nfrund/sequencer/internal/app"
	"github.com/nfrund/sequencer/internal/middleware"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	E      *echo.Echo
	app    *app.App
	logger *slog.Logger
}

// New creates a Server over a started app and registers its routes.
func New(a *app.App) *Server {
	logger := a.Logger.With("component", "http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(logger))
	e.Use(echomw.Recover())
	setupErrorHandling(e, logger)

	s := &Server{E: e, app: a, logger: logger}
	s.RegisterRoutes()
	return s
}

// setupErrorHandling renders HTTP errors as JSON and logs unhandled errors
// with a stack trace.
func setupErrorHandling(e *echo.Echo, logger *slog.Logger) {
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var he *echo.HTTPError
		if errors.As(err, &he) {
			if jerr := c.JSON(he.Code, map[string]any{"error": he.Message}); jerr != nil {
				logger.Warn("Failed to write error response", "error", jerr)
			}
			return
		}
		logger.Error("Internal Server Error (Unhandled)",
			"error", err.Error(),
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"stack_trace", string(debug.Stack()),
		)
		if jerr := c.JSON(http.StatusInternalServerError, map[string]any{"error": "internal server error"}); jerr != nil {
			logger.Warn("Failed to write error response", "error", jerr)
		}
	}
}
