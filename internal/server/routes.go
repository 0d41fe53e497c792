package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nfrund/sequencer/internal/middleware"
)

// publishRate bounds publishes per client IP per second.
const publishRate = 50

// RegisterRoutes sets up all routes.
func (s *Server) RegisterRoutes() {
	s.E.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	s.E.GET("/topics", s.listTopics)
	s.E.GET("/topics/:name", s.getTopic)
	s.E.POST("/topics/:name/publish", s.publish, middleware.RateLimiter(publishRate))

	s.E.GET("/interactions", s.listInteractions)
	s.E.GET("/interactions/:key", s.resolveInteraction)

	s.E.GET("/plugins", s.listPlugins)
	s.E.GET("/sequences", s.listSequences)

	s.E.GET("/ws/topics/:name", s.streamTopic)

	s.E.GET("/metrics", echo.WrapHandler(s.app.Metrics.Handler()))
}
