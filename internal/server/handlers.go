package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nfrund/sequencer/internal/interactions"
	"github.com/nfrund/sequencer/internal/middleware"
	"github.com/nfrund/sequencer/internal/router"
)

type topicResponse struct {
	Name        string `json:"name"`
	Subscribers int    `json:"subscribers"`
	Replay      bool   `json:"replay"`
	Definition  any    `json:"definition"`
}

func (s *Server) listTopics(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"topics": s.app.Router.Topics(),
		"stats":  s.app.Topics.Stats(),
	})
}

func (s *Server) getTopic(c echo.Context) error {
	name := c.Param("name")
	def, ok := s.app.Router.Topic(name)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown topic "+name)
	}
	return c.JSON(http.StatusOK, topicResponse{
		Name:        name,
		Subscribers: s.app.Router.SubscriberCount(name),
		Replay:      s.app.Router.IsReplayTopic(name),
		Definition:  def,
	})
}

func (s *Server) publish(c echo.Context) error {
	name := c.Param("name")

	var payload any
	if err := json.NewDecoder(c.Request().Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		return echo.NewHTTPError(http.StatusBadRequest, "payload must be JSON: "+err.Error())
	}

	err := s.app.Router.Publish(c.Request().Context(), name, payload)
	switch {
	case errors.Is(err, router.ErrUnknownTopic):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, router.ErrInvalidPayload):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		return err
	}

	middleware.FromContext(c.Request().Context()).Debug("Published over HTTP", "topic", name)
	return c.JSON(http.StatusAccepted, map[string]string{"topic": name, "status": "accepted"})
}

func (s *Server) listInteractions(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"interactions": s.app.Interactions.Keys()})
}

func (s *Server) resolveInteraction(c echo.Context) error {
	route, err := s.app.Interactions.Resolve(c.Param("key"))
	if errors.Is(err, interactions.ErrUnknownInteraction) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, route)
}

func (s *Server) listPlugins(c echo.Context) error {
	return c.JSON(http.StatusOK, s.app.Plugins.Get(c.Request().Context()))
}

func (s *Server) listSequences(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"plugins":   s.app.Conductor.MountedPluginIDs(),
		"sequences": s.app.Conductor.MountedSequences().IDs(),
	})
}
