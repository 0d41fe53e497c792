package server

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/labstack/echo/v4"

	"github.com/nfrund/sequencer/internal/pubsub"
)

const writeTimeout = 10 * time.Second

// streamTopic upgrades to a websocket and writes every delivery of the topic,
// as mirrored onto the bus, until the client goes away.
func (s *Server) streamTopic(c echo.Context) error {
	name := c.Param("name")
	if _, ok := s.app.Router.Topic(name); !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown topic "+name)
	}

	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		OriginPatterns: s.app.Config.WSOriginPatterns,
	})
	if err != nil {
		s.logger.Warn("Failed to upgrade connection to WebSocket", "origin", c.Request().Header.Get("Origin"), "error", err)
		return nil
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	// CloseRead discards client frames and cancels ctx when the client closes.
	ctx := conn.CloseRead(context.Background())

	err = s.app.Bus.Subscribe(ctx, name, func(_ context.Context, msg pubsub.Message) error {
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		defer cancel()
		if err := conn.Write(wctx, websocket.MessageText, msg.Payload); err != nil {
			s.logger.Debug("WebSocket write failed, dropping delivery", "topic", name, "error", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to subscribe websocket stream", "topic", name, "error", err)
		conn.Close(websocket.StatusInternalError, "subscribe failed")
		return nil
	}

	s.logger.Info("WebSocket stream opened", "topic", name)
	<-ctx.Done()
	s.logger.Info("WebSocket stream closed", "topic", name)
	return nil
}
