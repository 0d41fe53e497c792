package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/sequencer/internal/app"
	"github.com/nfrund/sequencer/internal/config"
	"github.com/nfrund/sequencer/internal/testutils"
)

func TestHTTPErrorHandler_WithStackTrace(t *testing.T) {
	e := echo.New()

	var logBuffer bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuffer, &slog.HandlerOptions{AddSource: true}))
	setupErrorHandling(e, logger)

	e.GET("/test-unhandled-error", func(c echo.Context) error {
		return errors.New("a deliberate unhandled error occurred")
	})

	req := httptest.NewRequest(http.MethodGet, "/test-unhandled-error", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	logOutput := logBuffer.String()
	assert.Contains(t, logOutput, "Internal Server Error (Unhandled)")
	assert.Contains(t, logOutput, "error=\"a deliberate unhandled error occurred\"")
	assert.Contains(t, logOutput, "stack_trace=")
	// A real stack trace includes the debug package and this test file.
	assert.Contains(t, logOutput, "runtime/debug/stack.go")
	assert.Contains(t, logOutput, "internal/server/server_test.go")
}

func TestHTTPErrorHandler_HTTPError(t *testing.T) {
	e := echo.New()
	var logBuffer bytes.Buffer
	setupErrorHandling(e, slog.New(slog.NewTextHandler(&logBuffer, nil)))

	e.GET("/missing", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "nothing here")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"nothing here"}`, rec.Body.String())
	assert.NotContains(t, logBuffer.String(), "Unhandled")
}

func newTestServer(t *testing.T) (*Server, *testutils.LogCapture) {
	t.Helper()
	logger, logs := testutils.NewLogCapture()
	a, err := app.New(&config.Config{
		ForceEnv:           "embedded",
		ValidatePayloads:   true,
		TracingServiceName: "sequencer-test",
	}, logger)
	require.NoError(t, err)

	_, err = a.Start(context.Background())
	require.NoError(t, err)

	s := New(a)
	t.Cleanup(func() {
		assert.NoError(t, s.Shutdown(context.Background()))
	})
	return s, logs
}

func serve(s *Server, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.E.ServeHTTP(rec, req)
	return rec
}

func TestRoutes(t *testing.T) {
	s, logs := newTestServer(t)

	t.Run("health", func(t *testing.T) {
		rec := serve(s, http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "OK", rec.Body.String())
		assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	})

	t.Run("list topics", func(t *testing.T) {
		rec := serve(s, http.MethodGet, "/topics", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Topics []string `json:"topics"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Contains(t, body.Topics, "canvas.component.select.requested")
	})

	t.Run("get topic", func(t *testing.T) {
		rec := serve(s, http.MethodGet, "/topics/canvas.component.select.requested", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"canvas-component-select-symphony"`)

		rec = serve(s, http.MethodGet, "/topics/no.such.topic", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("publish", func(t *testing.T) {
		rec := serve(s, http.MethodPost, "/topics/canvas.component.select.requested/publish", `{"id":"node-1"}`)
		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Zero(t, logs.Count("Route play failed"))
	})

	t.Run("publish rejects invalid payload", func(t *testing.T) {
		rec := serve(s, http.MethodPost, "/topics/canvas.component.select.requested/publish", `{"name":"x"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "missing properties")
	})

	t.Run("publish rejects malformed json", func(t *testing.T) {
		rec := serve(s, http.MethodPost, "/topics/canvas.component.select.requested/publish", `{"id":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("publish to unknown topic", func(t *testing.T) {
		rec := serve(s, http.MethodPost, "/topics/no.such.topic/publish", `{}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("publish without body", func(t *testing.T) {
		rec := serve(s, http.MethodPost, "/topics/canvas.component.selected/publish", "")
		assert.Equal(t, http.StatusAccepted, rec.Code)
	})

	t.Run("interactions", func(t *testing.T) {
		rec := serve(s, http.MethodGet, "/interactions", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "library.component.drop")

		rec = serve(s, http.MethodGet, "/interactions/library.component.drop", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"pluginId":"LibraryComponentPlugin","sequenceId":"library-component-drop-symphony"}`, rec.Body.String())

		rec = serve(s, http.MethodGet, "/interactions/nope", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("plugins", func(t *testing.T) {
		rec := serve(s, http.MethodGet, "/plugins", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "CanvasComponentPlugin")
	})

	t.Run("sequences", func(t *testing.T) {
		rec := serve(s, http.MethodGet, "/sequences", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "header-ui-theme-toggle-symphony")
	})

	t.Run("metrics", func(t *testing.T) {
		rec := serve(s, http.MethodGet, "/metrics", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "sequencer_")
	})
}

func TestStreamTopic(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.E)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/topics/canvas.component.selected"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	received := make(chan []byte, 1)
	go func() {
		_, data, err := conn.Read(ctx)
		if err == nil {
			received <- data
		}
	}()

	// The server subscribes after the upgrade completes, so keep publishing
	// until the first delivery arrives.
	var got []byte
	require.Eventually(t, func() bool {
		select {
		case got = <-received:
			return true
		default:
		}
		_ = s.app.Router.Publish(ctx, "canvas.component.selected", map[string]any{"id": "node-7"})
		return false
	}, 3*time.Second, 50*time.Millisecond)

	assert.JSONEq(t, `{"id":"node-7"}`, string(got))
}

func TestStreamTopic_OriginCheck(t *testing.T) {
	s, _ := newTestServer(t)
	s.app.Config.WSOriginPatterns = []string{"app.example.com"}
	srv := httptest.NewServer(s.E)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/topics/canvas.component.selected"
	dial := func(t *testing.T, origin string) (*websocket.Conn, *http.Response, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		t.Cleanup(cancel)
		return websocket.Dial(ctx, wsURL, &websocket.DialOptions{
			HTTPHeader: http.Header{"Origin": []string{origin}},
		})
	}

	t.Run("foreign origin is rejected", func(t *testing.T) {
		_, resp, err := dial(t, "http://evil.example")
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	for name, origin := range map[string]string{
		"configured pattern": "https://app.example.com",
		"same host":          srv.URL,
	} {
		t.Run(name+" is accepted", func(t *testing.T) {
			conn, _, err := dial(t, origin)
			require.NoError(t, err)
			conn.Close(websocket.StatusNormalClosure, "")
		})
	}
}

func TestStreamTopic_UnknownTopic(t *testing.T) {
	s, _ := newTestServer(t)
	rec := serve(s, http.MethodGet, "/ws/topics/no.such.topic", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
