package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PaintingOnWeb/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dialEvents(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + DefaultEventsPath
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func waitForSubscribers(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Len() == n }, 5*time.Second, 10*time.Millisecond)
}

func TestSubscribersReceiveBackgroundWrites(t *testing.T) {
	s := NewServer(Config{}, testBindings(t), discardLogger())
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	a := dialEvents(t, srv)
	b := dialEvents(t, srv)
	waitForSubscribers(t, s.Hub(), 2)

	resp, err := http.Post(srv.URL+DefaultAPIPath, "application/json",
		strings.NewReader(`{"action":"set-bg","data":"data:image/png;base64,AAAA"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	want := Event{Type: EventBackground, Version: 1, Data: "data:image/png;base64,AAAA"}
	assert.Equal(t, want, readEvent(t, a))
	assert.Equal(t, want, readEvent(t, b))
}

func TestNewSubscriberGetsCurrentBackground(t *testing.T) {
	bindings := testBindings(t)
	_, err := bindings.KV.Put(context.Background(), store.BackgroundKey, "existing")
	require.NoError(t, err)

	s := NewServer(Config{}, bindings, discardLogger())
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dialEvents(t, srv)
	assert.Equal(t, Event{Type: EventBackground, Version: 1, Data: "existing"}, readEvent(t, conn))
}

func TestSubscriberRemovedOnClose(t *testing.T) {
	s := NewServer(Config{}, testBindings(t), discardLogger())
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dialEvents(t, srv)
	waitForSubscribers(t, s.Hub(), 1)

	conn.Close()
	waitForSubscribers(t, s.Hub(), 0)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	s := NewServer(Config{Addr: "127.0.0.1:0"}, testBindings(t), discardLogger())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}
