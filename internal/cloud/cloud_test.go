package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PaintingOnWeb/internal/api"
	"PaintingOnWeb/internal/background"
	"PaintingOnWeb/internal/store"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pngBytes(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 3, 3))
	for i := 0; i < 9; i++ {
		img.Set(i%3, i/3, c)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func startServer(t *testing.T) (*api.Server, *httptest.Server) {
	t.Helper()
	db, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "cloud.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := api.NewServer(api.Config{}, api.Bindings{DB: db, KV: store.NewMemoryKV()}, quietLogger())
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Hub().Close()
		srv.Close()
	})
	return s, srv
}

func newClient(t *testing.T, base string) *Client {
	t.Helper()
	c, err := NewClient(base + api.DefaultAPIPath)
	require.NoError(t, err)
	return c
}

func TestNewClient(t *testing.T) {
	c, err := NewClient("http://board.local:8080")
	require.NoError(t, err)
	assert.Equal(t, "http://board.local:8080/api/app", c.Endpoint())
	assert.Equal(t, "ws://board.local:8080/api/events", c.EventsURL())

	c, err = NewClient("https://example.com/custom", WithEventsPath("/live"))
	require.NoError(t, err)
	assert.Equal(t, "wss://example.com/live", c.EventsURL())

	c, err = NewClient("http://board.local:9000/", WithAPIPath("/paint"))
	require.NoError(t, err)
	assert.Equal(t, "http://board.local:9000/paint", c.Endpoint())

	c, err = NewClient("http://board.local:9000/api/app", WithAPIPath("/paint"))
	require.NoError(t, err)
	assert.Equal(t, "http://board.local:9000/api/app", c.Endpoint(), "an explicit path wins")

	_, err = NewClient("ftp://example.com")
	assert.Error(t, err)
}

func TestClientAgainstServer(t *testing.T) {
	_, srv := startServer(t)
	c := newClient(t, srv.URL)
	ctx := context.Background()

	st, err := c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "online", st.Status)

	prefs, err := c.Prefs(ctx)
	require.NoError(t, err)
	assert.Nil(t, prefs.Background)

	w, err := c.SetBackground(ctx, "data:image/png;base64,AAAA")
	require.NoError(t, err)
	assert.True(t, w.Success)
	assert.Equal(t, int64(1), w.Version)

	prefs, err = c.Prefs(ctx)
	require.NoError(t, err)
	require.NotNil(t, prefs.Background)
	assert.Equal(t, "data:image/png;base64,AAAA", *prefs.Background)

	res, err := c.Auth(ctx, "grace", "hopper")
	require.NoError(t, err)
	assert.Equal(t, "registered", res.Mode)

	res, err = c.Auth(ctx, "grace", "hopper")
	require.NoError(t, err)
	assert.Equal(t, "login", res.Mode)

	_, err = c.Auth(ctx, "grace", "wrong")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	var se *StatusError
	_, err = c.Auth(ctx, "", "")
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Code)
}

func TestStatusRequiresOnline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.StatusResponse{Status: "maintenance"})
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).Status(context.Background())
	assert.ErrorIs(t, err, ErrOffline)
}

func TestStartAppliesStoredBackground(t *testing.T) {
	_, srv := startServer(t)
	c := newClient(t, srv.URL)
	value := background.FileToDataURL("bg.png", pngBytes(t, color.White))
	_, err := c.SetBackground(context.Background(), value)
	require.NoError(t, err)

	layer := background.NewLayer()
	s := NewSyncer(c, layer, quietLogger())
	require.NoError(t, s.Start(context.Background()))

	assert.True(t, s.Online())
	assert.Equal(t, value, layer.Value())
	assert.Equal(t, int64(1), s.Version())
}

func TestStartDegradesWhenUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	layer := background.NewLayer()
	s := NewSyncer(newClient(t, url), layer, quietLogger())
	assert.Error(t, s.Start(context.Background()))
	assert.False(t, s.Online())

	// Backend-less uploads still preview locally.
	require.NoError(t, s.Upload(context.Background(), "local.png", pngBytes(t, color.Black)))
	s.Wait()
	assert.NotEmpty(t, layer.Value())

	_, err := s.Auth(context.Background(), "a", "b")
	assert.ErrorIs(t, err, ErrOffline)
}

func TestStartWithoutClient(t *testing.T) {
	s := NewSyncer(nil, background.NewLayer(), quietLogger())
	assert.ErrorIs(t, s.Start(context.Background()), ErrOffline)
	assert.False(t, s.Online())
}

func TestUploadPushesToServer(t *testing.T) {
	_, srv := startServer(t)
	c := newClient(t, srv.URL)
	layer := background.NewLayer()
	s := NewSyncer(c, layer, quietLogger())
	require.NoError(t, s.Start(context.Background()))

	data := pngBytes(t, color.RGBA{R: 0xff, A: 0xff})
	require.NoError(t, s.Upload(context.Background(), "red.png", data))
	assert.Equal(t, background.FileToDataURL("red.png", data), layer.Value(), "preview is immediate")
	s.Wait()

	prefs, err := c.Prefs(context.Background())
	require.NoError(t, err)
	require.NotNil(t, prefs.Background)
	assert.Equal(t, layer.Value(), *prefs.Background)
	assert.Equal(t, int64(1), s.Version())
}

func TestUploadRejectsUndecodableFile(t *testing.T) {
	layer := background.NewLayer()
	s := NewSyncer(nil, layer, quietLogger())

	err := s.Upload(context.Background(), "notes.txt", []byte("hello"))
	assert.Error(t, err)
	assert.Empty(t, layer.Value())
}

func TestFailedPushKeepsPreview(t *testing.T) {
	var posts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			posts.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if r.URL.Query().Get("action") == api.ActionGetPrefs {
			json.NewEncoder(w).Encode(api.PrefsResponse{})
			return
		}
		json.NewEncoder(w).Encode(api.StatusResponse{Status: "online"})
	}))
	defer srv.Close()

	layer := background.NewLayer()
	s := NewSyncer(newClient(t, srv.URL), layer, quietLogger())
	require.NoError(t, s.Start(context.Background()))

	require.NoError(t, s.Upload(context.Background(), "bg.png", pngBytes(t, color.Black)))
	s.Wait()

	assert.Equal(t, int32(1), posts.Load())
	assert.NotEmpty(t, layer.Value())
}

func TestWatchAppliesRemoteWrites(t *testing.T) {
	server, srv := startServer(t)
	layer := background.NewLayer()
	s := NewSyncer(newClient(t, srv.URL), layer, quietLogger())
	require.NoError(t, s.Start(context.Background()))

	var changes atomic.Int32
	s.OnChange(func() { changes.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx) }()
	require.Eventually(t, func() bool { return server.Hub().Len() == 1 }, 5*time.Second, 10*time.Millisecond)

	other := newClient(t, srv.URL)
	value := background.FileToDataURL("remote.png", pngBytes(t, color.White))
	_, err := other.SetBackground(context.Background(), value)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return layer.Value() == value }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), changes.Load())
	assert.Equal(t, int64(1), s.Version())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestApplyIgnoresStaleVersions(t *testing.T) {
	layer := background.NewLayer()
	s := NewSyncer(nil, layer, quietLogger())
	newer := background.FileToDataURL("b.png", pngBytes(t, color.White))
	older := background.FileToDataURL("a.png", pngBytes(t, color.Black))

	s.apply(2, newer)
	s.apply(1, older)
	assert.Equal(t, newer, layer.Value())
	assert.Equal(t, int64(2), s.Version())
}
