package cloud

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"PaintingOnWeb/internal/api"
	"PaintingOnWeb/internal/background"
)

// Syncer keeps a background Layer in step with the server. Without a client,
// or after a failed probe, it runs backend-less: uploads only preview locally.
type Syncer struct {
	client *Client
	layer  *background.Layer
	log    *slog.Logger

	online  atomic.Bool
	version atomic.Int64

	mu       sync.Mutex
	onChange func()

	pushes sync.WaitGroup
}

func NewSyncer(client *Client, layer *background.Layer, log *slog.Logger) *Syncer {
	if log == nil {
		log = slog.Default()
	}
	return &Syncer{client: client, layer: layer, log: log.With("component", "sync")}
}

// OnChange registers fn to run after a remote value changed the layer. It is
// called from the goroutine that observed the change.
func (s *Syncer) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

func (s *Syncer) changed() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Online reports whether the last probe reached the server.
func (s *Syncer) Online() bool { return s.online.Load() }

// Version is the newest background version seen from the server.
func (s *Syncer) Version() int64 { return s.version.Load() }

// Start probes the server and applies the stored background. Any failure
// leaves the syncer backend-less; the error says why.
func (s *Syncer) Start(ctx context.Context) error {
	s.online.Store(false)
	if s.client == nil {
		s.log.Info("no server configured, running backend-less")
		return ErrOffline
	}
	if _, err := s.client.Status(ctx); err != nil {
		s.log.Warn("server unreachable, running backend-less", "endpoint", s.client.Endpoint(), "err", err)
		return err
	}
	s.online.Store(true)
	s.log.Info("server online", "endpoint", s.client.Endpoint())

	prefs, err := s.client.Prefs(ctx)
	if err != nil {
		// Online but the read failed: keep whatever the layer shows.
		s.log.Warn("fetch prefs failed", "err", err)
		return nil
	}
	if prefs.Background != nil {
		s.apply(prefs.Version, *prefs.Background)
	}
	return nil
}

// Upload turns a chosen file into a data URL and shows it at once. When the
// server is online the value is pushed in the background; a failed push is
// logged and the preview stays. An undecodable file is returned as an error
// and changes nothing.
func (s *Syncer) Upload(ctx context.Context, name string, data []byte) error {
	value := background.FileToDataURL(name, data)
	if err := s.layer.Set(value); err != nil {
		return fmt.Errorf("cloud: upload %s: %w", name, err)
	}
	if !s.Online() {
		s.log.Info("background applied locally", "file", name)
		return nil
	}

	s.pushes.Add(1)
	go func() {
		defer s.pushes.Done()
		w, err := s.client.SetBackground(context.WithoutCancel(ctx), value)
		if err != nil {
			s.log.Warn("background upload failed", "file", name, "err", err)
			return
		}
		s.seen(w.Version)
		s.log.Info("background uploaded", "file", name, "version", w.Version)
	}()
	return nil
}

// Wait blocks until pending uploads have finished.
func (s *Syncer) Wait() { s.pushes.Wait() }

// Auth forwards to the client; backend-less it fails with ErrOffline.
func (s *Syncer) Auth(ctx context.Context, username, password string) (AuthResult, error) {
	if !s.Online() {
		return AuthResult{}, ErrOffline
	}
	return s.client.Auth(ctx, username, password)
}

// Watch subscribes to background writes and applies each to the layer until
// ctx ends or the connection drops. It does not reconnect.
func (s *Syncer) Watch(ctx context.Context) error {
	if !s.Online() {
		return ErrOffline
	}
	url := s.client.EventsURL()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("cloud: dial %s: %w", url, err)
	}
	defer conn.Close()
	s.log.Info("watching background changes", "url", url)

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		var ev api.Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("cloud: watch: %w", err)
		}
		if ev.Type != api.EventBackground {
			continue
		}
		s.apply(ev.Version, ev.Data)
	}
}

// apply sets value on the layer unless a newer version was already seen or
// the layer already shows it.
func (s *Syncer) apply(version int64, value string) {
	if !s.seen(version) {
		s.log.Debug("stale background ignored", "version", version)
		return
	}
	if value == s.layer.Value() {
		return
	}
	if err := s.layer.Set(value); err != nil {
		s.log.Warn("remote background rejected", "version", version, "err", err)
		return
	}
	s.log.Info("background updated", "version", version)
	s.changed()
}

// seen records version and reports whether it is not older than the newest
// one recorded so far.
func (s *Syncer) seen(version int64) bool {
	for {
		cur := s.version.Load()
		if version < cur {
			return false
		}
		if version == cur || s.version.CompareAndSwap(cur, version) {
			return true
		}
	}
}
