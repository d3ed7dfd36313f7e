package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	stdnet "net"
	"net/http"
	"strconv"
	"time"

	pnet "PaintingOnWeb/internal/net"
)

const (
	DefaultAPIPath    = "/api/app"
	DefaultEventsPath = "/api/events"
)

type Config struct {
	Addr         string
	APIPath      string
	EventsPath   string
	MaxBodyBytes int64
	// Advertise publishes the server on the LAN over mDNS.
	Advertise bool
}

// Server hosts the API handler and the event hub.
type Server struct {
	cfg     Config
	hub     *Hub
	handler http.Handler
	log     *slog.Logger
}

func NewServer(cfg Config, b Bindings, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	if cfg.APIPath == "" {
		cfg.APIPath = DefaultAPIPath
	}
	if cfg.EventsPath == "" {
		cfg.EventsPath = DefaultEventsPath
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	hub := NewHub(b.KV, log)
	mux := http.NewServeMux()
	mux.Handle(cfg.APIPath, NewHandler(b, WithHub(hub), WithMaxBodyBytes(cfg.MaxBodyBytes), WithLogger(log)))
	mux.Handle(cfg.EventsPath, hub)

	return &Server{
		cfg:     cfg,
		hub:     hub,
		handler: WithRequestLog(mux, log),
		log:     log.With("component", "server"),
	}
}

func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) Hub() *Hub { return s.hub }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := stdnet.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("api: listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln stdnet.Listener) error {
	port := ln.Addr().(*stdnet.TCPAddr).Port
	if ip, err := pnet.GetOutgoingIP(); err == nil {
		s.log.Info("listening", "addr", ln.Addr().String(),
			"url", "http://"+stdnet.JoinHostPort(ip, strconv.Itoa(port))+s.cfg.APIPath)
	} else {
		s.log.Info("listening", "addr", ln.Addr().String(), "lan", err)
	}

	if s.cfg.Advertise {
		adv, err := pnet.Advertise(port, s.cfg.APIPath)
		if err != nil {
			s.log.Warn("mdns advertise failed", "err", err)
		} else {
			defer adv.Shutdown()
		}
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.hub.Close()
	err := srv.Shutdown(shutdownCtx)
	if serveErr := <-errc; serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return serveErr
	}
	s.log.Info("stopped")
	return err
}
