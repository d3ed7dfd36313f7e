package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"PaintingOnWeb/internal/api"
	"PaintingOnWeb/internal/background"
	"PaintingOnWeb/internal/canvas"
	"PaintingOnWeb/internal/cloud"
	"PaintingOnWeb/internal/config"
	pnet "PaintingOnWeb/internal/net"
	"PaintingOnWeb/internal/store"
	"PaintingOnWeb/internal/ui"
)

const usage = `usage:
  PaintingOnWeb [-config settings.toml]         run the painting client
  PaintingOnWeb serve [-config settings.toml]   run the API server
`

func main() {
	args := os.Args[1:]
	serve := len(args) > 0 && args[0] == "serve"
	if serve {
		args = args[1:]
	}

	flags := flag.NewFlagSet("PaintingOnWeb", flag.ExitOnError)
	flags.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	configPath := flags.String("config", config.DefaultPath, "settings file")
	flags.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	canvas.SetLogger(logger)
	background.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if serve {
		err = runServer(ctx, cfg, logger)
	} else {
		err = runClient(ctx, cfg, logger)
	}
	if err != nil {
		logger.Error("exiting", "err", err)
		stop()
		os.Exit(1)
	}
}

func runServer(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("starting as server", "db", cfg.Server.DBPath)
	db, err := store.Open(ctx, cfg.Server.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	var kv store.KV = db
	switch cfg.Server.KVPath {
	case "":
	case config.MemoryKV:
		kv = store.NewMemoryKV()
	default:
		kvDB, err := store.Open(ctx, cfg.Server.KVPath)
		if err != nil {
			return err
		}
		defer kvDB.Close()
		kv = kvDB
	}

	srv := api.NewServer(api.Config{
		Addr:         cfg.Server.Addr,
		APIPath:      cfg.Server.APIPath,
		EventsPath:   cfg.Server.EventsPath,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Advertise:    cfg.Server.Advertise,
	}, api.Bindings{DB: db, KV: kv}, logger)
	return srv.Run(ctx)
}

func runClient(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("starting as client")
	layer := background.NewLayer()

	client, err := newClient(ctx, cfg, logger)
	if err != nil {
		logger.Warn("no server, running backend-less", "err", err)
	}
	syncer := cloud.NewSyncer(client, layer, logger)

	return ui.RunApp(ctx, ui.Options{
		Title:  "Painting on Web",
		Width:  cfg.Client.Width,
		Height: cfg.Client.Height,
		Layer:  layer,
		Syncer: syncer,
		Watch:  cfg.Client.Watch,
		Log:    logger,
	})
}

// newClient uses the configured server URL, or the first server found on
// the LAN when none is configured.
func newClient(ctx context.Context, cfg config.Config, logger *slog.Logger) (*cloud.Client, error) {
	url := cfg.Client.ServerURL
	if url == "" {
		found, err := pnet.Discover(ctx, cfg.Client.DiscoverTimeout.Duration)
		if err != nil {
			if errors.Is(err, pnet.ErrNoServer) {
				return nil, err
			}
			return nil, fmt.Errorf("discover server: %w", err)
		}
		logger.Info("discovered server", "url", found)
		url = found
	}
	return cloud.NewClient(url,
		cloud.WithAPIPath(cfg.Server.APIPath),
		cloud.WithEventsPath(cfg.Server.EventsPath))
}
